// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dacapoday/pagestore/internal/retry"
	"github.com/dacapoday/pagestore/page"
	"github.com/dacapoday/pagestore/wal"
)

// Config tunes a Backend.
type Config struct {
	Layout page.Layout

	// MaxBatch bounds the number of requests in one batch.
	MaxBatch int
	// BatchWindow bounds how long a batch keeps collecting requests.
	BatchWindow time.Duration
	// IdleWait is how long an open batch waits for the next request.
	IdleWait time.Duration
	// QueueDepth is the capacity of the request queue.
	QueueDepth int
	// CachePages is the number of pages kept in memory between batches.
	CachePages int64
	// FlushWorkers bounds the parallel writes of stale pages.
	FlushWorkers int

	Compression wal.Compression
	Retry       retry.Policy
	Logger      logrus.FieldLogger
}

// DefaultConfig returns the default tuning for layout l.
func DefaultConfig(l page.Layout) Config {
	return Config{
		Layout:       l,
		MaxBatch:     64,
		BatchWindow:  4 * time.Millisecond,
		IdleWait:     time.Millisecond,
		QueueDepth:   256,
		CachePages:   4096,
		FlushWorkers: 8,
		Retry:        retry.Default,
	}
}

func (cfg Config) withDefaults() Config {
	def := DefaultConfig(cfg.Layout)
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = def.MaxBatch
	}
	if cfg.BatchWindow <= 0 {
		cfg.BatchWindow = def.BatchWindow
	}
	if cfg.IdleWait <= 0 {
		cfg.IdleWait = def.IdleWait
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = def.QueueDepth
	}
	if cfg.CachePages <= 0 {
		cfg.CachePages = def.CachePages
	}
	if cfg.FlushWorkers <= 0 {
		cfg.FlushWorkers = def.FlushWorkers
	}
	if cfg.Retry == (retry.Policy{}) {
		cfg.Retry = def.Retry
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return cfg
}
