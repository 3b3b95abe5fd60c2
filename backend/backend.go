// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

// Package backend owns the files of one store and serializes every request
// through a single goroutine.
//
// The actor collects queued requests into batches, runs each batch on one
// bptree.Operator over the page cache, commits the changed pages to the
// write-ahead log, merges them into the cache and writes the dirty pages
// the cache lets go of to the data file. Every request of a batch gets the
// same outcome: a batch either commits as a whole or fails as a whole.
package backend

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dacapoday/pagestore"
	"github.com/dacapoday/pagestore/bptree"
	"github.com/dacapoday/pagestore/internal/pagefile"
	"github.com/dacapoday/pagestore/internal/task"
	"github.com/dacapoday/pagestore/page"
	"github.com/dacapoday/pagestore/wal"
)

var (
	ErrClosed      = pagestore.ErrClosed
	ErrBatchFailed = pagestore.ErrBatchFailed

	// ErrFlushExhausted terminates the actor when a stale page cannot be
	// written to the data file.
	ErrFlushExhausted = errors.New("backend: stale page flush exhausted its retries")
)

// Backend is the single writer of a store.
type Backend struct {
	cfg    Config
	data   *pagefile.File
	log    *wal.Log
	cache  *cache
	logger logrus.FieldLogger

	requests chan *request
	stop     atomic.Bool
	wake     chan struct{}
	once     sync.Once
	done     chan struct{}
	err      error // terminal error, read after done is closed

	batches uint64
}

// Open recovers the store kept in data, log and shadow, initializing it
// when data is empty, and starts its actor. The files stay owned by the
// caller and must outlive the Backend.
func Open(data, log, shadow pagestore.File, cfg Config) (*Backend, error) {
	b, err := open(data, log, shadow, cfg)
	if err != nil {
		return nil, err
	}
	go b.run()
	return b, nil
}

func open(data, log, shadow pagestore.File, cfg Config) (*Backend, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Layout.Validate(); err != nil {
		return nil, errors.WithStack(err)
	}

	stats, err := wal.Bootstrap(data, log, shadow, cfg.Layout, cfg.Logger)
	if err != nil {
		return nil, err
	}
	b := newBackend(data, cfg)
	header, err := b.data.LoadPage(page.HeaderNumber)
	if err != nil {
		return nil, errors.Wrap(err, "backend: read header")
	}
	if err = page.HeaderOf(header).Check(cfg.Layout); err != nil {
		return nil, errors.WithStack(err)
	}

	if b.cache, err = newCache(cfg.CachePages); err != nil {
		return nil, err
	}
	b.log, err = wal.Open(log, shadow, wal.Options{
		Compression: cfg.Compression,
		Retry:       cfg.Retry,
		Logger:      cfg.Logger,
	})
	if err != nil {
		b.cache.Close(b.logger)
		return nil, err
	}

	b.logger.WithFields(logrus.Fields{
		"layout":  cfg.Layout,
		"records": stats.Records,
		"bytes":   stats.Bytes,
	}).Info("backend: store opened")
	return b, nil
}

func newBackend(data pagestore.File, cfg Config) *Backend {
	return &Backend{
		cfg:      cfg,
		data:     pagefile.New(data),
		logger:   cfg.Logger,
		requests: make(chan *request, cfg.QueueDepth),
		wake:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Layout returns the layout of the store.
func (b *Backend) Layout() page.Layout {
	return b.cfg.Layout
}

// Done is closed when the actor has exited.
func (b *Backend) Done() <-chan struct{} {
	return b.done
}

// Err returns the error that terminated the actor, if any.
func (b *Backend) Err() error {
	select {
	case <-b.done:
		return b.err
	default:
		return nil
	}
}

// Close asks the actor to stop after the current batch and waits for it.
// It returns the error that terminated the actor, if any.
func (b *Backend) Close() error {
	b.once.Do(func() {
		b.stop.Store(true)
		close(b.wake)
	})
	<-b.done
	return b.err
}

func (b *Backend) run() {
	defer b.shutdown()
	for !b.stop.Load() {
		select {
		case req := <-b.requests:
			b.batch(req)
		case <-b.wake:
		}
	}
}

func (b *Backend) shutdown() {
	if err := b.log.Close(); err != nil && b.err == nil {
		b.err = err
	}
	b.cache.Close(b.logger)
	close(b.done)

	// requests queued behind the last batch
	for {
		select {
		case req := <-b.requests:
			req.reply <- result{err: ErrClosed}
		default:
			return
		}
	}
}

// fail terminates the actor after the current batch.
func (b *Backend) fail(err error) {
	b.logger.WithError(err).Error("backend: actor terminated")
	b.err = err
	b.stop.Store(true)
}

// batch runs first and as many queued requests as arrive within the batch
// window, then commits them.
func (b *Backend) batch(first *request) {
	start := time.Now()
	o := bptree.New(b.cfg.Layout, b.cache, b.data)
	reqs := []*request{first}
	first.exec(o)
	failed := first.res.err
	culprit := first

	timer := time.NewTimer(b.cfg.IdleWait)
	defer timer.Stop()
collect:
	for failed == nil && len(reqs) < b.cfg.MaxBatch && time.Since(start) < b.cfg.BatchWindow {
		var req *request
		select {
		case req = <-b.requests:
		default:
			timer.Reset(b.cfg.IdleWait)
			select {
			case req = <-b.requests:
			case <-timer.C:
				break collect
			case <-b.wake:
				break collect
			}
		}
		reqs = append(reqs, req)
		req.exec(o)
		if req.res.err != nil {
			failed, culprit = req.res.err, req
		}
	}

	b.batches++
	logger := b.logger.WithFields(logrus.Fields{"batch": b.batches, "requests": len(reqs)})
	if failed == nil {
		culprit = nil
		failed = b.commit(o.Done(), logger)
	}
	if failed != nil {
		logger.WithError(failed).Warn("backend: batch failed")
		b.reply(reqs, culprit, failed)
		return
	}
	logger.WithField("elapsed", time.Since(start)).Debug("backend: batch done")
	b.reply(reqs, nil, nil)
}

// commit makes the pages of done durable and hands them to the cache.
func (b *Backend) commit(done bptree.Done, logger logrus.FieldLogger) error {
	if err := b.log.Commit(done.Updated); err != nil {
		if errors.Is(err, wal.ErrReplayDown) {
			b.fail(err)
		}
		return err
	}
	stale := b.cache.Merge(done)
	logger.WithFields(logrus.Fields{
		"pages": len(done.Updated),
		"read":  len(done.Read),
		"stale": len(stale),
	}).Debug("backend: batch committed")
	if err := b.flush(stale); err != nil {
		err = errors.Wrap(ErrFlushExhausted, err.Error())
		b.fail(err)
		return err
	}
	return nil
}

// flush writes stale pages to the data file in parallel, retrying each.
func (b *Backend) flush(stale map[page.Number]*page.Page) error {
	if len(stale) == 0 {
		return nil
	}
	g := task.WithLimit(b.cfg.FlushWorkers)
	for n, p := range stale {
		g.Go(func() error {
			return b.cfg.Retry.Do(context.Background(), func() error {
				return b.data.WritePage(n, p)
			}, func(err error, wait time.Duration) {
				b.logger.WithError(err).WithField("page", n).Warnf("backend: stale page write failed, retry in %v", wait)
			})
		})
	}
	return g.Wait()
}

func (b *Backend) reply(reqs []*request, culprit *request, err error) {
	for _, req := range reqs {
		res := req.res
		switch {
		case err == nil:
		case req == culprit:
			res = result{err: err}
		default:
			res = result{err: &batchError{cause: err}}
		}
		req.reply <- res
	}
}
