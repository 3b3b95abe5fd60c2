// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dacapoday/pagestore/bptree"
	"github.com/dacapoday/pagestore/page"
)

// entry is a cached page. Cached pages are never modified; dirty ones
// differ from the data file.
type entry struct {
	page  *page.Page
	dirty bool
}

// cache holds recent pages between batches. Pages pushed out by a merge,
// whether evicted, refused by the admission policy or dropped, are
// collected as stale so the dirty ones can be written to the data file.
type cache struct {
	pages *ristretto.Cache[uint64, entry]

	mu    sync.Mutex
	stale map[page.Number]*page.Page
}

func newCache(pages int64) (*cache, error) {
	c := &cache{stale: make(map[page.Number]*page.Page)}
	var err error
	c.pages, err = ristretto.NewCache(&ristretto.Config[uint64, entry]{
		NumCounters:        max(pages*10, 100),
		MaxCost:            max(pages, 1),
		BufferItems:        64,
		Metrics:            true,
		IgnoreInternalCost: true,
		OnEvict:            c.collect,
		OnReject:           c.collect,
	})
	if err != nil {
		return nil, errors.Wrap(err, "backend: page cache")
	}
	return c, nil
}

func (c *cache) collect(item *ristretto.Item[entry]) {
	if !item.Value.dirty {
		return
	}
	c.mu.Lock()
	c.stale[page.Number(item.Key)] = item.Value.page
	c.mu.Unlock()
}

// Get implements bptree.Snapshot.
func (c *cache) Get(n page.Number) (*page.Page, bool) {
	e, ok := c.pages.Get(uint64(n))
	return e.page, ok
}

// Merge stores the outcome of a batch and returns the dirty pages that
// did not stay in the cache.
func (c *cache) Merge(done bptree.Done) map[page.Number]*page.Page {
	for n, p := range done.Updated {
		if !c.pages.Set(uint64(n), entry{page: p, dirty: true}, 1) {
			c.mu.Lock()
			c.stale[n] = p
			c.mu.Unlock()
		}
	}
	for n, p := range done.Read {
		c.pages.Set(uint64(n), entry{page: p}, 1)
	}
	c.pages.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.stale) == 0 {
		return nil
	}
	stale := c.stale
	c.stale = make(map[page.Number]*page.Page)
	return stale
}

// Close releases the cache and logs its statistics.
func (c *cache) Close(logger logrus.FieldLogger) {
	if m := c.pages.Metrics; m != nil {
		logger.WithFields(logrus.Fields{
			"hits":    m.Hits(),
			"misses":  m.Misses(),
			"ratio":   m.Ratio(),
			"evicted": m.KeysEvicted(),
			"dropped": m.SetsDropped(),
		}).Info("backend: page cache closed")
	}
	c.pages.Close()
}
