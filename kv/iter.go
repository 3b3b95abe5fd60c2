package kv

import (
	"bytes"
	"context"

	"github.com/dacapoday/pagestore/iterator"
)

var _ iterator.Iterator = (*Iter)(nil)

// Iter walks a DB in ascending key order, fetching one leaf worth of
// entries per request. It does not hold a snapshot: every fetch sees the
// store as of that fetch, so writes racing with the walk may or may not
// show up, but keys are always returned in strictly ascending order.
type Iter struct {
	db    *DB
	ctx   context.Context
	limit int

	buf  []Entry
	pos  int
	more bool
	err  error
}

// Iter returns an unpositioned iterator. ctx bounds every fetch.
func (db *DB) Iter(ctx context.Context) *Iter {
	return &Iter{db: db, ctx: ctx, limit: db.Layout().LeafCap()}
}

// Valid returns true if positioned at an entry.
func (it *Iter) Valid() bool {
	return it.err == nil && it.pos < len(it.buf)
}

// Error returns the error that stopped the walk.
func (it *Iter) Error() error {
	return it.err
}

// Key returns the current key.
func (it *Iter) Key() []byte {
	return it.buf[it.pos].Key
}

// Val returns the current value.
func (it *Iter) Val() []byte {
	return it.buf[it.pos].Val
}

// SeekFirst positions at the smallest key.
func (it *Iter) SeekFirst() bool {
	return it.fetch(nil)
}

// Seek positions at the first key >= key.
func (it *Iter) Seek(key []byte) bool {
	prev, ok := predecessor(key)
	if !ok {
		return it.SeekFirst()
	}
	return it.fetch(prev)
}

// Next advances to the following key.
func (it *Iter) Next() bool {
	if !it.Valid() {
		return false
	}
	if it.pos++; it.pos < len(it.buf) {
		return true
	}
	if !it.more {
		return false
	}
	return it.fetch(it.buf[len(it.buf)-1].Key)
}

// Close drops the buffered entries.
func (it *Iter) Close() {
	it.buf, it.pos, it.more = nil, 0, false
}

func (it *Iter) fetch(after []byte) bool {
	it.buf, it.pos, it.more = nil, 0, false
	it.buf, it.err = it.db.Next(it.ctx, after, it.limit)
	if it.err != nil {
		it.buf = nil
		return false
	}
	it.more = len(it.buf) == it.limit
	return len(it.buf) > 0
}

// predecessor returns the fixed-width key immediately below key, or false
// when key is all zeros.
func predecessor(key []byte) ([]byte, bool) {
	if len(bytes.Trim(key, "\x00")) == 0 {
		return nil, false
	}
	prev := bytes.Clone(key)
	for i := len(prev) - 1; i >= 0; i-- {
		if prev[i] > 0 {
			prev[i]--
			break
		}
		prev[i] = 0xff
	}
	return prev, true
}
