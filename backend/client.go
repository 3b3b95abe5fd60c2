// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"

	"github.com/pkg/errors"

	"github.com/dacapoday/pagestore/bptree"
)

// submit queues req and waits for its reply. A caller that gives up
// through ctx leaves the request to run; its reply is dropped.
func (b *Backend) submit(ctx context.Context, req *request) result {
	select {
	case <-b.done:
		return result{err: ErrClosed}
	default:
	}
	select {
	case b.requests <- req:
	case <-b.done:
		return result{err: ErrClosed}
	case <-ctx.Done():
		return result{err: ctx.Err()}
	}
	select {
	case res := <-req.reply:
		return res
	case <-b.done:
		select {
		case res := <-req.reply:
			return res
		default:
			return result{err: ErrClosed}
		}
	case <-ctx.Done():
		return result{err: ctx.Err()}
	}
}

func (b *Backend) checkKey(key []byte) error {
	if len(key) != b.cfg.Layout.KeyWidth {
		return errors.Wrapf(bptree.ErrKeyWidth, "got %d bytes, want %d", len(key), b.cfg.Layout.KeyWidth)
	}
	return nil
}

// Insert stores val under key, replacing any previous value.
func (b *Backend) Insert(ctx context.Context, key, val []byte) error {
	if err := b.checkKey(key); err != nil {
		return err
	}
	if len(val) != b.cfg.Layout.ValueWidth {
		return errors.Wrapf(bptree.ErrValueWidth, "got %d bytes, want %d", len(val), b.cfg.Layout.ValueWidth)
	}
	return b.submit(ctx, newRequest(opInsert, key, val)).err
}

// Delete removes key. Deleting an absent key fails the request with an
// error wrapping ErrKeyNotFound, and the rest of its batch with
// ErrBatchFailed.
func (b *Backend) Delete(ctx context.Context, key []byte) error {
	if err := b.checkKey(key); err != nil {
		return err
	}
	return b.submit(ctx, newRequest(opDelete, key, nil)).err
}

// Contains reports whether key is stored.
func (b *Backend) Contains(ctx context.Context, key []byte) (bool, error) {
	if err := b.checkKey(key); err != nil {
		return false, err
	}
	res := b.submit(ctx, newRequest(opContains, key, nil))
	return res.ok, res.err
}

// Get returns the value stored under key. ok is false when key is absent.
func (b *Backend) Get(ctx context.Context, key []byte) (val []byte, ok bool, err error) {
	if err = b.checkKey(key); err != nil {
		return
	}
	res := b.submit(ctx, newRequest(opGet, key, nil))
	return res.val, res.ok, res.err
}

// Next returns up to limit entries with keys after start in ascending
// order; a nil start begins at the smallest key.
func (b *Backend) Next(ctx context.Context, start []byte, limit int) ([]bptree.Entry, error) {
	if start != nil {
		if err := b.checkKey(start); err != nil {
			return nil, err
		}
	}
	req := newRequest(opNext, start, nil)
	req.limit = limit
	res := b.submit(ctx, req)
	return res.entries, res.err
}

// FileSize returns the logical size of the data file in bytes.
func (b *Backend) FileSize(ctx context.Context) (int64, error) {
	res := b.submit(ctx, newRequest(opFileSize, nil, nil))
	return res.size, res.err
}
