package backend

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dacapoday/pagestore"
	"github.com/dacapoday/pagestore/internal/retry"
	"github.com/dacapoday/pagestore/mem"
	"github.com/dacapoday/pagestore/page"
	"github.com/dacapoday/pagestore/wal"
)

type files struct {
	data, log, shadow mem.File
}

func testConfig() Config {
	logger, _ := test.NewNullLogger()
	cfg := DefaultConfig(page.IDSet)
	cfg.Logger = logger
	cfg.Retry = retry.Policy{Initial: time.Microsecond, Max: 10 * time.Microsecond, Attempts: 3}
	return cfg
}

func openTest(t *testing.T, f *files, cfg Config) *Backend {
	t.Helper()
	b, err := Open(&f.data, &f.log, &f.shadow, cfg)
	require.NoError(t, err)
	return b
}

// openPaused returns a Backend whose actor has not started, so requests
// queued before start land in one batch.
func openPaused(t *testing.T, f *files, cfg Config) (*Backend, func()) {
	t.Helper()
	b, err := open(&f.data, &f.log, &f.shadow, cfg)
	require.NoError(t, err)
	return b, func() { go b.run() }
}

func key(v uint64) []byte {
	return page.IDFromUint64(v).Bytes()
}

func enqueue(b *Backend, op opcode, k []byte) *request {
	req := newRequest(op, k, nil)
	b.requests <- req
	return req
}

func TestConcurrentClients(t *testing.T) {
	var f files
	b := openTest(t, &f, testConfig())
	ctx := context.Background()

	var wg sync.WaitGroup
	for c := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				assert.NoError(t, b.Insert(ctx, key(uint64(i*20+c)), nil))
			}
		}()
	}
	wg.Wait()

	for v := range uint64(1000) {
		ok, err := b.Contains(ctx, key(v))
		require.NoError(t, err)
		require.True(t, ok, "id %d", v)
	}
	for v := uint64(0); v < 1000; v += 2 {
		require.NoError(t, b.Delete(ctx, key(v)))
	}

	var start []byte
	var got []uint64
	for {
		entries, err := b.Next(ctx, start, 100)
		require.NoError(t, err)
		if len(entries) == 0 {
			break
		}
		for _, e := range entries {
			got = append(got, page.IDFromBytes(e.Key).Lo)
		}
		start = entries[len(entries)-1].Key
	}
	require.Len(t, got, 500)
	for i, v := range got {
		require.Equal(t, uint64(2*i+1), v)
	}
	require.NoError(t, b.Close())
}

func TestReopen(t *testing.T) {
	var f files
	cfg := testConfig()
	cfg.Layout = page.Layout{KeyWidth: 16, ValueWidth: 8}
	b := openTest(t, &f, cfg)
	ctx := context.Background()

	size, err := b.FileSize(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2*page.Size), size)

	for v := range uint64(600) {
		require.NoError(t, b.Insert(ctx, key(v), []byte("value-00")))
	}
	require.NoError(t, b.Insert(ctx, key(5), []byte("value-05")))
	require.NoError(t, b.Close())
	require.ErrorIs(t, b.Insert(ctx, key(1), []byte("value-01")), ErrClosed)
	require.NoError(t, b.Close())

	b = openTest(t, &f, cfg)
	val, ok, err := b.Get(ctx, key(5))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("value-05"), val)
	_, ok, err = b.Get(ctx, key(600))
	require.NoError(t, err)
	require.False(t, ok)
	size, err = b.FileSize(ctx)
	require.NoError(t, err)
	require.Greater(t, size, int64(2*page.Size))
	require.NoError(t, b.Close())

	cfg.Layout = page.IDSet
	_, err = Open(&f.data, &f.log, &f.shadow, cfg)
	require.ErrorIs(t, err, page.ErrLayoutMismatch)
}

func TestWidthChecked(t *testing.T) {
	var f files
	b := openTest(t, &f, testConfig())
	defer b.Close()
	ctx := context.Background()
	require.ErrorIs(t, b.Insert(ctx, []byte("short"), nil), pagestore.ErrKeyWidth)
	require.ErrorIs(t, b.Insert(ctx, key(1), []byte("v")), pagestore.ErrValueWidth)
	_, err := b.Next(ctx, []byte("x"), 1)
	require.ErrorIs(t, err, pagestore.ErrKeyWidth)
}

func TestBatchFailsAsAWhole(t *testing.T) {
	var f files
	cfg := testConfig()
	cfg.BatchWindow = time.Second
	b, start := openPaused(t, &f, cfg)
	defer b.Close()

	reqs := []*request{
		enqueue(b, opInsert, key(1)),
		enqueue(b, opInsert, key(2)),
		enqueue(b, opContains, key(1)),
	}
	failure := errors.New("log device failed")
	f.log.SetFault(func(op mem.Op, _ int64, _ int) error {
		if op == mem.OpWrite {
			return failure
		}
		return nil
	})
	start()
	for _, req := range reqs {
		err := (<-req.reply).err
		require.ErrorIs(t, err, ErrBatchFailed)
		require.ErrorIs(t, err, failure)
	}

	f.log.SetFault(nil)
	ctx := context.Background()
	ok, err := b.Contains(ctx, key(1))
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, b.Insert(ctx, key(1), nil))
	ok, err = b.Contains(ctx, key(1))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDeleteAbsentFailsItsBatch(t *testing.T) {
	var f files
	b, start := openPaused(t, &f, testConfig())
	defer b.Close()

	before := enqueue(b, opInsert, key(1))
	absent := enqueue(b, opDelete, key(2))
	after := enqueue(b, opInsert, key(3))
	start()

	err := (<-before.reply).err
	require.ErrorIs(t, err, ErrBatchFailed)
	require.ErrorIs(t, err, pagestore.ErrKeyNotFound)

	err = (<-absent.reply).err
	require.ErrorIs(t, err, pagestore.ErrKeyNotFound)
	require.NotErrorIs(t, err, ErrBatchFailed)

	require.NoError(t, (<-after.reply).err)

	ctx := context.Background()
	ok, err := b.Contains(ctx, key(1))
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = b.Contains(ctx, key(3))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSmallCacheFlushesStalePages(t *testing.T) {
	var f files
	cfg := testConfig()
	cfg.CachePages = 4
	b := openTest(t, &f, cfg)
	ctx := context.Background()

	for v := range uint64(3000) {
		require.NoError(t, b.Insert(ctx, key(v*7), nil))
	}
	for v := range uint64(3000) {
		ok, err := b.Contains(ctx, key(v*7))
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.NoError(t, b.Close())

	b = openTest(t, &f, cfg)
	defer b.Close()
	entries, err := b.Next(ctx, nil, 5000)
	require.NoError(t, err)
	require.Len(t, entries, 3000)
}

func TestFlushExhaustionStopsActor(t *testing.T) {
	var f files
	cfg := testConfig()
	cfg.CachePages = 1
	b := openTest(t, &f, cfg)

	failure := errors.New("data device failed")
	f.data.SetFault(func(op mem.Op, _ int64, _ int) error {
		if op == mem.OpWrite {
			return failure
		}
		return nil
	})
	ctx := context.Background()
	err := b.Insert(ctx, key(1), nil)
	require.ErrorIs(t, err, ErrBatchFailed)
	require.ErrorIs(t, err, ErrFlushExhausted)

	<-b.Done()
	require.ErrorIs(t, b.Err(), ErrFlushExhausted)
	require.ErrorIs(t, b.Insert(ctx, key(2), nil), ErrClosed)
	require.ErrorIs(t, b.Close(), ErrFlushExhausted)
}

func TestFlushExhaustionFailsWholeBatch(t *testing.T) {
	var f files
	cfg := testConfig()
	cfg.CachePages = 1
	cfg.BatchWindow = time.Second
	b, start := openPaused(t, &f, cfg)

	reqs := []*request{
		enqueue(b, opInsert, key(1)),
		enqueue(b, opInsert, key(2)),
		enqueue(b, opContains, key(1)),
	}
	f.data.SetFault(func(op mem.Op, _ int64, _ int) error {
		if op == mem.OpWrite {
			return errors.New("data device failed")
		}
		return nil
	})
	start()
	for _, req := range reqs {
		err := (<-req.reply).err
		require.ErrorIs(t, err, ErrBatchFailed)
		require.ErrorIs(t, err, ErrFlushExhausted)
	}

	<-b.Done()
	require.ErrorIs(t, b.Close(), ErrFlushExhausted)
}

func TestReplayDownStopsActor(t *testing.T) {
	var f files
	b := openTest(t, &f, testConfig())
	f.shadow.SetFault(func(op mem.Op, _ int64, _ int) error {
		if op == mem.OpWrite {
			return errors.New("shadow device failed")
		}
		return nil
	})

	ctx := context.Background()
	var err error
	for v := uint64(0); err == nil; v++ {
		err = b.Insert(ctx, key(v), nil)
		time.Sleep(time.Millisecond)
	}
	require.ErrorIs(t, err, wal.ErrReplayDown)
	<-b.Done()
	require.ErrorIs(t, b.Close(), wal.ErrReplayDown)
}

func TestCanceledCaller(t *testing.T) {
	var f files
	b, start := openPaused(t, &f, testConfig())
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := b.Contains(ctx, key(1))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	start()
	ok, err := b.Contains(context.Background(), key(1))
	require.NoError(t, err)
	require.False(t, ok)
}
