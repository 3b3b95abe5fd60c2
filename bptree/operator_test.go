package bptree

import (
	"encoding/binary"
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dacapoday/pagestore/internal/pagefile"
	"github.com/dacapoday/pagestore/mem"
	"github.com/dacapoday/pagestore/page"
)

func newFile(t *testing.T, l page.Layout) (*pagefile.File, *mem.File) {
	t.Helper()
	m := new(mem.File)
	f := pagefile.New(m)
	h, root := page.Bootstrap(l)
	require.NoError(t, f.WritePage(page.HeaderNumber, h))
	require.NoError(t, f.WritePage(1, root))
	return f, m
}

func commit(t *testing.T, f *pagefile.File, op *Operator) Done {
	t.Helper()
	done := op.Done()
	for n, p := range done.Updated {
		require.NoError(t, f.WritePage(n, p))
	}
	return done
}

func idKey(v uint64) []byte {
	return page.IDFromUint64(v).Bytes()
}

// wideKey makes keys large enough to build deep trees from few entries.
func wideKey(v uint64) []byte {
	key := make([]byte, 256)
	binary.BigEndian.PutUint64(key, v)
	return key
}

func scan(t *testing.T, op *Operator, limit int) (keys [][]byte) {
	t.Helper()
	var start []byte
	for {
		entries, err := op.Next(start, limit)
		require.NoError(t, err)
		if len(entries) == 0 {
			return
		}
		for _, e := range entries {
			keys = append(keys, e.Key)
		}
		start = entries[len(entries)-1].Key
	}
}

func requireKeyNotFoundPanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		err, ok := recover().(error)
		require.True(t, ok, "expected a panic with an error")
		require.ErrorIs(t, err, ErrKeyNotFound)
	}()
	f()
}

func TestNextAscending(t *testing.T) {
	f, _ := newFile(t, page.IDSet)
	r := rand.New(rand.NewPCG(1, 2))
	want := make(map[uint64]bool)

	op := New(page.IDSet, nil, f)
	for i := range 5000 {
		v := r.Uint64()
		want[v] = true
		require.NoError(t, op.Insert(idKey(v), nil))
		if i%500 == 499 {
			commit(t, f, op)
			op = New(page.IDSet, nil, f)
		}
	}

	keys := scan(t, op, 100)
	require.Len(t, keys, len(want))
	for i, key := range keys {
		if i > 0 {
			require.Negative(t, page.IDFromBytes(keys[i-1]).Compare(page.IDFromBytes(key)))
		}
		require.True(t, want[page.IDFromBytes(key).Lo])
	}

	all, err := op.Next(nil, 1<<20)
	require.NoError(t, err)
	require.Len(t, all, len(want))
}

func TestNextDefaultLimit(t *testing.T) {
	f, _ := newFile(t, page.IDSet)
	op := New(page.IDSet, nil, f)
	for v := range uint64(1000) {
		require.NoError(t, op.Insert(idKey(v), nil))
	}
	entries, err := op.Next(nil, 0)
	require.NoError(t, err)
	require.Len(t, entries, page.IDSet.LeafCap())

	entries, err = op.Next(idKey(997), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, idKey(998), entries[0].Key)

	entries, err = op.Next(idKey(999), 0)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestInsertContainsDelete(t *testing.T) {
	f, _ := newFile(t, page.IDSet)
	op := New(page.IDSet, nil, f)

	for v := range uint64(2000) {
		require.NoError(t, op.Insert(idKey(v*3), nil))
	}
	commit(t, f, op)

	op = New(page.IDSet, nil, f)
	for v := range uint64(2000) {
		ok, err := op.Contains(idKey(v * 3))
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = op.Contains(idKey(v*3 + 1))
		require.NoError(t, err)
		require.False(t, ok)
	}

	for v := uint64(0); v < 2000; v += 2 {
		require.NoError(t, op.Delete(idKey(v*3)))
	}
	for v := range uint64(2000) {
		ok, err := op.Contains(idKey(v * 3))
		require.NoError(t, err)
		require.Equal(t, v%2 == 1, ok)
	}
	require.Len(t, scan(t, op, 0), 1000)
}

func TestDeleteAbsentPanics(t *testing.T) {
	f, _ := newFile(t, page.IDSet)
	op := New(page.IDSet, nil, f)
	requireKeyNotFoundPanic(t, func() { _ = op.Delete(idKey(7)) })

	require.NoError(t, op.Insert(idKey(7), nil))
	require.NoError(t, op.Delete(idKey(7)))
	requireKeyNotFoundPanic(t, func() { _ = op.Delete(idKey(7)) })
}

func TestInsertOverwrite(t *testing.T) {
	l := page.Layout{KeyWidth: 8, ValueWidth: 8}
	f, _ := newFile(t, l)
	op := New(l, nil, f)

	key := binary.BigEndian.AppendUint64(nil, 42)
	require.NoError(t, op.Insert(key, []byte("aaaaaaaa")))
	require.NoError(t, op.Insert(key, []byte("bbbbbbbb")))

	val, ok, err := op.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("bbbbbbbb"), val)

	_, ok, err = op.Get(binary.BigEndian.AppendUint64(nil, 43))
	require.NoError(t, err)
	require.False(t, ok)

	commit(t, f, op)
	op = New(l, nil, f)
	require.NoError(t, op.Insert(key, []byte("bbbbbbbb")))
	require.False(t, op.Dirty())
}

func TestWidthErrors(t *testing.T) {
	l := page.Layout{KeyWidth: 8, ValueWidth: 4}
	f, _ := newFile(t, l)
	op := New(l, nil, f)

	require.ErrorIs(t, op.Insert([]byte("short"), []byte("vvvv")), ErrKeyWidth)
	require.ErrorIs(t, op.Insert([]byte("12345678"), []byte("v")), ErrValueWidth)
	_, err := op.Contains([]byte("x"))
	require.ErrorIs(t, err, ErrKeyWidth)
	_, _, err = op.Get(nil)
	require.ErrorIs(t, err, ErrKeyWidth)
	_, err = op.Next([]byte("x"), 1)
	require.ErrorIs(t, err, ErrKeyWidth)
	require.ErrorIs(t, op.Delete([]byte("x")), ErrKeyWidth)
}

func TestDeleteAllCollapsesAndReusesPages(t *testing.T) {
	l := page.Layout{KeyWidth: 256, ValueWidth: 8}
	f, _ := newFile(t, l)
	r := rand.New(rand.NewPCG(3, 4))
	order := r.Perm(3000)
	val := make([]byte, 8)

	op := New(l, nil, f)
	for _, v := range order {
		require.NoError(t, op.Insert(wideKey(uint64(v)), val))
	}
	commit(t, f, op)

	op = New(l, nil, f)
	grown := op.header().NextPage()
	require.False(t, op.load(op.header().Root()).IsLeaf())

	shuffled := slices.Clone(order)
	r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	for _, v := range shuffled {
		require.NoError(t, op.Delete(wideKey(uint64(v))))
	}
	require.Empty(t, scan(t, op, 0))
	require.True(t, op.load(op.header().Root()).IsLeaf())

	free, err := op.FreePages()
	require.NoError(t, err)
	require.Equal(t, int(grown)-2, free)
	commit(t, f, op)

	op = New(l, nil, f)
	for _, v := range order {
		require.NoError(t, op.Insert(wideKey(uint64(v)), val))
	}
	require.Equal(t, grown, op.header().NextPage())
	size, err := op.FileSize()
	require.NoError(t, err)
	require.Equal(t, grown.Offset(), size)
}

func TestRandomAgainstModel(t *testing.T) {
	l := page.Layout{KeyWidth: 256, ValueWidth: 8}
	f, _ := newFile(t, l)
	r := rand.New(rand.NewPCG(5, 6))
	model := make(map[uint64]uint64)

	op := New(l, nil, f)
	for i := range 20000 {
		v := r.Uint64N(2000)
		if _, ok := model[v]; ok && r.IntN(2) == 0 {
			delete(model, v)
			require.NoError(t, op.Delete(wideKey(v)))
		} else {
			model[v] = uint64(i)
			require.NoError(t, op.Insert(wideKey(v), binary.LittleEndian.AppendUint64(nil, uint64(i))))
		}
		if i%1000 == 999 {
			commit(t, f, op)
			op = New(l, nil, f)
		}
	}

	want := make([]uint64, 0, len(model))
	for v := range model {
		want = append(want, v)
	}
	slices.Sort(want)

	entries, err := op.Next(nil, len(model)+1)
	require.NoError(t, err)
	require.Len(t, entries, len(want))
	for i, e := range entries {
		require.Equal(t, want[i], binary.BigEndian.Uint64(e.Key))
		require.Equal(t, model[want[i]], binary.LittleEndian.Uint64(e.Val))
	}
}

type snapshot map[page.Number]*page.Page

func (s snapshot) Get(n page.Number) (*page.Page, bool) {
	p, ok := s[n]
	return p, ok
}

func TestDoneSets(t *testing.T) {
	f, _ := newFile(t, page.IDSet)
	op := New(page.IDSet, nil, f)
	ok, err := op.Contains(idKey(1))
	require.NoError(t, err)
	require.False(t, ok)
	done := op.Done()
	require.Empty(t, done.Updated)
	require.Len(t, done.Read, 2)
	require.Contains(t, done.Read, page.HeaderNumber)
	require.Contains(t, done.Read, page.Number(1))

	snap := snapshot(done.Read)
	saved := make(map[page.Number]page.Page)
	for n, p := range snap {
		saved[n] = *p
	}

	op = New(page.IDSet, snap, f)
	for v := range uint64(300) {
		require.NoError(t, op.Insert(idKey(v), nil))
	}
	done = op.Done()
	require.Empty(t, done.Read)
	require.Contains(t, done.Updated, page.HeaderNumber)
	require.Len(t, done.Updated, 4)
	for n, p := range snap {
		require.Equal(t, saved[n], *p, "snapshot page %d modified", n)
	}
}

func TestLoadError(t *testing.T) {
	f, m := newFile(t, page.IDSet)
	failure := errors.New("injected")
	m.SetFault(func(op mem.Op, _ int64, _ int) error {
		if op == mem.OpRead {
			return failure
		}
		return nil
	})

	op := New(page.IDSet, nil, f)
	require.ErrorIs(t, op.Insert(idKey(1), nil), failure)
	_, err := op.Contains(idKey(1))
	require.ErrorIs(t, err, failure)
	_, err = op.FileSize()
	require.ErrorIs(t, err, failure)
}

func TestPathUp(t *testing.T) {
	path := Path{{Page: 1, Count: 3, Index: 2}, {Page: 2, Count: 2, Index: 1}}
	require.Equal(t, -1, path.Up())

	path = Path{{Page: 1, Count: 3, Index: 0}, {Page: 2, Count: 2, Index: 1}}
	require.Equal(t, 0, path.Up())
	require.Equal(t, 1, path[0].Index)
}
