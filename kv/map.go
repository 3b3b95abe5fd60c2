package kv

import (
	"context"

	"github.com/pkg/errors"

	"github.com/dacapoday/pagestore"
	"github.com/dacapoday/pagestore/page"
)

// Map is a typed view of a DB whose layout matches its codecs.
type Map[K, V any] struct {
	db   *DB
	keys Codec[K]
	vals Codec[V]
}

// Pair is a typed entry.
type Pair[K, V any] struct {
	Key K
	Val V
}

// NewMap returns the typed view of db. The widths of the codecs must
// equal the layout of db.
func NewMap[K, V any](db *DB, keys Codec[K], vals Codec[V]) (*Map[K, V], error) {
	want := page.Layout{KeyWidth: keys.Width(), ValueWidth: vals.Width()}
	if got := db.Layout(); got != want {
		return nil, errors.Wrapf(pagestore.ErrLayoutMismatch, "store is %v, codecs are %v", got, want)
	}
	return &Map[K, V]{db: db, keys: keys, vals: vals}, nil
}

func (m *Map[K, V]) key(k K) []byte {
	b := make([]byte, m.keys.Width())
	m.keys.Put(b, k)
	return b
}

// Insert stores v under k.
func (m *Map[K, V]) Insert(ctx context.Context, k K, v V) error {
	b := make([]byte, m.vals.Width())
	m.vals.Put(b, v)
	return m.db.Insert(ctx, m.key(k), b)
}

// Delete removes k, which must be present.
func (m *Map[K, V]) Delete(ctx context.Context, k K) error {
	return m.db.Delete(ctx, m.key(k))
}

// Contains reports whether k is stored.
func (m *Map[K, V]) Contains(ctx context.Context, k K) (bool, error) {
	return m.db.Contains(ctx, m.key(k))
}

// Get returns the value of k.
func (m *Map[K, V]) Get(ctx context.Context, k K) (v V, ok bool, err error) {
	b, ok, err := m.db.Get(ctx, m.key(k))
	if ok && err == nil {
		v = m.vals.Get(b)
	}
	return
}

// Next returns up to limit pairs with keys after *after, or from the
// smallest key when after is nil.
func (m *Map[K, V]) Next(ctx context.Context, after *K, limit int) ([]Pair[K, V], error) {
	var start []byte
	if after != nil {
		start = m.key(*after)
	}
	entries, err := m.db.Next(ctx, start, limit)
	if err != nil {
		return nil, err
	}
	pairs := make([]Pair[K, V], len(entries))
	for i, e := range entries {
		pairs[i] = Pair[K, V]{m.keys.Get(e.Key), m.vals.Get(e.Val)}
	}
	return pairs, nil
}

// Walk calls fn for each pair in key order until fn returns false.
func (m *Map[K, V]) Walk(ctx context.Context, fn func(K, V) bool) error {
	it := m.db.Iter(ctx)
	defer it.Close()
	for it.SeekFirst(); it.Valid(); it.Next() {
		if !fn(m.keys.Get(it.Key()), m.vals.Get(it.Val())) {
			break
		}
	}
	return it.Error()
}

// Set is an ordered set of IDs kept in an id-set store.
type Set struct {
	m *Map[page.ID, struct{}]
}

// NewSet returns the set view of db, whose layout must be page.IDSet.
func NewSet(db *DB) (*Set, error) {
	m, err := NewMap(db, Codec[page.ID](IDCodec{}), Codec[struct{}](Empty{}))
	if err != nil {
		return nil, err
	}
	return &Set{m}, nil
}

// Insert adds id to the set.
func (s *Set) Insert(ctx context.Context, id page.ID) error {
	return s.m.Insert(ctx, id, struct{}{})
}

// Delete removes id, which must be a member.
func (s *Set) Delete(ctx context.Context, id page.ID) error {
	return s.m.Delete(ctx, id)
}

// Contains reports whether id is a member.
func (s *Set) Contains(ctx context.Context, id page.ID) (bool, error) {
	return s.m.Contains(ctx, id)
}

// Next returns up to limit members greater than *after in ascending order,
// from the smallest member when after is nil.
func (s *Set) Next(ctx context.Context, after *page.ID, limit int) ([]page.ID, error) {
	pairs, err := s.m.Next(ctx, after, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]page.ID, len(pairs))
	for i, p := range pairs {
		ids[i] = p.Key
	}
	return ids, nil
}
