// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package bptree

import (
	"bytes"
	"fmt"

	"github.com/dacapoday/pagestore/page"
)

// Operator applies operations to one version of a tree.
//
// Page lookups try, in order, the pages the Operator produced, the pages it
// read, the snapshot and finally the file. Changes are copy-on-write: a
// page is copied into the updated set the first time it is modified.
type Operator struct {
	layout  page.Layout
	snap    Snapshot
	file    Reader
	updated map[page.Number]*page.Page
	read    map[page.Number]*page.Page
}

// New returns an Operator over the tree stored in file, as seen through
// snap. snap may be nil.
func New(layout page.Layout, snap Snapshot, file Reader) *Operator {
	if snap == nil {
		snap = emptySnapshot{}
	}
	return &Operator{
		layout:  layout,
		snap:    snap,
		file:    file,
		updated: make(map[page.Number]*page.Page),
		read:    make(map[page.Number]*page.Page),
	}
}

// Layout returns the layout of the tree.
func (op *Operator) Layout() page.Layout {
	return op.layout
}

// Done returns the pages produced and read so far. The Operator must not be
// used afterwards.
func (op *Operator) Done() Done {
	done := Done{Updated: op.updated, Read: op.read}
	op.updated, op.read = nil, nil
	return done
}

// Dirty reports whether the Operator changed any page.
func (op *Operator) Dirty() bool {
	return len(op.updated) > 0
}

// loadError carries a read failure out of the tree walk.
type loadError struct{ err error }

func (op *Operator) catch(err *error) {
	switch v := recover().(type) {
	case nil:
	case loadError:
		*err = v.err
	default:
		panic(v)
	}
}

func (op *Operator) load(n page.Number) *page.Page {
	if p, ok := op.updated[n]; ok {
		return p
	}
	if p, ok := op.read[n]; ok {
		return p
	}
	if p, ok := op.snap.Get(n); ok {
		return p
	}
	p := new(page.Page)
	if err := op.file.ReadPage(n, p); err != nil {
		panic(loadError{fmt.Errorf("bptree: load page(%d): %w", n, err)})
	}
	op.read[n] = p
	return p
}

// mutable returns a private copy of page n, registered as updated.
func (op *Operator) mutable(n page.Number) *page.Page {
	if p, ok := op.updated[n]; ok {
		return p
	}
	p := op.load(n)
	if r, ok := op.read[n]; ok && r == p {
		delete(op.read, n)
	} else {
		p = p.Clone()
	}
	op.updated[n] = p
	return p
}

// fresh registers a zeroed page at n.
func (op *Operator) fresh(n page.Number) *page.Page {
	p := new(page.Page)
	delete(op.read, n)
	op.updated[n] = p
	return p
}

func (op *Operator) header() page.Header {
	return page.HeaderOf(op.load(page.HeaderNumber))
}

func (op *Operator) mutableHeader() page.Header {
	return page.HeaderOf(op.mutable(page.HeaderNumber))
}

func (op *Operator) checkKey(key []byte) error {
	if len(key) != op.layout.KeyWidth {
		return fmt.Errorf("bptree: %w: got %d bytes, want %d", ErrKeyWidth, len(key), op.layout.KeyWidth)
	}
	return nil
}

func (op *Operator) checkVal(val []byte) error {
	if len(val) != op.layout.ValueWidth {
		return fmt.Errorf("bptree: %w: got %d bytes, want %d", ErrValueWidth, len(val), op.layout.ValueWidth)
	}
	return nil
}

// descend walks from the root to the leaf that owns key, recording the
// internal nodes on the way. A nil key descends to the leftmost leaf.
func (op *Operator) descend(key []byte) (path Path, leaf page.Number) {
	n := op.header().Root()
	for {
		p := op.load(n)
		if p.IsLeaf() {
			return path, n
		}
		node := op.layout.Internal(p)
		i := 0
		if key != nil {
			i = node.Search(key)
		}
		path = append(path, Frame{Page: n, Count: node.Len() + 1, Index: i})
		n = node.Child(i)
	}
}

// Contains reports whether key is in the tree.
func (op *Operator) Contains(key []byte) (ok bool, err error) {
	if err = op.checkKey(key); err != nil {
		return
	}
	defer op.catch(&err)
	_, n := op.descend(key)
	_, ok = op.layout.Leaf(op.load(n)).Search(key)
	return
}

// Get returns a copy of the value stored under key.
func (op *Operator) Get(key []byte) (val []byte, ok bool, err error) {
	if err = op.checkKey(key); err != nil {
		return
	}
	defer op.catch(&err)
	_, n := op.descend(key)
	leaf := op.layout.Leaf(op.load(n))
	i, ok := leaf.Search(key)
	if ok {
		val = bytes.Clone(leaf.Value(i))
	}
	return
}

// Insert stores val under key, overwriting any previous value.
// Splits propagate towards the root; a root split grows the tree.
func (op *Operator) Insert(key, val []byte) (err error) {
	if err = op.checkKey(key); err != nil {
		return
	}
	if err = op.checkVal(val); err != nil {
		return
	}
	defer op.catch(&err)

	path, n := op.descend(key)
	leaf := op.layout.Leaf(op.load(n))
	i, found := leaf.Search(key)
	if found {
		if !bytes.Equal(leaf.Value(i), val) {
			op.layout.Leaf(op.mutable(n)).SetValue(i, val)
		}
		return
	}
	leaf = op.layout.Leaf(op.mutable(n))
	if !leaf.Full() {
		leaf.InsertAt(i, key, val)
		return
	}

	right := op.alloc()
	sep := leaf.SplitInsert(i, key, val, op.layout.InitLeaf(op.fresh(right)))
	for level := len(path) - 1; level >= 0; level-- {
		frame := path[level]
		node := op.layout.Internal(op.mutable(frame.Page))
		if !node.Full() {
			node.InsertAt(frame.Index, sep, right)
			return
		}
		next := op.alloc()
		sep = node.SplitInsert(frame.Index, sep, right, op.layout.Internal(op.fresh(next)))
		right = next
	}

	root := op.alloc()
	h := op.mutableHeader()
	op.layout.InitInternal(op.fresh(root), h.Root(), sep, right)
	h.SetRoot(root)
	return
}

// Delete removes key. The key must be present: deleting an absent key
// panics with an error wrapping ErrKeyNotFound.
//
// A child left with fewer than a quarter of its capacity is merged with a
// sibling when both fit in one page, otherwise the two share their entries
// evenly. The page merged away goes to the free stack, and an internal root
// left without keys is replaced by its only child.
func (op *Operator) Delete(key []byte) (err error) {
	if err = op.checkKey(key); err != nil {
		return
	}
	defer op.catch(&err)

	path, n := op.descend(key)
	i, found := op.layout.Leaf(op.load(n)).Search(key)
	if !found {
		panic(fmt.Errorf("bptree: delete %x: %w", key, ErrKeyNotFound))
	}
	op.layout.Leaf(op.mutable(n)).Delete(i)

	child := n
	for level := len(path) - 1; level >= 0; level-- {
		if !op.underfull(child) || !op.rebalance(path[level]) {
			break
		}
		child = path[level].Page
	}

	root := op.header().Root()
	if p := op.load(root); !p.IsLeaf() {
		if node := op.layout.Internal(p); node.Len() == 0 {
			op.mutableHeader().SetRoot(node.Child(0))
			op.free(root)
		}
	}
	return
}

func (op *Operator) underfull(n page.Number) bool {
	p := op.load(n)
	if p.IsLeaf() {
		leaf := op.layout.Leaf(p)
		return leaf.Len() < max(leaf.Cap()/4, 1)
	}
	node := op.layout.Internal(p)
	return node.Len() < max(node.Cap()/4, 1)
}

// rebalance fixes the underfull child at frame.Index together with an
// adjacent sibling: it merges them when the result fits in one page and
// redistributes their entries otherwise. It reports whether it merged,
// which removes a key from the parent.
func (op *Operator) rebalance(frame Frame) (merged bool) {
	parent := op.layout.Internal(op.load(frame.Page))
	if parent.Len() == 0 {
		return false
	}
	i := frame.Index
	if i == parent.Len() {
		i--
	}
	ln, rn := parent.Child(i), parent.Child(i+1)
	lp, rp := op.load(ln), op.load(rn)

	var sep []byte
	if lp.IsLeaf() {
		left, right := op.layout.Leaf(lp), op.layout.Leaf(rp)
		if merged = left.Len()+right.Len() <= left.Cap(); merged {
			op.layout.Leaf(op.mutable(ln)).Merge(right)
		} else {
			left, right = op.layout.Leaf(op.mutable(ln)), op.layout.Leaf(op.mutable(rn))
			sep = left.Redistribute(right)
		}
	} else {
		left, right := op.layout.Internal(lp), op.layout.Internal(rp)
		key := bytes.Clone(parent.Key(i))
		if merged = left.Len()+1+right.Len() <= left.Cap(); merged {
			op.layout.Internal(op.mutable(ln)).Merge(key, right)
		} else {
			left, right = op.layout.Internal(op.mutable(ln)), op.layout.Internal(op.mutable(rn))
			sep = left.Redistribute(key, right)
		}
	}

	parent = op.layout.Internal(op.mutable(frame.Page))
	if !merged {
		parent.SetKey(i, sep)
		return
	}
	parent.RemoveAt(i)
	op.free(rn)
	return
}

// Next returns up to limit entries with keys strictly greater than start,
// in ascending order. A nil start begins at the smallest key; a limit <= 0
// means one leaf worth of entries.
func (op *Operator) Next(start []byte, limit int) (entries []Entry, err error) {
	if start != nil {
		if err = op.checkKey(start); err != nil {
			return
		}
	}
	if limit <= 0 {
		limit = op.layout.LeafCap()
	}
	defer op.catch(&err)

	path, n := op.descend(start)
	leaf := op.layout.Leaf(op.load(n))
	i := 0
	if start != nil {
		var found bool
		if i, found = leaf.Search(start); found {
			i++
		}
	}
	for len(entries) < limit {
		if i < leaf.Len() {
			entries = append(entries, Entry{
				Key: bytes.Clone(leaf.Key(i)),
				Val: bytes.Clone(leaf.Value(i)),
			})
			i++
			continue
		}
		if n = op.advance(path); n == page.Null {
			break
		}
		leaf, i = op.layout.Leaf(op.load(n)), 0
	}
	return
}

// advance moves path to the next leaf in key order and returns it, or Null
// past the last leaf.
func (op *Operator) advance(path Path) page.Number {
	level := path.Up()
	if level < 0 {
		return page.Null
	}
	n := op.layout.Internal(op.load(path[level].Page)).Child(path[level].Index)
	for level++; level < len(path); level++ {
		node := op.layout.Internal(op.load(n))
		path[level] = Frame{Page: n, Count: node.Len() + 1}
		n = node.Child(0)
	}
	return n
}

// FileSize returns the logical size of the data file: every page the
// allocator has handed out.
func (op *Operator) FileSize() (size int64, err error) {
	defer op.catch(&err)
	return op.header().NextPage().Offset(), nil
}
