// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package page

import (
	"bytes"
	"fmt"
)

// Leaf is a typed view of a leaf node page.
// Keys are kept in ascending byte order; the value of entry i lives in the
// value array at the same index.
type Leaf struct {
	page *Page
	kw   int
	vw   int
	cap  int
}

// Leaf returns a leaf view of p. It does not check the discriminant.
func (l Layout) Leaf(p *Page) Leaf {
	return Leaf{page: p, kw: l.KeyWidth, vw: l.ValueWidth, cap: l.LeafCap()}
}

// InitLeaf clears p and formats it as an empty leaf.
func (l Layout) InitLeaf(p *Page) Leaf {
	clear(p[:])
	p[0] = kindLeaf
	return l.Leaf(p)
}

// Page returns the underlying page.
func (leaf Leaf) Page() *Page { return leaf.page }

// Len returns the number of entries.
func (leaf Leaf) Len() int { return leaf.page.count() }

// Cap returns the maximum number of entries.
func (leaf Leaf) Cap() int { return leaf.cap }

// Full reports whether an insert would need a split.
func (leaf Leaf) Full() bool { return leaf.Len() >= leaf.cap }

func (leaf Leaf) check(i int) {
	if n := leaf.Len(); i < 0 || i >= n {
		panic(fmt.Errorf("page: leaf index %d out of range [0:%d]", i, n))
	}
}

func (leaf Leaf) keyOff(i int) int { return NodeHeadSize + i*leaf.kw }

func (leaf Leaf) valOff(i int) int { return NodeHeadSize + leaf.cap*leaf.kw + i*leaf.vw }

// Key returns the key at index i. The slice aliases the page.
func (leaf Leaf) Key(i int) []byte {
	leaf.check(i)
	off := leaf.keyOff(i)
	return leaf.page[off : off+leaf.kw : off+leaf.kw]
}

// Value returns the value at index i. The slice aliases the page.
func (leaf Leaf) Value(i int) []byte {
	leaf.check(i)
	off := leaf.valOff(i)
	return leaf.page[off : off+leaf.vw : off+leaf.vw]
}

// SetValue overwrites the value at index i.
func (leaf Leaf) SetValue(i int, val []byte) {
	copy(leaf.Value(i), val)
}

// Search returns the index of the first key >= key, and whether it is equal.
func (leaf Leaf) Search(key []byte) (int, bool) {
	return find(leaf.Len(), func(i int) int {
		off := leaf.keyOff(i)
		return bytes.Compare(key, leaf.page[off:off+leaf.kw])
	})
}

// InsertAt shifts entries [i:] right by one and stores key/val at i.
// The leaf must not be full.
func (leaf Leaf) InsertAt(i int, key, val []byte) {
	n := leaf.Len()
	if n >= leaf.cap {
		panic(fmt.Errorf("page: insert into full leaf (%d entries)", n))
	}
	if i < 0 || i > n {
		panic(fmt.Errorf("page: leaf insert index %d out of range [0:%d]", i, n))
	}
	p, kw, vw := leaf.page, leaf.kw, leaf.vw
	copy(p[leaf.keyOff(i+1):leaf.keyOff(n+1)], p[leaf.keyOff(i):leaf.keyOff(n)])
	copy(p[leaf.keyOff(i):leaf.keyOff(i)+kw], key)
	if vw > 0 {
		copy(p[leaf.valOff(i+1):leaf.valOff(n+1)], p[leaf.valOff(i):leaf.valOff(n)])
		copy(p[leaf.valOff(i):leaf.valOff(i)+vw], val)
	}
	p.setCount(n + 1)
	assertSorted("Leaf.InsertAt", n+1, leaf.Key)
}

// Delete removes the entry at index i.
func (leaf Leaf) Delete(i int) {
	leaf.check(i)
	n := leaf.Len()
	p := leaf.page
	copy(p[leaf.keyOff(i):leaf.keyOff(n-1)], p[leaf.keyOff(i+1):leaf.keyOff(n)])
	clear(p[leaf.keyOff(n-1):leaf.keyOff(n)])
	if leaf.vw > 0 {
		copy(p[leaf.valOff(i):leaf.valOff(n-1)], p[leaf.valOff(i+1):leaf.valOff(n)])
		clear(p[leaf.valOff(n-1):leaf.valOff(n)])
	}
	p.setCount(n - 1)
}

// SplitInsert inserts key/val at index i of a full leaf, moving the upper
// half of the combined entries into right, which must be an empty leaf.
// The left leaf keeps ceil((n+1)/2) entries. It returns a copy of the first
// key of right, the separator to insert into the parent.
func (leaf Leaf) SplitInsert(i int, key, val []byte, right Leaf) (sep []byte) {
	n := leaf.Len()
	if n < leaf.cap {
		panic(fmt.Errorf("page: split of non-full leaf (%d entries)", n))
	}
	if right.Len() != 0 {
		panic(fmt.Errorf("page: split into non-empty leaf (%d entries)", right.Len()))
	}
	kw, vw := leaf.kw, leaf.vw
	total := n + 1
	keys := make([]byte, 0, total*kw)
	keys = append(keys, leaf.page[leaf.keyOff(0):leaf.keyOff(i)]...)
	keys = append(keys, key[:kw]...)
	keys = append(keys, leaf.page[leaf.keyOff(i):leaf.keyOff(n)]...)
	var vals []byte
	if vw > 0 {
		vals = make([]byte, 0, total*vw)
		vals = append(vals, leaf.page[leaf.valOff(0):leaf.valOff(i)]...)
		vals = append(vals, val[:vw]...)
		vals = append(vals, leaf.page[leaf.valOff(i):leaf.valOff(n)]...)
	}

	mid := (total + 1) / 2
	leaf.fill(keys[:mid*kw], vals[:mid*vw], mid)
	right.fill(keys[mid*kw:], vals[mid*vw:], total-mid)
	return bytes.Clone(keys[mid*kw : (mid+1)*kw])
}

// Merge appends all entries of right. The caller checks that they fit.
func (leaf Leaf) Merge(right Leaf) {
	n, m := leaf.Len(), right.Len()
	if n+m > leaf.cap {
		panic(fmt.Errorf("page: leaf merge overflows (%d + %d > %d)", n, m, leaf.cap))
	}
	p := leaf.page
	copy(p[leaf.keyOff(n):leaf.keyOff(n+m)], right.page[right.keyOff(0):right.keyOff(m)])
	if leaf.vw > 0 {
		copy(p[leaf.valOff(n):leaf.valOff(n+m)], right.page[right.valOff(0):right.valOff(m)])
	}
	p.setCount(n + m)
}

// Redistribute evens out the entries of leaf and right, its right sibling,
// keeping their order. It returns a copy of the new first key of right.
func (leaf Leaf) Redistribute(right Leaf) (sep []byte) {
	n, m := leaf.Len(), right.Len()
	kw, vw := leaf.kw, leaf.vw
	keys := make([]byte, 0, (n+m)*kw)
	keys = append(keys, leaf.page[leaf.keyOff(0):leaf.keyOff(n)]...)
	keys = append(keys, right.page[right.keyOff(0):right.keyOff(m)]...)
	var vals []byte
	if vw > 0 {
		vals = make([]byte, 0, (n+m)*vw)
		vals = append(vals, leaf.page[leaf.valOff(0):leaf.valOff(n)]...)
		vals = append(vals, right.page[right.valOff(0):right.valOff(m)]...)
	}
	total := n + m
	mid := (total + 1) / 2
	leaf.fill(keys[:mid*kw], vals[:mid*vw], mid)
	right.fill(keys[mid*kw:], vals[mid*vw:], total-mid)
	return bytes.Clone(keys[mid*kw : (mid+1)*kw])
}

func (leaf Leaf) fill(keys, vals []byte, n int) {
	p := leaf.page
	clear(p[NodeHeadSize:])
	copy(p[leaf.keyOff(0):], keys)
	if leaf.vw > 0 {
		copy(p[leaf.valOff(0):], vals)
	}
	p.setCount(n)
}
