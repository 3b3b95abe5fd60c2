// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package page

import (
	"bytes"
	"fmt"
)

// Internal is a typed view of an internal node page.
//
// An internal node with n keys has n+1 children. Every key reachable
// through child i+1 is >= key i, so lookups follow the child after the
// last separator that is <= the key.
type Internal struct {
	page *Page
	kw   int
	cap  int
}

// Internal returns an internal node view of p. It does not check the discriminant.
func (l Layout) Internal(p *Page) Internal {
	return Internal{page: p, kw: l.KeyWidth, cap: l.InternalCap()}
}

// InitInternal clears p and formats it as an internal node with one
// separator and two children.
func (l Layout) InitInternal(p *Page, left Number, sep []byte, right Number) Internal {
	clear(p[:])
	p[0] = kindInternal
	node := l.Internal(p)
	copy(p[node.keyOff(0):node.keyOff(1)], sep)
	node.setChild(0, left)
	node.setChild(1, right)
	p.setCount(1)
	return node
}

// Page returns the underlying page.
func (node Internal) Page() *Page { return node.page }

// Len returns the number of separator keys.
func (node Internal) Len() int { return node.page.count() }

// Cap returns the maximum number of separator keys.
func (node Internal) Cap() int { return node.cap }

// Full reports whether an insert would need a split.
func (node Internal) Full() bool { return node.Len() >= node.cap }

func (node Internal) keyOff(i int) int { return NodeHeadSize + i*node.kw }

func (node Internal) childOff(i int) int { return NodeHeadSize + node.cap*node.kw + i*4 }

// Key returns separator i. The slice aliases the page.
func (node Internal) Key(i int) []byte {
	if n := node.Len(); i < 0 || i >= n {
		panic(fmt.Errorf("page: internal key index %d out of range [0:%d]", i, n))
	}
	off := node.keyOff(i)
	return node.page[off : off+node.kw : off+node.kw]
}

// SetKey replaces separator i.
func (node Internal) SetKey(i int, sep []byte) {
	copy(node.Key(i), sep)
}

// Child returns child pointer i.
func (node Internal) Child(i int) Number {
	if n := node.Len(); i < 0 || i > n {
		panic(fmt.Errorf("page: internal child index %d out of range [0:%d]", i, n+1))
	}
	return Number(node.page.u32(node.childOff(i)))
}

func (node Internal) setChild(i int, n Number) {
	node.page.putU32(node.childOff(i), uint32(n))
}

// SetChild replaces child pointer i.
func (node Internal) SetChild(i int, n Number) {
	_ = node.Child(i)
	node.setChild(i, n)
}

// Search returns the index of the child to follow for key: the number of
// separators that are <= key.
func (node Internal) Search(key []byte) int {
	i, found := find(node.Len(), func(i int) int {
		off := node.keyOff(i)
		return bytes.Compare(key, node.page[off:off+node.kw])
	})
	if found {
		i++
	}
	return i
}

// InsertAt stores sep as key i and right as child i+1, shifting the
// following keys and children. The node must not be full.
func (node Internal) InsertAt(i int, sep []byte, right Number) {
	n := node.Len()
	if n >= node.cap {
		panic(fmt.Errorf("page: insert into full internal node (%d keys)", n))
	}
	if i < 0 || i > n {
		panic(fmt.Errorf("page: internal insert index %d out of range [0:%d]", i, n))
	}
	p := node.page
	copy(p[node.keyOff(i+1):node.keyOff(n+1)], p[node.keyOff(i):node.keyOff(n)])
	copy(p[node.keyOff(i):node.keyOff(i+1)], sep)
	copy(p[node.childOff(i+2):node.childOff(n+2)], p[node.childOff(i+1):node.childOff(n+1)])
	node.setChild(i+1, right)
	p.setCount(n + 1)
	assertSorted("Internal.InsertAt", n+1, node.Key)
}

// RemoveAt removes key i and child i+1.
func (node Internal) RemoveAt(i int) {
	n := node.Len()
	if i < 0 || i >= n {
		panic(fmt.Errorf("page: internal remove index %d out of range [0:%d]", i, n))
	}
	p := node.page
	copy(p[node.keyOff(i):node.keyOff(n-1)], p[node.keyOff(i+1):node.keyOff(n)])
	clear(p[node.keyOff(n-1):node.keyOff(n)])
	copy(p[node.childOff(i+1):node.childOff(n)], p[node.childOff(i+2):node.childOff(n+1)])
	node.setChild(n, Null)
	p.setCount(n - 1)
}

// SplitInsert inserts sep/right at key index i of a full node and moves
// the upper half into right node, which must be freshly initialized.
// Of the n+1 combined keys, the one at index (n+1)/2 is promoted: the
// left node keeps the keys before it and the right node the keys after it.
// It returns a copy of the promoted key.
func (node Internal) SplitInsert(i int, sep []byte, right Number, rnode Internal) (promoted []byte) {
	n := node.Len()
	if n < node.cap {
		panic(fmt.Errorf("page: split of non-full internal node (%d keys)", n))
	}
	kw := node.kw
	p := node.page

	keys := make([]byte, 0, (n+1)*kw)
	keys = append(keys, p[node.keyOff(0):node.keyOff(i)]...)
	keys = append(keys, sep[:kw]...)
	keys = append(keys, p[node.keyOff(i):node.keyOff(n)]...)

	children := make([]Number, 0, n+2)
	for c := 0; c <= i; c++ {
		children = append(children, node.Child(c))
	}
	children = append(children, right)
	for c := i + 1; c <= n; c++ {
		children = append(children, node.Child(c))
	}

	total := n + 1
	mid := total / 2
	promoted = bytes.Clone(keys[mid*kw : (mid+1)*kw])
	node.fill(keys[:mid*kw], children[:mid+1])
	rnode.fill(keys[(mid+1)*kw:], children[mid+1:])
	return
}

// Merge appends sep and all keys and children of right.
// The caller checks that they fit.
func (node Internal) Merge(sep []byte, right Internal) {
	n, m := node.Len(), right.Len()
	if n+1+m > node.cap {
		panic(fmt.Errorf("page: internal merge overflows (%d + 1 + %d > %d)", n, m, node.cap))
	}
	p := node.page
	copy(p[node.keyOff(n):node.keyOff(n+1)], sep)
	copy(p[node.keyOff(n+1):node.keyOff(n+1+m)], right.page[right.keyOff(0):right.keyOff(m)])
	copy(p[node.childOff(n+1):node.childOff(n+2+m)], right.page[right.childOff(0):right.childOff(m+1)])
	p.setCount(n + 1 + m)
}

// Redistribute evens out the keys of node and right, its right sibling
// under separator sep. The combined keys are split like SplitInsert does;
// it returns a copy of the key that becomes the new separator.
func (node Internal) Redistribute(sep []byte, right Internal) (promoted []byte) {
	n, m := node.Len(), right.Len()
	kw := node.kw
	keys := make([]byte, 0, (n+1+m)*kw)
	keys = append(keys, node.page[node.keyOff(0):node.keyOff(n)]...)
	keys = append(keys, sep[:kw]...)
	keys = append(keys, right.page[right.keyOff(0):right.keyOff(m)]...)

	children := make([]Number, 0, n+m+2)
	for c := 0; c <= n; c++ {
		children = append(children, node.Child(c))
	}
	for c := 0; c <= m; c++ {
		children = append(children, right.Child(c))
	}

	mid := (n + 1 + m) / 2
	promoted = bytes.Clone(keys[mid*kw : (mid+1)*kw])
	node.fill(keys[:mid*kw], children[:mid+1])
	right.fill(keys[(mid+1)*kw:], children[mid+1:])
	return
}

func (node Internal) fill(keys []byte, children []Number) {
	p := node.page
	clear(p[NodeHeadSize:])
	p[0] = kindInternal
	copy(p[node.keyOff(0):], keys)
	for i, c := range children {
		node.setChild(i, c)
	}
	p.setCount(len(children) - 1)
}
