// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

// Package page defines the fixed-size on-disk page formats of a store.
//
// Every page is exactly Size bytes. Page 0 is the Header; all other pages are
// tree nodes (Internal or Leaf) or FreeStack nodes. Tree nodes are told apart
// by their first byte, Header and FreeStack pages only through known pointers.
//
// Page use LittleEndian encoding
// NodeHead is {byte[0]:Kind, byte[1]:reserved, byte[2:4]:Count, byte[4:16]:reserved}
// Internal is {NodeHead, Key[cap], Child[cap+1]}, Child is uint32
// Leaf is {NodeHead, Key[cap], Val[cap]}
// Header is {byte[0:4]:FreeTop, byte[4:8]:Root, byte[8:12]:NextPage, byte[12:16]:Magic, byte[16:18]:KeyWidth, byte[18:20]:ValueWidth}
// FreeStack is {byte[0:4]:Next, byte[4:8]:Count, byte[8:4096]:Number[1022]}
package page

import (
	"encoding/binary"
	"fmt"
)

// Size is the size of every page in bytes.
const Size = 4096

// NodeHeadSize is the size of the head shared by Internal and Leaf nodes.
const NodeHeadSize = 16

const (
	kindInternal byte = 0
	kindLeaf     byte = 1
)

// Number addresses a page in a file. Number 0 is the Header page and doubles
// as the null pointer, since no page ever points back to the Header.
type Number uint32

// Null is the null page pointer.
const Null Number = 0

// HeaderNumber is the fixed location of the Header page.
const HeaderNumber Number = 0

// Offset returns the byte offset of the page in its file.
func (n Number) Offset() int64 {
	return int64(n) * Size
}

// Page is an opaque page-sized block.
type Page [Size]byte

// Clone returns a copy of the page.
func (p *Page) Clone() *Page {
	c := *p
	return &c
}

// IsLeaf reports whether the page, read as a tree node, is a leaf.
// A zeroed page reads as an empty internal node.
func (p *Page) IsLeaf() bool {
	return p[0] != kindInternal
}

func (p *Page) count() int {
	return int(binary.LittleEndian.Uint16(p[2:]))
}

func (p *Page) setCount(n int) {
	binary.LittleEndian.PutUint16(p[2:], uint16(n))
}

func (p *Page) u32(off int) uint32 {
	return binary.LittleEndian.Uint32(p[off:])
}

func (p *Page) putU32(off int, v uint32) {
	binary.LittleEndian.PutUint32(p[off:], v)
}

// Layout fixes the key and value widths of a tree and derives the node
// capacities from them.
type Layout struct {
	KeyWidth   int
	ValueWidth int
}

// IDSet is the layout of the ordered set of 128-bit ids:
// 255 entries per leaf, 203 separators per internal node.
var IDSet = Layout{KeyWidth: IDSize}

// LeafCap returns the number of entries a leaf holds.
func (l Layout) LeafCap() int {
	return (Size - NodeHeadSize) / (l.KeyWidth + l.ValueWidth)
}

// InternalCap returns the number of separator keys an internal node holds.
// An internal node holds one more child than keys.
func (l Layout) InternalCap() int {
	return (Size - NodeHeadSize - 4) / (l.KeyWidth + 4)
}

// Validate reports whether both node kinds can hold at least three entries.
func (l Layout) Validate() error {
	if l.KeyWidth < 1 || l.ValueWidth < 0 || l.KeyWidth > 0xFFFF || l.ValueWidth > 0xFFFF {
		return fmt.Errorf("%w: key width %d, value width %d", ErrInvalidLayout, l.KeyWidth, l.ValueWidth)
	}
	if l.LeafCap() < 3 || l.InternalCap() < 3 {
		return fmt.Errorf("%w: key width %d, value width %d leave fewer than 3 entries per node",
			ErrInvalidLayout, l.KeyWidth, l.ValueWidth)
	}
	return nil
}

func (l Layout) String() string {
	return fmt.Sprintf("k%d/v%d", l.KeyWidth, l.ValueWidth)
}

// find returns the first index in [0, n) for which cmp(i) <= 0, and whether
// cmp is zero there.
func find(n int, cmp func(int) int) (int, bool) {
	i, j := 0, n
	for i < j {
		h := int(uint(i+j) >> 1)
		if cmp(h) > 0 {
			i = h + 1
		} else {
			j = h
		}
	}
	return i, i < n && cmp(i) == 0
}
