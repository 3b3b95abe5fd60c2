// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package page

import (
	"encoding/binary"
	"fmt"
)

// Magic identifies a store Header page.
var Magic = [4]byte{'P', 'G', 'S', 'T'}

// Header is a typed view of page 0.
type Header struct {
	page *Page
}

// HeaderOf returns a header view of p.
func HeaderOf(p *Page) Header {
	return Header{page: p}
}

// InitHeader clears p and formats it as the Header of an empty tree whose
// root leaf is root. The allocator continues at next.
func InitHeader(p *Page, l Layout, root, next Number) Header {
	clear(p[:])
	h := Header{page: p}
	h.SetRoot(root)
	h.SetNextPage(next)
	copy(p[12:16], Magic[:])
	binary.LittleEndian.PutUint16(p[16:], uint16(l.KeyWidth))
	binary.LittleEndian.PutUint16(p[18:], uint16(l.ValueWidth))
	return h
}

// Page returns the underlying page.
func (h Header) Page() *Page { return h.page }

// FreeTop returns the top node of the free-page stack, or Null.
func (h Header) FreeTop() Number { return Number(h.page.u32(0)) }

func (h Header) SetFreeTop(n Number) { h.page.putU32(0, uint32(n)) }

// Root returns the root node of the tree.
func (h Header) Root() Number { return Number(h.page.u32(4)) }

func (h Header) SetRoot(n Number) { h.page.putU32(4, uint32(n)) }

// NextPage returns the first page number never handed out by the allocator.
func (h Header) NextPage() Number { return Number(h.page.u32(8)) }

func (h Header) SetNextPage(n Number) { h.page.putU32(8, uint32(n)) }

// Layout returns the layout stamped at initialization.
func (h Header) Layout() Layout {
	return Layout{
		KeyWidth:   int(binary.LittleEndian.Uint16(h.page[16:])),
		ValueWidth: int(binary.LittleEndian.Uint16(h.page[18:])),
	}
}

// Check verifies the magic code and that the stamped layout equals l.
func (h Header) Check(l Layout) error {
	if [4]byte(h.page[12:16]) != Magic {
		return fmt.Errorf("header: %w %q", ErrBadMagic, h.page[12:16])
	}
	if got := h.Layout(); got != l {
		return fmt.Errorf("header: %w: file is %v, want %v", ErrLayoutMismatch, got, l)
	}
	if h.Root() == Null || h.NextPage() <= h.Root() {
		return fmt.Errorf("header: %w: root %d, next page %d", ErrBadHeader, h.Root(), h.NextPage())
	}
	return nil
}

// Bootstrap returns the two pages of an empty store: the Header at page 0
// and an empty root leaf at page 1.
func Bootstrap(l Layout) (header, root *Page) {
	header, root = new(Page), new(Page)
	InitHeader(header, l, 1, 2)
	l.InitLeaf(root)
	return
}
