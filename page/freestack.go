// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package page

import "fmt"

// FreeStackCap is the number of page numbers one FreeStack node holds.
const FreeStackCap = (Size - 8) / 4

// FreeStack is a typed view of a node of the linked stack of reclaimed pages.
type FreeStack struct {
	page *Page
}

// FreeStackOf returns a free stack view of p.
func FreeStackOf(p *Page) FreeStack {
	return FreeStack{page: p}
}

// InitFreeStack clears p and formats it as an empty stack node linked to next.
func InitFreeStack(p *Page, next Number) FreeStack {
	clear(p[:])
	s := FreeStack{page: p}
	p.putU32(0, uint32(next))
	return s
}

// Page returns the underlying page.
func (s FreeStack) Page() *Page { return s.page }

// Next returns the next node of the stack, or Null.
func (s FreeStack) Next() Number { return Number(s.page.u32(0)) }

// Len returns the number of page numbers stored in this node.
func (s FreeStack) Len() int { return int(s.page.u32(4)) }

func (s FreeStack) Full() bool { return s.Len() >= FreeStackCap }

// Push stores n on top of this node. The node must not be full.
func (s FreeStack) Push(n Number) {
	l := s.Len()
	if l >= FreeStackCap {
		panic(fmt.Errorf("page: push onto full free stack node"))
	}
	s.page.putU32(8+4*l, uint32(n))
	s.page.putU32(4, uint32(l+1))
}

// Pop removes and returns the top page number. The node must not be empty.
func (s FreeStack) Pop() Number {
	l := s.Len()
	if l == 0 {
		panic(fmt.Errorf("page: pop from empty free stack node"))
	}
	l--
	n := Number(s.page.u32(8 + 4*l))
	s.page.putU32(8+4*l, 0)
	s.page.putU32(4, uint32(l))
	return n
}

// At returns entry i, counted from the bottom of this node.
func (s FreeStack) At(i int) Number {
	if l := s.Len(); i < 0 || i >= l {
		panic(fmt.Errorf("page: free stack index %d out of range [0:%d]", i, l))
	}
	return Number(s.page.u32(8 + 4*i))
}
