// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package bptree

import "github.com/dacapoday/pagestore/page"

// alloc hands out a page number, reusing freed pages first. The content of
// the returned page is undefined until the caller formats it.
func (op *Operator) alloc() page.Number {
	h := op.mutableHeader()
	if top := h.FreeTop(); top != page.Null {
		stack := page.FreeStackOf(op.mutable(top))
		if stack.Len() > 0 {
			return stack.Pop()
		}
		// an exhausted stack node is itself the allocation
		h.SetFreeTop(stack.Next())
		return top
	}
	n := h.NextPage()
	h.SetNextPage(n + 1)
	return n
}

// free returns page n to the free stack. When the top node is full, or
// there is none, n becomes the new top node.
func (op *Operator) free(n page.Number) {
	h := op.mutableHeader()
	top := h.FreeTop()
	if top != page.Null {
		if stack := page.FreeStackOf(op.mutable(top)); !stack.Full() {
			stack.Push(n)
			delete(op.updated, n)
			delete(op.read, n)
			return
		}
	}
	page.InitFreeStack(op.fresh(n), top)
	h.SetFreeTop(n)
}

// FreePages counts the page numbers held by the free stack, stack nodes
// included.
func (op *Operator) FreePages() (count int, err error) {
	defer op.catch(&err)
	for n := op.header().FreeTop(); n != page.Null; {
		stack := page.FreeStackOf(op.load(n))
		count += 1 + stack.Len()
		n = stack.Next()
	}
	return
}
