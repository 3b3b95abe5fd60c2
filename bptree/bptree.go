// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

// Package bptree executes B+ tree operations over fixed-width pages.
//
// An Operator performs one unit of work against a tree: it loads pages
// lazily, copies every page it changes and reports both sets in Done.
// It never writes anything; durability belongs to the caller.
package bptree

import (
	"github.com/dacapoday/pagestore"
	"github.com/dacapoday/pagestore/page"
)

var (
	ErrKeyNotFound = pagestore.ErrKeyNotFound
	ErrKeyWidth    = pagestore.ErrKeyWidth
	ErrValueWidth  = pagestore.ErrValueWidth
)

// Snapshot is a read-only view of cached pages. Pages it returns are never
// modified.
type Snapshot interface {
	Get(n page.Number) (*page.Page, bool)
}

// Reader reads a page from the data file.
type Reader interface {
	ReadPage(n page.Number, p *page.Page) error
}

// Done is the outcome of an Operator: the pages it produced and the pages
// it loaded from the file without changing them.
type Done struct {
	Updated map[page.Number]*page.Page
	Read    map[page.Number]*page.Page
}

// Entry is a key and its value, copied out of the tree.
type Entry struct {
	Key []byte
	Val []byte
}

type emptySnapshot struct{}

func (emptySnapshot) Get(page.Number) (*page.Page, bool) { return nil, false }
