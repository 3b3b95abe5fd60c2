// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package bptree

import "github.com/dacapoday/pagestore/page"

// Path is the chain of internal nodes from the root down to a leaf. There
// are no sibling pointers, so moving between leaves goes through it.
//
// path[0] is the root; each Frame records the child followed at that node.
type Path []Frame

// Frame is one internal node on a Path.
type Frame struct {
	Page  page.Number
	Count int // children
	Index int // child followed
}

// Up moves the deepest frame that has a child to the right of Index one
// step right, and returns its level. It returns -1 when the path already
// points at the last leaf.
func (path Path) Up() int {
	for level := len(path) - 1; level >= 0; level-- {
		if path[level].Index+1 < path[level].Count {
			path[level].Index++
			return level
		}
	}
	return -1
}
