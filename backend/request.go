// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"

	"github.com/dacapoday/pagestore/bptree"
)

type opcode uint8

const (
	opInsert opcode = iota
	opDelete
	opContains
	opGet
	opNext
	opFileSize
)

func (op opcode) String() string {
	switch op {
	case opInsert:
		return "insert"
	case opDelete:
		return "delete"
	case opContains:
		return "contains"
	case opGet:
		return "get"
	case opNext:
		return "next"
	case opFileSize:
		return "file-size"
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

type request struct {
	op    opcode
	key   []byte
	val   []byte
	limit int
	reply chan result

	res result
}

type result struct {
	ok      bool
	val     []byte
	entries []bptree.Entry
	size    int64
	err     error
}

func newRequest(op opcode, key, val []byte) *request {
	return &request{op: op, key: bytes.Clone(key), val: bytes.Clone(val), reply: make(chan result, 1)}
}

// exec runs req against o. A panic, such as deleting an absent key, fails
// the request with the panic value.
func (req *request) exec(o *bptree.Operator) {
	defer func() {
		if v := recover(); v != nil {
			if err, ok := v.(error); ok {
				req.res.err = errors.WithStack(err)
			} else {
				req.res.err = errors.Errorf("backend: %v panicked: %v", req.op, v)
			}
		}
	}()

	res := &req.res
	switch req.op {
	case opInsert:
		res.err = o.Insert(req.key, req.val)
	case opDelete:
		res.err = o.Delete(req.key)
	case opContains:
		res.ok, res.err = o.Contains(req.key)
	case opGet:
		res.val, res.ok, res.err = o.Get(req.key)
	case opNext:
		res.entries, res.err = o.Next(req.key, req.limit)
	case opFileSize:
		res.size, res.err = o.FileSize()
	}
}

// batchError is the error of every request in a failed batch except the
// one that caused the failure.
type batchError struct {
	cause error
}

func (e *batchError) Error() string {
	return ErrBatchFailed.Error() + ": " + e.cause.Error()
}

func (e *batchError) Unwrap() []error {
	return []error{ErrBatchFailed, e.cause}
}
