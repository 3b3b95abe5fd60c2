// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

// Package mem provides an in-memory pagestore.File with fault injection.
package mem

import (
	"io"
	"sync"

	"github.com/dacapoday/pagestore"
)

// Op names the file operation passed to a Fault.
type Op uint8

const (
	OpRead Op = iota
	OpWrite
	OpSync
	OpTruncate
)

func (op Op) String() string {
	switch op {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpSync:
		return "sync"
	case OpTruncate:
		return "truncate"
	}
	return "unknown"
}

// Fault is consulted before every operation; a non-nil error fails the
// operation without touching the data. For OpWrite, off and n describe the
// write; for OpTruncate, off is the new size.
type Fault func(op Op, off int64, n int) error

// File is an in-memory implementation of the pagestore.File interface.
// It is safe for concurrent use by multiple goroutines.
//
// File requires no initialization - just declare and use:
//
//	var f File
//	f.WriteAt([]byte("hello"), 0)
type File struct {
	rw    sync.RWMutex
	data  []byte
	fault Fault
	syncs int
}

var _ pagestore.File = new(File)

// SetFault installs fault; nil removes it.
func (file *File) SetFault(fault Fault) {
	file.rw.Lock()
	file.fault = fault
	file.rw.Unlock()
}

func (file *File) check(op Op, off int64, n int) error {
	if file.fault == nil {
		return nil
	}
	return file.fault(op, off, n)
}

// Close clears all data stored in the File.
// It is safe to write to the file again after closing.
func (file *File) Close() error {
	file.rw.Lock()
	file.data = nil
	file.rw.Unlock()
	return nil
}

// Size returns the current size of the file in bytes.
func (file *File) Size() int64 {
	file.rw.RLock()
	defer file.rw.RUnlock()
	return int64(len(file.data))
}

// Syncs returns how many times Sync succeeded.
func (file *File) Syncs() int {
	file.rw.RLock()
	defer file.rw.RUnlock()
	return file.syncs
}

// Bytes returns a copy of the file content.
func (file *File) Bytes() []byte {
	file.rw.RLock()
	defer file.rw.RUnlock()
	return append([]byte(nil), file.data...)
}

// Load replaces the file content with a copy of b.
func (file *File) Load(b []byte) {
	file.rw.Lock()
	file.data = append([]byte(nil), b...)
	file.rw.Unlock()
}

// WriteAt writes len(p) bytes from p at offset off, growing the file and
// zero-filling any gap.
func (file *File) WriteAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, io.ErrUnexpectedEOF
	}
	file.rw.Lock()
	defer file.rw.Unlock()
	if err = file.check(OpWrite, off, len(p)); err != nil {
		return
	}
	if end := off + int64(len(p)); end > int64(len(file.data)) {
		file.data = append(file.data, make([]byte, end-int64(len(file.data)))...)
	}
	return copy(file.data[off:], p), nil
}

// ReadAt reads len(p) bytes at offset off. It returns io.EOF when fewer
// bytes are available.
func (file *File) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, io.ErrUnexpectedEOF
	}
	file.rw.RLock()
	defer file.rw.RUnlock()
	if err = file.check(OpRead, off, len(p)); err != nil {
		return
	}
	if off >= int64(len(file.data)) {
		return 0, io.EOF
	}
	n = copy(p, file.data[off:])
	if n < len(p) {
		err = io.EOF
	}
	return
}

// Truncate changes the size of the file, zero-filling when it grows.
func (file *File) Truncate(size int64) error {
	if size < 0 {
		return io.ErrUnexpectedEOF
	}
	file.rw.Lock()
	defer file.rw.Unlock()
	if err := file.check(OpTruncate, size, 0); err != nil {
		return err
	}
	if size <= int64(len(file.data)) {
		clear(file.data[size:])
		file.data = file.data[:size]
	} else {
		file.data = append(file.data, make([]byte, size-int64(len(file.data)))...)
	}
	return nil
}

// Sync only consults the fault hook and counts successful calls.
func (file *File) Sync() error {
	file.rw.Lock()
	defer file.rw.Unlock()
	if err := file.check(OpSync, 0, 0); err != nil {
		return err
	}
	file.syncs++
	return nil
}
