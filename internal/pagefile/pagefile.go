// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

// Package pagefile maps page numbers onto byte ranges of a pagestore.File.
package pagefile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dacapoday/pagestore"
	"github.com/dacapoday/pagestore/page"
)

var (
	ErrFileTruncated = pagestore.ErrFileTruncated
	ErrLocked        = pagestore.ErrLocked
)

// File reads and writes whole pages.
type File struct {
	file pagestore.File
	pool sync.Pool
}

// New wraps file.
func New(file pagestore.File) *File {
	f := &File{file: file}
	f.pool.New = func() any { return new(page.Page) }
	return f
}

// Raw returns the wrapped file.
func (f *File) Raw() pagestore.File {
	return f.file
}

// AllocateBuffer returns a scratch page from the pool.
func (f *File) AllocateBuffer() *page.Page {
	return f.pool.Get().(*page.Page)
}

// RecycleBuffer returns a scratch page to the pool.
func (f *File) RecycleBuffer(p *page.Page) {
	f.pool.Put(p)
}

// ReadPage reads page n into p. Reading past the end of the file fails
// with ErrFileTruncated.
func (f *File) ReadPage(n page.Number, p *page.Page) (err error) {
	c, err := f.file.ReadAt(p[:], n.Offset())
	if c == page.Size {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = fmt.Errorf("read page(%d): %w: got %d bytes", n, ErrFileTruncated, c)
		return
	}
	return fmt.Errorf("read page(%d) failed: %w", n, err)
}

// LoadPage reads page n into a new page.
func (f *File) LoadPage(n page.Number) (*page.Page, error) {
	p := new(page.Page)
	if err := f.ReadPage(n, p); err != nil {
		return nil, err
	}
	return p, nil
}

// WritePage writes p at page n.
func (f *File) WritePage(n page.Number, p *page.Page) (err error) {
	if _, err = f.file.WriteAt(p[:], n.Offset()); err != nil {
		err = fmt.Errorf("write page(%d) failed: %w", n, err)
	}
	return
}

// Sync flushes the file to stable storage.
func (f *File) Sync() error {
	return f.file.Sync()
}

// Size returns the size of the file in bytes.
func (f *File) Size() (int64, error) {
	return Size(f.file)
}

// Pages returns the number of whole pages in the file.
func (f *File) Pages() (page.Number, error) {
	size, err := f.Size()
	if err != nil {
		return 0, err
	}
	return page.Number(size / page.Size), nil
}

// CopyFrom makes the content of f equal to src, page by page, then syncs f.
func (f *File) CopyFrom(src *File) (err error) {
	size, err := src.Size()
	if err != nil {
		return fmt.Errorf("copy: size of source: %w", err)
	}
	if size%page.Size != 0 {
		return fmt.Errorf("copy: source size %d: %w", size, ErrFileTruncated)
	}

	buffer := f.AllocateBuffer()
	defer f.RecycleBuffer(buffer)
	for n := page.Number(1); n.Offset() < size; n++ {
		if err = src.ReadPage(n, buffer); err != nil {
			return fmt.Errorf("copy: %w", err)
		}
		if err = f.WritePage(n, buffer); err != nil {
			return fmt.Errorf("copy: %w", err)
		}
	}
	if err = f.file.Truncate(size); err != nil {
		return fmt.Errorf("copy: truncate: %w", err)
	}
	if size == 0 {
		return f.Sync()
	}
	if err = f.Sync(); err != nil {
		return err
	}
	// header last: an interrupted copy into an empty file leaves no header
	if err = src.ReadPage(page.HeaderNumber, buffer); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	if err = f.WritePage(page.HeaderNumber, buffer); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	return f.Sync()
}

// Size returns the length of file, through Stat for *os.File and
// pagestore.Sizer for everything else.
func Size(file pagestore.File) (int64, error) {
	switch f := file.(type) {
	case pagestore.Sizer:
		return f.Size(), nil
	case interface{ Stat() (os.FileInfo, error) }:
		info, err := f.Stat()
		if err != nil {
			return 0, err
		}
		return info.Size(), nil
	}
	return 0, fmt.Errorf("pagefile: cannot size %T", file)
}
