// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

// Package pagestore defines the basic interfaces shared by the page file,
// the write-ahead log and the shadow file of a store.
package pagestore

import "io"

// File provides access to a storage backend for one of the store files.
// The File interface is the minimum implementation required.
//
// The *os.File type satisfies this interface.
type File interface {
	io.ReaderAt
	io.WriterAt
	io.Closer

	// Truncate changes the size of the file.
	Truncate(size int64) error

	// Sync commits the current contents of the file to stable storage.
	// Typically, this means flushing the file system's in-memory copy
	// of recently written data to disk.
	Sync() error
}

// Sizer is implemented by files that know their current length without a
// Stat call, such as *mem.File.
type Sizer interface {
	Size() int64
}
