package kv

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dacapoday/pagestore"
	"github.com/dacapoday/pagestore/backend"
	"github.com/dacapoday/pagestore/bptree"
	"github.com/dacapoday/pagestore/internal/pagefile"
	"github.com/dacapoday/pagestore/logger"
	"github.com/dacapoday/pagestore/page"
)

var (
	ErrClosed      = pagestore.ErrClosed
	ErrLocked      = pagestore.ErrLocked
	ErrKeyNotFound = pagestore.ErrKeyNotFound
	ErrBatchFailed = pagestore.ErrBatchFailed
)

// File is the storage a DB runs on.
type File = pagestore.File

// Entry is a key and its value.
type Entry = bptree.Entry

// DB is an open store. All methods are safe for concurrent use; requests
// issued concurrently are batched together.
type DB struct {
	backend *backend.Backend
	logger  logrus.FieldLogger

	closers []io.Closer
	lock    *os.File
}

// Open opens the store at path, creating it when absent. The store keeps
// three files: path itself, path+".wal" and path+".shadow". The data file
// is locked against other processes until Close.
func Open(path string, opts ...Option) (db *DB, err error) {
	var files []*os.File
	defer func() {
		if err != nil {
			for _, f := range files {
				f.Close()
			}
		}
	}()
	for _, name := range []string{path, path + ".wal", path + ".shadow"} {
		var f *os.File
		if f, err = os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0600); err != nil {
			return nil, errors.WithStack(err)
		}
		files = append(files, f)
	}
	if err = pagefile.Lock(files[0]); err != nil {
		return nil, errors.WithStack(err)
	}

	if db, err = OpenFile(files[0], files[1], files[2], opts...); err != nil {
		pagefile.Unlock(files[0])
		return nil, err
	}
	db.lock = files[0]
	for _, f := range files {
		db.closers = append(db.closers, f)
	}
	return db, nil
}

// OpenFile opens the store kept in data, log and shadow. The files stay
// owned by the caller.
func OpenFile(data, log, shadow File, opts ...Option) (*DB, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	db := new(DB)
	base := o.Logger
	if base == nil {
		l, closer, err := logger.New(o.logConfig())
		if err != nil {
			return nil, err
		}
		base = l
		db.closers = append(db.closers, closer)
	}
	db.logger = base.WithField("store", uuid.NewString())
	o.Logger = db.logger

	cfg, err := o.config()
	if err == nil {
		db.backend, err = backend.Open(data, log, shadow, cfg)
	}
	if err != nil {
		db.closeFiles()
		return nil, err
	}
	return db, nil
}

// Layout returns the key and value widths of the store.
func (db *DB) Layout() page.Layout {
	return db.backend.Layout()
}

// Insert stores val under key, replacing any previous value.
func (db *DB) Insert(ctx context.Context, key, val []byte) error {
	return db.backend.Insert(ctx, key, val)
}

// Delete removes key. Deleting an absent key is a caller defect: it
// returns an error wrapping ErrKeyNotFound and fails every other request
// batched with it with ErrBatchFailed.
func (db *DB) Delete(ctx context.Context, key []byte) error {
	return db.backend.Delete(ctx, key)
}

// Contains reports whether key is stored.
func (db *DB) Contains(ctx context.Context, key []byte) (bool, error) {
	return db.backend.Contains(ctx, key)
}

// Get returns the value stored under key; ok is false when key is absent.
func (db *DB) Get(ctx context.Context, key []byte) (val []byte, ok bool, err error) {
	return db.backend.Get(ctx, key)
}

// Next returns up to limit entries with keys strictly after start, in
// ascending order. A nil start begins at the smallest key; a limit <= 0
// means the default page of entries.
func (db *DB) Next(ctx context.Context, start []byte, limit int) ([]Entry, error) {
	return db.backend.Next(ctx, start, limit)
}

// FileSize returns the logical size of the data file in bytes.
func (db *DB) FileSize(ctx context.Context) (int64, error) {
	return db.backend.FileSize(ctx)
}

// Err returns the error that stopped the store, if any.
func (db *DB) Err() error {
	return db.backend.Err()
}

// Close stops the store, waits for pending requests and releases its
// files. It returns the error that stopped the store, if any.
func (db *DB) Close() error {
	err := db.backend.Close()
	if db.lock != nil {
		if uerr := pagefile.Unlock(db.lock); err == nil && uerr != nil {
			err = errors.WithStack(uerr)
		}
		db.lock = nil
	}
	if cerr := db.closeFiles(); err == nil {
		err = cerr
	}
	return err
}

func (db *DB) closeFiles() (err error) {
	for _, c := range db.closers {
		if cerr := c.Close(); err == nil && cerr != nil {
			err = errors.WithStack(cerr)
		}
	}
	db.closers = nil
	return
}
