package pagestore

import "errors"

var (
	ErrClosed         = errors.New("closed")
	ErrLocked         = errors.New("locked by another process")
	ErrBadMagic       = errors.New("bad magic")
	ErrBadHeader      = errors.New("bad header")
	ErrLayoutMismatch = errors.New("layout mismatch")
	ErrInvalidLayout  = errors.New("invalid layout")
	ErrKeyNotFound    = errors.New("key not found")
	ErrKeyWidth       = errors.New("key width mismatch")
	ErrValueWidth     = errors.New("value width mismatch")
	ErrFileTruncated  = errors.New("file truncated")
	ErrBatchFailed    = errors.New("batch failed")
)
