package kv

import (
	"encoding/binary"

	"github.com/dacapoday/pagestore/page"
)

// Codec maps T to fixed-width bytes. Byte order of encodings must equal
// the order of the values for Next and Iter to walk them in order.
type Codec[T any] interface {
	Width() int
	Put(b []byte, v T)
	Get(b []byte) T
}

// IDCodec encodes page.ID as 16 big-endian bytes.
type IDCodec struct{}

func (IDCodec) Width() int              { return page.IDSize }
func (IDCodec) Put(b []byte, v page.ID) { v.Put(b) }
func (IDCodec) Get(b []byte) page.ID    { return page.IDFromBytes(b) }

// Uint64Codec encodes uint64 as 8 big-endian bytes.
type Uint64Codec struct{}

func (Uint64Codec) Width() int             { return 8 }
func (Uint64Codec) Put(b []byte, v uint64) { binary.BigEndian.PutUint64(b, v) }
func (Uint64Codec) Get(b []byte) uint64    { return binary.BigEndian.Uint64(b) }

// Bytes holds exactly n bytes; shorter values are zero padded.
type Bytes struct{ n int }

// FixedBytes returns the codec of n-byte values.
func FixedBytes(n int) Bytes { return Bytes{n} }

func (c Bytes) Width() int { return c.n }

func (c Bytes) Put(b []byte, v []byte) {
	clear(b[copy(b[:c.n], v):c.n])
}

func (c Bytes) Get(b []byte) []byte {
	return append([]byte(nil), b[:c.n]...)
}

// Empty is the zero-width codec of set members.
type Empty struct{}

func (Empty) Width() int              { return 0 }
func (Empty) Put([]byte, struct{})    {}
func (Empty) Get([]byte) (v struct{}) { return }
