// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

// Package wal implements the write-ahead log of a store: a checksummed
// stream of page records, a replayer that applies committed records to the
// shadow file, and the startup recovery that rebuilds the data file.
//
// A record is laid out little-endian as
//
//	[checksum u64][body length u32][body type u8][body]
//
// where checksum is the xxhash64 of everything after it.
package wal

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"

	"github.com/dacapoday/pagestore/page"
)

const headSize = 8 + 4 + 1

// BodyType tags the body of a record.
type BodyType uint8

const (
	BodyInit BodyType = iota
	BodyPutPage
	BodyPutPageSnappy
	BodyPutPageLZ4
)

func (t BodyType) String() string {
	switch t {
	case BodyInit:
		return "init"
	case BodyPutPage:
		return "put-page"
	case BodyPutPageSnappy:
		return "put-page-snappy"
	case BodyPutPageLZ4:
		return "put-page-lz4"
	}
	return fmt.Sprintf("body(%d)", uint8(t))
}

var (
	maxSnappyBody = 4 + snappy.MaxEncodedLen(page.Size)
	maxLZ4Body    = 4 + lz4.CompressBlockBound(page.Size)
	maxRecord     = headSize + max(4+page.Size, maxSnappyBody, maxLZ4Body)
)

// Record is a decoded record. Init records carry Layout; page records carry
// Page and Data.
type Record struct {
	Type   BodyType
	Layout page.Layout
	Page   page.Number
	Data   *page.Page
}

// Compression selects the encoding of page records.
type Compression uint8

const (
	CompressNone Compression = iota
	CompressSnappy
	CompressLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressNone:
		return "none"
	case CompressSnappy:
		return "snappy"
	case CompressLZ4:
		return "lz4"
	}
	return fmt.Sprintf("compression(%d)", uint8(c))
}

// ParseCompression parses the names printed by Compression.String.
// The empty string means none.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none":
		return CompressNone, nil
	case "snappy":
		return CompressSnappy, nil
	case "lz4":
		return CompressLZ4, nil
	}
	return 0, errors.Errorf("wal: unknown compression %q", s)
}

// Encoder appends records to a buffer. It is not safe for concurrent use.
type Encoder struct {
	Compression Compression
	lz4         lz4.Compressor
	scratch     []byte
}

func appendRecord(buf []byte, typ BodyType, body ...[]byte) []byte {
	start := len(buf)
	size := 0
	for _, b := range body {
		size += len(b)
	}
	buf = append(buf, make([]byte, 8)...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(size))
	buf = append(buf, byte(typ))
	for _, b := range body {
		buf = append(buf, b...)
	}
	binary.LittleEndian.PutUint64(buf[start:], xxhash.Sum64(buf[start+8:]))
	return buf
}

// AppendInit appends the record that bootstraps an empty store of layout l.
func AppendInit(buf []byte, l page.Layout) []byte {
	var body [4]byte
	binary.LittleEndian.PutUint16(body[0:], uint16(l.KeyWidth))
	binary.LittleEndian.PutUint16(body[2:], uint16(l.ValueWidth))
	return appendRecord(buf, BodyInit, body[:])
}

// AppendPage appends a record writing p at page n, compressed when the
// encoder is configured to and the page shrinks.
func (enc *Encoder) AppendPage(buf []byte, n page.Number, p *page.Page) []byte {
	var num [4]byte
	binary.LittleEndian.PutUint32(num[:], uint32(n))

	switch enc.Compression {
	case CompressSnappy:
		enc.scratch = snappy.Encode(enc.scratch[:cap(enc.scratch)], p[:])
		if len(enc.scratch) < page.Size {
			return appendRecord(buf, BodyPutPageSnappy, num[:], enc.scratch)
		}
	case CompressLZ4:
		if cap(enc.scratch) < lz4.CompressBlockBound(page.Size) {
			enc.scratch = make([]byte, lz4.CompressBlockBound(page.Size))
		}
		c, err := enc.lz4.CompressBlock(p[:], enc.scratch[:cap(enc.scratch)])
		if err == nil && c > 0 && c < page.Size {
			return appendRecord(buf, BodyPutPageLZ4, num[:], enc.scratch[:c])
		}
	}
	return appendRecord(buf, BodyPutPage, num[:], p[:])
}

// ReadRecord decodes the record at off. It returns the record and its
// encoded size. io.EOF means off is exactly the end of the log; any error
// for which IsCorrupt holds means the log ends in a torn record at off.
func ReadRecord(r io.ReaderAt, off int64, buf []byte) (rec Record, size int64, err error) {
	if cap(buf) < maxRecord {
		buf = make([]byte, maxRecord)
	}
	buf = buf[:cap(buf)]

	c, err := r.ReadAt(buf[:headSize], off)
	if c < headSize {
		if c == 0 && errors.Is(err, io.EOF) {
			return rec, 0, io.EOF
		}
		if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return rec, 0, errors.Wrapf(err, "wal: record head at %d", off)
	}

	length := int(binary.LittleEndian.Uint32(buf[8:]))
	rec.Type = BodyType(buf[12])
	var ok bool
	switch rec.Type {
	case BodyInit:
		ok = length == 4
	case BodyPutPage:
		ok = length == 4+page.Size
	case BodyPutPageSnappy:
		ok = length > 4 && length <= maxSnappyBody
	case BodyPutPageLZ4:
		ok = length > 4 && length <= maxLZ4Body
	default:
		return rec, 0, errors.Wrapf(ErrBodyType, "type %d at %d", buf[12], off)
	}
	if !ok {
		return rec, 0, errors.Wrapf(ErrBodySize, "%v body of %d bytes at %d", rec.Type, length, off)
	}

	body := buf[headSize : headSize+length]
	if c, err = r.ReadAt(body, off+headSize); c < length {
		if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return rec, 0, errors.Wrapf(err, "wal: record body at %d", off)
	}
	if binary.LittleEndian.Uint64(buf) != xxhash.Sum64(buf[8:headSize+length]) {
		return rec, 0, errors.Wrapf(ErrChecksum, "at %d", off)
	}

	if err = rec.decode(body); err != nil {
		return rec, 0, errors.Wrapf(err, "at %d", off)
	}
	return rec, int64(headSize + length), nil
}

func (rec *Record) decode(body []byte) error {
	if rec.Type == BodyInit {
		rec.Layout = page.Layout{
			KeyWidth:   int(binary.LittleEndian.Uint16(body[0:])),
			ValueWidth: int(binary.LittleEndian.Uint16(body[2:])),
		}
		if err := rec.Layout.Validate(); err != nil {
			return errors.Wrap(ErrBodySize, err.Error())
		}
		return nil
	}

	rec.Page = page.Number(binary.LittleEndian.Uint32(body))
	rec.Data = new(page.Page)
	src := body[4:]
	switch rec.Type {
	case BodyPutPage:
		copy(rec.Data[:], src)
	case BodyPutPageSnappy:
		if n, err := snappy.DecodedLen(src); err != nil || n != page.Size {
			return errors.Wrap(ErrBodySize, "snappy block")
		}
		if _, err := snappy.Decode(rec.Data[:], src); err != nil {
			return errors.Wrap(ErrBodySize, err.Error())
		}
	case BodyPutPageLZ4:
		n, err := lz4.UncompressBlock(src, rec.Data[:])
		if err != nil || n != page.Size {
			return errors.Wrap(ErrBodySize, "lz4 block")
		}
	}
	return nil
}
