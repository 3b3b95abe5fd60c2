package page

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// IDSize is the encoded size of an ID.
const IDSize = 16

// ID is a 128-bit unsigned integer, the key of the id-set variant.
type ID struct {
	Hi, Lo uint64
}

// IDFromUint64 returns the ID with value v.
func IDFromUint64(v uint64) ID {
	return ID{Lo: v}
}

// IDFromBytes decodes the big-endian encoding written by Put.
func IDFromBytes(b []byte) ID {
	return ID{
		Hi: binary.BigEndian.Uint64(b[0:8]),
		Lo: binary.BigEndian.Uint64(b[8:16]),
	}
}

// IDFromUUID reinterprets the 16 bytes of u as a big-endian integer.
func IDFromUUID(u uuid.UUID) ID {
	return IDFromBytes(u[:])
}

// NewID returns an ID made from a random (version 4) UUID.
func NewID() ID {
	return IDFromUUID(uuid.New())
}

// Put writes the big-endian encoding of id into b[:16]. Byte order of the
// encoding equals numeric order.
func (id ID) Put(b []byte) {
	binary.BigEndian.PutUint64(b[0:8], id.Hi)
	binary.BigEndian.PutUint64(b[8:16], id.Lo)
}

// Bytes returns the big-endian encoding of id.
func (id ID) Bytes() []byte {
	b := make([]byte, IDSize)
	id.Put(b)
	return b
}

// UUID returns id as a UUID.
func (id ID) UUID() (u uuid.UUID) {
	id.Put(u[:])
	return
}

// Compare returns -1, 0 or +1.
func (id ID) Compare(o ID) int {
	switch {
	case id.Hi < o.Hi:
		return -1
	case id.Hi > o.Hi:
		return 1
	case id.Lo < o.Lo:
		return -1
	case id.Lo > o.Lo:
		return 1
	}
	return 0
}

func (id ID) big() *big.Int {
	v := new(big.Int).SetUint64(id.Hi)
	v.Lsh(v, 64)
	return v.Or(v, new(big.Int).SetUint64(id.Lo))
}

// String returns the decimal form of id.
func (id ID) String() string {
	if id.Hi == 0 {
		return fmt.Sprintf("%d", id.Lo)
	}
	return id.big().String()
}

// ParseID parses a decimal integer, a 0x-prefixed hex integer or a UUID.
func ParseID(s string) (id ID, err error) {
	if strings.Count(s, "-") == 4 {
		var u uuid.UUID
		if u, err = uuid.Parse(s); err != nil {
			return
		}
		return IDFromUUID(u), nil
	}

	v, ok := new(big.Int), false
	if rest, hex := strings.CutPrefix(strings.ToLower(s), "0x"); hex {
		_, ok = v.SetString(rest, 16)
	} else {
		_, ok = v.SetString(s, 10)
	}
	if !ok || v.Sign() < 0 || v.BitLen() > 128 {
		err = fmt.Errorf("page: invalid id %q", s)
		return
	}
	var b [IDSize]byte
	v.FillBytes(b[:])
	return IDFromBytes(b[:]), nil
}
