package page

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestIDOrderMatchesEncoding(t *testing.T) {
	for range 1000 {
		a := ID{Hi: rand.Uint64N(4), Lo: rand.Uint64()}
		b := ID{Hi: rand.Uint64N(4), Lo: rand.Uint64()}
		require.Equal(t, a.Compare(b), bytes.Compare(a.Bytes(), b.Bytes()))
		require.Equal(t, a, IDFromBytes(a.Bytes()))
	}
}

func TestParseID(t *testing.T) {
	got, err := ParseID("42")
	require.NoError(t, err)
	require.Equal(t, IDFromUint64(42), got)
	require.Equal(t, "42", got.String())

	got, err = ParseID("0x10000000000000001")
	require.NoError(t, err)
	require.Equal(t, ID{Hi: 1, Lo: 1}, got)
	require.Equal(t, "18446744073709551617", got.String())

	again, err := ParseID(got.String())
	require.NoError(t, err)
	require.Equal(t, got, again)

	u := uuid.MustParse("01234567-89ab-cdef-0123-456789abcdef")
	got, err = ParseID(u.String())
	require.NoError(t, err)
	require.Equal(t, ID{Hi: 0x0123456789abcdef, Lo: 0x0123456789abcdef}, got)
	require.Equal(t, u, got.UUID())

	for _, bad := range []string{"", "-1", "abc", "0x1" + "00000000000000000000000000000000"} {
		_, err = ParseID(bad)
		require.Error(t, err, bad)
	}
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	require.NotEqual(t, a, b)
	require.Equal(t, a, IDFromUUID(a.UUID()))
}
