package mem

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileReadWrite(t *testing.T) {
	var f File
	defer f.Close()

	n, err := f.WriteAt([]byte("hello"), 0)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	_, err = f.WriteAt([]byte("world"), 10)
	require.NoError(t, err)
	require.Equal(t, int64(15), f.Size())

	buf := make([]byte, 5)
	_, err = f.ReadAt(buf, 10)
	require.NoError(t, err)
	require.Equal(t, "world", string(buf))

	_, err = f.ReadAt(buf, 5)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 5), buf)

	n, err = f.ReadAt(buf, 12)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 3, n)

	_, err = f.ReadAt(buf, 100)
	require.ErrorIs(t, err, io.EOF)
}

func TestFileTruncate(t *testing.T) {
	var f File
	f.WriteAt([]byte("0123456789"), 0)

	require.NoError(t, f.Truncate(4))
	require.Equal(t, []byte("0123"), f.Bytes())

	require.NoError(t, f.Truncate(6))
	require.Equal(t, []byte("0123\x00\x00"), f.Bytes())

	f.Load([]byte("xyz"))
	require.Equal(t, int64(3), f.Size())
}

func TestFileFault(t *testing.T) {
	var f File
	boom := errors.New("boom")
	f.SetFault(func(op Op, off int64, n int) error {
		if op == OpWrite && off >= 100 {
			return boom
		}
		if op == OpSync {
			return boom
		}
		return nil
	})

	_, err := f.WriteAt([]byte("ok"), 0)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte("no"), 100)
	require.ErrorIs(t, err, boom)
	require.Equal(t, int64(2), f.Size())
	require.ErrorIs(t, f.Sync(), boom)
	require.Equal(t, 0, f.Syncs())

	f.SetFault(nil)
	require.NoError(t, f.Sync())
	require.Equal(t, 1, f.Syncs())
}
