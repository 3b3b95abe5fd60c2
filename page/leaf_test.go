package page

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLeafInsertSearchDelete(t *testing.T) {
	var p Page
	l := Layout{KeyWidth: 16, ValueWidth: 4}
	leaf := l.InitLeaf(&p)

	for _, v := range []uint64{50, 10, 30, 20, 40} {
		i, found := leaf.Search(id(v))
		require.False(t, found)
		leaf.InsertAt(i, id(v), []byte{byte(v), 0, 0, 1})
	}
	require.Equal(t, 5, leaf.Len())
	for i, v := range []uint64{10, 20, 30, 40, 50} {
		require.Equal(t, id(v), leaf.Key(i))
		require.Equal(t, []byte{byte(v), 0, 0, 1}, leaf.Value(i))
	}

	i, found := leaf.Search(id(30))
	require.True(t, found)
	require.Equal(t, 2, i)
	leaf.SetValue(i, []byte{9, 9, 9, 9})
	require.Equal(t, []byte{9, 9, 9, 9}, leaf.Value(2))

	i, found = leaf.Search(id(35))
	require.False(t, found)
	require.Equal(t, 3, i)

	leaf.Delete(0)
	leaf.Delete(3)
	require.Equal(t, 3, leaf.Len())
	require.Equal(t, id(20), leaf.Key(0))
	require.Equal(t, id(40), leaf.Key(2))
	require.Equal(t, []byte{40, 0, 0, 1}, leaf.Value(2))
	require.Panics(t, func() { leaf.Key(3) })
	require.Panics(t, func() { leaf.Delete(5) })
}

func TestLeafSplit(t *testing.T) {
	var left, right Page
	leaf := IDSet.InitLeaf(&left)
	for i := range 255 {
		leaf.InsertAt(i, id(uint64(2*i)), nil)
	}
	require.True(t, leaf.Full())
	require.Equal(t, id(508), leaf.Key(254))
	require.Panics(t, func() { leaf.InsertAt(0, id(1), nil) })

	i, found := leaf.Search(id(3))
	require.False(t, found)
	require.Equal(t, 2, i)

	rleaf := IDSet.InitLeaf(&right)
	sep := leaf.SplitInsert(i, id(3), nil, rleaf)

	require.Equal(t, 128, leaf.Len())
	require.Equal(t, 128, rleaf.Len())
	require.Equal(t, id(254), sep)
	require.Equal(t, rleaf.Key(0), sep)

	require.Equal(t, id(0), leaf.Key(0))
	require.Equal(t, id(2), leaf.Key(1))
	require.Equal(t, id(3), leaf.Key(2))
	require.Equal(t, id(4), leaf.Key(3))
	require.Equal(t, id(252), leaf.Key(127))
	require.Equal(t, id(508), rleaf.Key(127))

	for i := 1; i < leaf.Len(); i++ {
		require.Equal(t, -1, bytes.Compare(leaf.Key(i-1), leaf.Key(i)))
	}
	for i := 1; i < rleaf.Len(); i++ {
		require.Equal(t, -1, bytes.Compare(rleaf.Key(i-1), rleaf.Key(i)))
	}

	// the separator is a copy, not an alias of the right page
	sep[0] = 0xFF
	require.Equal(t, id(254), rleaf.Key(0))
}

func TestLeafSplitWithValues(t *testing.T) {
	l := Layout{KeyWidth: 8, ValueWidth: 8}
	u64 := func(v uint64) []byte { return binary.BigEndian.AppendUint64(nil, v) }
	var left, right Page
	leaf := l.InitLeaf(&left)
	n := leaf.Cap()
	for i := range n {
		k := uint64(i*2 + 1)
		leaf.InsertAt(i, u64(k), u64(k*3))
	}

	rleaf := l.InitLeaf(&right)
	sep := leaf.SplitInsert(n, u64(10000), u64(30000), rleaf)
	require.Equal(t, n+1, leaf.Len()+rleaf.Len())
	require.Equal(t, (n+2)/2, leaf.Len())
	require.Equal(t, rleaf.Key(0), sep)
	require.Equal(t, u64(10000), rleaf.Key(rleaf.Len()-1))
	require.Equal(t, u64(30000), rleaf.Value(rleaf.Len()-1))
	for _, half := range []Leaf{leaf, rleaf} {
		for i := range half.Len() {
			k := binary.BigEndian.Uint64(half.Key(i))
			require.Equal(t, k*3, binary.BigEndian.Uint64(half.Value(i)))
		}
	}
}

func TestLeafMerge(t *testing.T) {
	l := Layout{KeyWidth: 16, ValueWidth: 2}
	var a, b Page
	left := l.InitLeaf(&a)
	right := l.InitLeaf(&b)
	for i := range 3 {
		left.InsertAt(i, id(uint64(i)), []byte{byte(i), 1})
		right.InsertAt(i, id(uint64(10+i)), []byte{byte(10 + i), 2})
	}
	left.Merge(right)
	require.Equal(t, 6, left.Len())
	require.Equal(t, id(12), left.Key(5))
	require.Equal(t, []byte{12, 2}, left.Value(5))
	require.Equal(t, []byte{2, 1}, left.Value(2))
}

func TestLeafRedistribute(t *testing.T) {
	var lp, rp Page
	left, right := IDSet.InitLeaf(&lp), IDSet.InitLeaf(&rp)
	for v := range uint64(10) {
		left.InsertAt(left.Len(), id(v), nil)
	}
	right.InsertAt(0, id(100), nil)

	sep := left.Redistribute(right)
	require.Equal(t, 6, left.Len())
	require.Equal(t, 5, right.Len())
	require.Equal(t, id(6), sep)
	require.Equal(t, id(6), right.Key(0))
	require.Equal(t, id(100), right.Key(4))
	require.Equal(t, id(5), left.Key(5))
}
