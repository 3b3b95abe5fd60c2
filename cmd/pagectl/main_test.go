package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dacapoday/pagestore/kv"
	"github.com/dacapoday/pagestore/page"
)

func TestParseKey(t *testing.T) {
	b, err := parseKey("258", 16)
	require.NoError(t, err)
	assert.Equal(t, page.IDFromUint64(258).Bytes(), b)

	b, err = parseKey("0x0102", 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, b)

	_, err = parseKey("65536", 2)
	require.Error(t, err)

	b, err = parseKey("abc", 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc\x00"), b)

	b, err = parseKey("7", 20)
	require.NoError(t, err)
	assert.Len(t, b, 20)
	assert.Equal(t, byte(7), b[19])
}

func TestParseValue(t *testing.T) {
	b, err := parseValue("0xff", 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0}, b)

	_, err = parseValue("toolong", 2)
	require.Error(t, err)
}

func TestFormatKey(t *testing.T) {
	assert.Equal(t, "258", formatKey(page.IDFromUint64(258).Bytes()))
	assert.Equal(t, "513", formatKey([]byte{2, 1}))
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ids.db")
	logger, _ := test.NewNullLogger()
	db, err := kv.Open(path, kv.WithLogger(logger))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, run(ctx, db, path, "insert", []string{"5"}))
	require.NoError(t, run(ctx, db, path, "insert", []string{"9"}))
	require.NoError(t, run(ctx, db, path, "contains", []string{"5"}))
	require.NoError(t, run(ctx, db, path, "list", []string{"-n", "1"}))
	require.NoError(t, run(ctx, db, path, "size", nil))
	require.NoError(t, run(ctx, db, path, "delete", []string{"5"}))
	require.EqualError(t, run(ctx, db, path, "delete", []string{"5"}), "5: not found")
	require.Error(t, run(ctx, db, path, "insert", nil))
	require.Error(t, run(ctx, db, path, "frobnicate", nil))

	ok, err := db.Contains(ctx, page.IDFromUint64(9).Bytes())
	require.NoError(t, err)
	assert.True(t, ok)
}
