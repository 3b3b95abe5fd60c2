// sample writes sample stores for inspecting the file formats described
// by pagestore.ksy and wal.ksy:
//
//	sample.db        id-set store with a populated free page stack
//	sample_map.db    8-byte keys, 8-byte values
//
// Each store leaves its .wal and .shadow files next to it.
package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dacapoday/pagestore/kv"
	"github.com/dacapoday/pagestore/page"
	"github.com/dacapoday/pagestore/wal"
)

func main() {
	ctx := context.Background()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	db, err := kv.Open("sample.db", kv.WithLogger(logger))
	if err != nil {
		panic(err)
	}
	set, err := kv.NewSet(db)
	if err != nil {
		panic(err)
	}
	for i := range uint64(2000) {
		if err = set.Insert(ctx, page.IDFromUint64(i)); err != nil {
			panic(err)
		}
	}
	// empties most leaves, pushing their pages onto the free stack
	for i := range uint64(1800) {
		if err = set.Delete(ctx, page.IDFromUint64(i)); err != nil {
			panic(err)
		}
	}
	if err = db.Close(); err != nil {
		panic(err)
	}

	db, err = kv.Open("sample_map.db",
		kv.WithLayout(page.Layout{KeyWidth: 8, ValueWidth: 8}),
		kv.WithCompression(wal.CompressSnappy),
		kv.WithLogger(logger))
	if err != nil {
		panic(err)
	}
	defer db.Close()
	m, err := kv.NewMap(db, kv.Codec[uint64](kv.Uint64Codec{}), kv.Codec[[]byte](kv.FixedBytes(8)))
	if err != nil {
		panic(err)
	}
	for i := range uint64(1000) {
		if err = m.Insert(ctx, i, fmt.Appendf(nil, "v%05d", i)); err != nil {
			panic(err)
		}
	}
}
