// pagectl inspects and edits a pagestore store from the command line.
//
// Usage:
//
//	pagectl [-config store.ini] <db> insert <key> [value]
//	pagectl [-config store.ini] <db> delete <key>
//	pagectl [-config store.ini] <db> contains <key>
//	pagectl [-config store.ini] <db> get <key>
//	pagectl [-config store.ini] <db> list [-n count] [-from key]
//	pagectl [-config store.ini] <db> size
//	pagectl [-config store.ini] <db> browse
//
// Keys are decimal or 0x-prefixed hex integers, or UUIDs, encoded
// big-endian into the key width. Other strings are taken as raw bytes.
// Values are 0x-prefixed hex or raw strings, zero padded to the value width.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/dacapoday/pagestore/kv"
	"github.com/dacapoday/pagestore/page"
)

func main() {
	configFlag := flag.String("config", "", "INI file with a [store] section")
	levelFlag := flag.String("log", "warn", "log level when no config is given")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: pagectl [-config file] [-log level] <db> insert|delete|contains|get|list|size|browse [args]")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(2)
	}

	opts := kv.DefaultOptions()
	opts.LogLevel = *levelFlag
	if *configFlag != "" {
		var err error
		if opts, err = kv.LoadOptions(*configFlag); err != nil {
			fatal(err)
		}
	}

	path, cmd, args := flag.Arg(0), flag.Arg(1), flag.Args()[2:]
	db, err := kv.Open(path, kv.WithOptions(opts))
	if err != nil {
		fatal(err)
	}

	err = run(context.Background(), db, path, cmd, args)
	if cerr := db.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func run(ctx context.Context, db *kv.DB, path, cmd string, args []string) error {
	l := db.Layout()
	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%s: missing argument", cmd)
		}
		return nil
	}

	switch cmd {
	case "insert":
		if err := need(1); err != nil {
			return err
		}
		key, err := parseKey(args[0], l.KeyWidth)
		if err != nil {
			return err
		}
		var val []byte
		if len(args) > 1 {
			if val, err = parseValue(args[1], l.ValueWidth); err != nil {
				return err
			}
		} else {
			val = make([]byte, l.ValueWidth)
		}
		return db.Insert(ctx, key, val)

	case "delete":
		if err := need(1); err != nil {
			return err
		}
		key, err := parseKey(args[0], l.KeyWidth)
		if err != nil {
			return err
		}
		err = db.Delete(ctx, key)
		if errors.Is(err, kv.ErrKeyNotFound) {
			return fmt.Errorf("%s: not found", args[0])
		}
		return err

	case "contains":
		if err := need(1); err != nil {
			return err
		}
		key, err := parseKey(args[0], l.KeyWidth)
		if err != nil {
			return err
		}
		ok, err := db.Contains(ctx, key)
		if err != nil {
			return err
		}
		fmt.Println(ok)

	case "get":
		if err := need(1); err != nil {
			return err
		}
		key, err := parseKey(args[0], l.KeyWidth)
		if err != nil {
			return err
		}
		val, ok, err := db.Get(ctx, key)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: not found", args[0])
		}
		fmt.Println(display(val, 80))

	case "list":
		return runList(ctx, db, args)

	case "size":
		size, err := db.FileSize(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("logical  %s (%d pages)\n", humanize.IBytes(uint64(size)), size/page.Size)
		for _, name := range []string{path, path + ".wal", path + ".shadow"} {
			if fi, err := os.Stat(name); err == nil {
				fmt.Printf("%-8s %s\n", strings.TrimPrefix(strings.TrimPrefix(name, path), "."), humanize.IBytes(uint64(fi.Size())))
			}
		}

	case "browse":
		return runInteractive(ctx, db)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func runList(ctx context.Context, db *kv.DB, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	count := fs.Int("n", 0, "number of items (0 = all)")
	from := fs.String("from", "", "first key")
	if err := fs.Parse(args); err != nil {
		return err
	}

	it := db.Iter(ctx)
	defer it.Close()
	if *from != "" {
		key, err := parseKey(*from, db.Layout().KeyWidth)
		if err != nil {
			return err
		}
		it.Seek(key)
	} else {
		it.SeekFirst()
	}

	for n := 0; it.Valid(); it.Next() {
		if *count > 0 && n >= *count {
			break
		}
		if len(it.Val()) == 0 {
			fmt.Println(formatKey(it.Key()))
		} else {
			fmt.Printf("%s: %s\n", formatKey(it.Key()), display(it.Val(), 60))
		}
		n++
	}
	return it.Error()
}

// parseKey encodes s into width bytes.
func parseKey(s string, width int) ([]byte, error) {
	id, err := page.ParseID(s)
	if err != nil {
		return parseValue(s, width)
	}
	b := id.Bytes()
	if width >= page.IDSize {
		return append(make([]byte, width-page.IDSize), b...), nil
	}
	for _, c := range b[:page.IDSize-width] {
		if c != 0 {
			return nil, fmt.Errorf("key %s does not fit in %d bytes", s, width)
		}
	}
	return b[page.IDSize-width:], nil
}

// parseValue decodes 0x-prefixed hex or takes s as raw bytes, zero padded
// to width.
func parseValue(s string, width int) ([]byte, error) {
	raw := []byte(s)
	if rest, ok := strings.CutPrefix(s, "0x"); ok {
		var err error
		if raw, err = hex.DecodeString(rest); err != nil {
			return nil, err
		}
	}
	if len(raw) > width {
		return nil, fmt.Errorf("%q is longer than %d bytes", s, width)
	}
	b := make([]byte, width)
	copy(b, raw)
	return b, nil
}

// formatKey prints keys of up to 16 bytes as integers.
func formatKey(key []byte) string {
	if len(key) > page.IDSize {
		return display(key, 40)
	}
	var b [page.IDSize]byte
	copy(b[page.IDSize-len(key):], key)
	return page.IDFromBytes(b[:]).String()
}
