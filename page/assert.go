//go:build debug

package page

import (
	"bytes"
	"fmt"
)

// assertSorted panics unless the n keys returned by key ascend strictly.
// Only enabled with -tags debug.
func assertSorted(method string, n int, key func(int) []byte) {
	for i := 1; i < n; i++ {
		if bytes.Compare(key(i-1), key(i)) >= 0 {
			panic(fmt.Sprintf("%s: key %d %x >= key %d %x", method, i-1, key(i-1), i, key(i)))
		}
	}
}
