//go:build !debug

package page

// assertSorted is a no-op in production.
// Enable with -tags debug for runtime checks.
func assertSorted(string, int, func(int) []byte) {}
