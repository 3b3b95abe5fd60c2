package task

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGroupSuccess(t *testing.T) {
	var g Group
	var executed atomic.Int32
	for range 8 {
		g.Go(func() error {
			executed.Add(1)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, int32(8), executed.Load())
}

func TestGroupErrors(t *testing.T) {
	var g Group
	err1 := errors.New("error 1")
	err2 := errors.New("error 2")
	g.Go(func() error { return err1 })
	g.Go(func() error { return err2 })
	g.Go(func() error { return nil })

	err := g.Wait()
	require.ErrorIs(t, err, err1)
	require.ErrorIs(t, err, err2)

	var errs *Errors
	require.ErrorAs(t, err, &errs)
	require.Equal(t, 2, errs.Len())
	require.Contains(t, err.Error(), "error 1")
	require.Contains(t, err.Error(), "error 2")

	require.NoError(t, g.Wait())
}

func TestGroupPanic(t *testing.T) {
	var g Group
	g.Go(func() error { panic("test panic") })
	err := g.Wait()
	require.Error(t, err)
	require.Contains(t, err.Error(), "recovered💊: test panic")

	panicErr := errors.New("panic error")
	g.Go(func() error { panic(panicErr) })
	require.ErrorIs(t, g.Wait(), panicErr)
}

func TestGroupLimit(t *testing.T) {
	g := WithLimit(2)
	var running, peak atomic.Int32
	for range 10 {
		g.Go(func() error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.LessOrEqual(t, peak.Load(), int32(2))
}
