// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

// Package task runs a set of functions concurrently and collects every
// error and panic they produce.
package task

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// Group is a set of goroutines. The zero value is ready to use and runs
// without a concurrency limit.
type Group struct {
	wg   sync.WaitGroup
	sem  chan struct{}
	head atomic.Pointer[Errors]
}

// WithLimit returns a Group running at most n functions at a time.
func WithLimit(n int) *Group {
	g := &Group{}
	if n > 0 {
		g.sem = make(chan struct{}, n)
	}
	return g
}

// Go runs f in a new goroutine. A panic in f is recovered and reported by
// Wait like a returned error.
func (g *Group) Go(f func() error) {
	g.wg.Add(1)
	if g.sem != nil {
		g.sem <- struct{}{}
	}
	go func() {
		end := false
		defer func() {
			if g.sem != nil {
				<-g.sem
			}
			g.wg.Done()
		}()
		defer func() {
			if end {
				return
			}
			switch v := recover().(type) {
			case nil:
			case error:
				g.push(v)
			default:
				g.push(recovered{v})
			}
		}()
		if err := f(); err != nil {
			g.push(err)
		}
		end = true
	}()
}

func (g *Group) push(err error) {
	e := &Errors{err: err}
	for {
		head := g.head.Load()
		e.next = head
		if g.head.CompareAndSwap(head, e) {
			return
		}
	}
}

// Wait blocks until every function has returned. It returns nil or an
// *Errors holding all failures, most recent first.
func (g *Group) Wait() error {
	g.wg.Wait()
	head := g.head.Swap(nil)
	if head == nil {
		return nil
	}
	return head
}

// Errors is a lock-free stack of failures.
type Errors struct {
	next *Errors
	err  error
}

func (e *Errors) each(yield func(error) bool) {
	for ; e != nil; e = e.next {
		if !yield(e.err) {
			return
		}
	}
}

// Len reports the number of failures.
func (e *Errors) Len() (n int) {
	for range e.each {
		n++
	}
	return
}

func (e *Errors) Error() string {
	var msg []string
	for err := range e.each {
		msg = append(msg, err.Error())
	}
	return strings.Join(msg, "\n")
}

func (e *Errors) Unwrap() (errs []error) {
	for err := range e.each {
		errs = append(errs, err)
	}
	return
}

type recovered struct{ any }

func (v recovered) Error() string {
	return fmt.Sprintf("recovered💊: %v", v.any)
}
