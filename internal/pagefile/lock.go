// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package pagefile

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/dacapoday/pagestore"
)

// Lock takes an exclusive advisory lock on file without blocking.
// It fails with pagestore.ErrLocked when another process holds it.
func Lock(file *os.File) error {
	err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if errors.Is(err, unix.EWOULDBLOCK) {
		return fmt.Errorf("%s: %w", file.Name(), pagestore.ErrLocked)
	}
	if err != nil {
		return fmt.Errorf("flock %s: %w", file.Name(), err)
	}
	return nil
}

// Unlock releases the lock taken by Lock.
func Unlock(file *os.File) error {
	return unix.Flock(int(file.Fd()), unix.LOCK_UN)
}
