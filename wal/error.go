// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package wal

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

var (
	// ErrCorrupt marks a record that cannot be trusted: the torn tail of a
	// write in progress or of a crashed process.
	ErrCorrupt = errors.New("wal: corrupt record")

	ErrChecksum = fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	ErrBodyType = fmt.Errorf("%w: unknown body type", ErrCorrupt)
	ErrBodySize = fmt.Errorf("%w: bad body size", ErrCorrupt)

	// ErrReplayDown is returned by Commit once the replayer has exited.
	ErrReplayDown = errors.New("wal: replayer is down")

	ErrClosed = errors.New("wal: log closed")
)

// IsCorrupt reports whether err means the log ends in an incomplete or
// damaged record, which readers treat as the end of the log.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorrupt) || errors.Is(err, io.ErrUnexpectedEOF)
}
