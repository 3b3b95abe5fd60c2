// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package wal

import (
	"maps"
	"slices"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dacapoday/pagestore"
	"github.com/dacapoday/pagestore/internal/retry"
	"github.com/dacapoday/pagestore/page"
)

// Options configures a Log.
type Options struct {
	Compression Compression
	Retry       retry.Policy
	Logger      logrus.FieldLogger
}

// Log appends committed pages to the log file and keeps a replayer
// applying them to the shadow file. Only one goroutine may call Commit.
type Log struct {
	file   pagestore.File
	enc    Encoder
	buf    []byte
	offset int64
	parity bool
	err    error
	logger logrus.FieldLogger

	// state is written by the replayer only.
	state    atomic.Uint64
	notify   chan segment
	replayer *replayer
}

// segment tells the replayer how far the log of one parity extends.
type segment struct {
	parity bool
	end    int64
}

func pack(offset int64, parity bool) uint64 {
	v := uint64(offset) << 1
	if parity {
		v |= 1
	}
	return v
}

func unpack(v uint64) (offset int64, parity bool) {
	return int64(v >> 1), v&1 == 1
}

// Open starts a log over file, which must be empty (as left by Recover),
// replaying into shadow.
func Open(file, shadow pagestore.File, opts Options) (*Log, error) {
	size, err := sizeOf(file)
	if err != nil {
		return nil, errors.Wrap(err, "wal: open")
	}
	if size != 0 {
		return nil, errors.Errorf("wal: open: log holds %d unrecovered bytes", size)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	l := &Log{
		file:   file,
		enc:    Encoder{Compression: opts.Compression},
		logger: logger,
		notify: make(chan segment, 1),
	}
	l.replayer = newReplayer(file, shadow, &l.state, l.notify, opts.Retry, logger)
	go l.replayer.run()
	return l, nil
}

// Offset returns the write offset and parity of the log.
func (l *Log) Offset() (int64, bool) {
	return l.offset, l.parity
}

// Replayed returns the offset and parity the replayer has reached.
func (l *Log) Replayed() (int64, bool) {
	return unpack(l.state.Load())
}

// Commit makes pages durable: it appends one record per page in a single
// write and syncs the log. When Commit returns nil the pages survive a
// crash. A failed write is cut off again; if that fails as well the Log
// refuses all further commits.
func (l *Log) Commit(pages map[page.Number]*page.Page) error {
	if l.err != nil {
		return l.err
	}
	select {
	case <-l.replayer.done:
		l.err = errors.Wrapf(ErrReplayDown, "%v", l.replayer.err)
		return l.err
	default:
	}
	if len(pages) == 0 {
		return nil
	}

	if l.offset > 0 && l.state.Load() == pack(l.offset, l.parity) {
		err := l.file.Truncate(0)
		if err == nil {
			err = l.file.Sync()
		}
		if err != nil {
			l.err = errors.Wrap(err, "wal: reset log")
			return l.err
		}
		l.offset, l.parity = 0, !l.parity
		l.logger.WithField("parity", l.parity).Debug("wal: log drained, reset")
	}

	l.buf = l.buf[:0]
	for _, n := range slices.Sorted(maps.Keys(pages)) {
		l.buf = l.enc.AppendPage(l.buf, n, pages[n])
	}
	if err := l.write(l.buf); err != nil {
		return err
	}
	l.publish()
	return nil
}

// Init writes the record that bootstraps an empty store of layout ly. It is only meaningful on a
// log that has not committed anything.
func (l *Log) Init(ly page.Layout) error {
	if l.err != nil {
		return l.err
	}
	if err := l.write(AppendInit(nil, ly)); err != nil {
		return err
	}
	l.publish()
	return nil
}

func (l *Log) write(buf []byte) (err error) {
	if _, err = l.file.WriteAt(buf, l.offset); err == nil {
		err = l.file.Sync()
	}
	if err == nil {
		l.offset += int64(len(buf))
		return nil
	}
	err = errors.Wrapf(err, "wal: commit %d bytes at %d", len(buf), l.offset)
	if terr := l.file.Truncate(l.offset); terr != nil {
		l.err = errors.Wrapf(terr, "wal: cut off failed commit (%v)", err)
		l.logger.WithError(l.err).Error("wal: log is unusable")
	}
	return err
}

// publish hands the new end of the log to the replayer. Only the latest
// segment matters, so an unconsumed one is replaced.
func (l *Log) publish() {
	seg := segment{parity: l.parity, end: l.offset}
	select {
	case l.notify <- seg:
	default:
		select {
		case <-l.notify:
		default:
		}
		l.notify <- seg
	}
}

// Close lets the replayer apply everything committed and waits for it to
// exit. It does not close the files.
func (l *Log) Close() error {
	if l.notify == nil {
		return ErrClosed
	}
	close(l.notify)
	l.notify = nil
	<-l.replayer.done
	if l.err == nil {
		l.err = ErrClosed
	}
	return l.replayer.err
}
