// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package wal

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dacapoday/pagestore"
	"github.com/dacapoday/pagestore/internal/pagefile"
	"github.com/dacapoday/pagestore/internal/retry"
	"github.com/dacapoday/pagestore/page"
)

// replayer applies committed records to the shadow file in log order.
// Its position is published through state, the only value it shares with
// the writer.
type replayer struct {
	log    pagestore.File
	shadow *pagefile.File
	state  *atomic.Uint64
	notify <-chan segment
	policy retry.Policy
	logger logrus.FieldLogger
	buf    []byte

	offset int64
	parity bool

	done chan struct{}
	err  error
}

func newReplayer(log, shadow pagestore.File, state *atomic.Uint64, notify <-chan segment, policy retry.Policy, logger logrus.FieldLogger) *replayer {
	return &replayer{
		log:    log,
		shadow: pagefile.New(shadow),
		state:  state,
		notify: notify,
		policy: policy,
		logger: logger,
		buf:    make([]byte, maxRecord),
		done:   make(chan struct{}),
	}
}

func (r *replayer) run() {
	defer close(r.done)
	for seg := range r.notify {
		if seg.parity != r.parity {
			r.offset, r.parity = 0, seg.parity
			r.publish()
		}
		if err := r.replay(seg.end); err != nil {
			r.err = err
			r.logger.WithError(err).WithFields(logrus.Fields{
				"offset": r.offset,
				"parity": r.parity,
			}).Error("wal: replayer gave up")
			return
		}
	}
}

func (r *replayer) publish() {
	r.state.Store(pack(r.offset, r.parity))
}

// replay applies records up to end. A corrupt record ends the range
// early without error; the next segment starts over from it.
func (r *replayer) replay(end int64) error {
	for r.offset < end {
		var size int64
		err := r.policy.Do(context.Background(), func() (err error) {
			size, err = r.step()
			if IsCorrupt(err) {
				return retry.Permanent(err)
			}
			return err
		}, func(err error, wait time.Duration) {
			r.logger.WithError(err).WithField("offset", r.offset).Warnf("wal: replay failed, retry in %v", wait)
		})
		if IsCorrupt(err) {
			r.logger.WithError(err).WithField("offset", r.offset).Debug("wal: replay stopped at torn record")
			return nil
		}
		if err != nil {
			return err
		}
		r.offset += size
		r.publish()
	}
	return nil
}

func (r *replayer) step() (int64, error) {
	rec, size, err := ReadRecord(r.log, r.offset, r.buf)
	if errors.Is(err, io.EOF) {
		err = errors.Wrapf(io.ErrUnexpectedEOF, "wal: log ends at %d", r.offset)
	}
	if err != nil {
		return 0, err
	}
	if err = apply(r.shadow, rec); err != nil {
		return 0, err
	}
	return size, r.shadow.Sync()
}

// apply writes the pages of rec to f.
func apply(f *pagefile.File, rec Record) error {
	if rec.Type != BodyInit {
		return f.WritePage(rec.Page, rec.Data)
	}
	header, root := page.Bootstrap(rec.Layout)
	if err := f.WritePage(page.HeaderNumber, header); err != nil {
		return err
	}
	return f.WritePage(1, root)
}
