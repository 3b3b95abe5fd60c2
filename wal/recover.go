// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package wal

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dacapoday/pagestore"
	"github.com/dacapoday/pagestore/internal/pagefile"
	"github.com/dacapoday/pagestore/page"
)

// RecoverStats describes what Recover replayed.
type RecoverStats struct {
	Records int
	Bytes   int64
}

func sizeOf(f pagestore.File) (int64, error) {
	return pagefile.Size(f)
}

// Recover brings the data file to the state of the last complete record in
// the log, whatever happened to the previous process:
//
//  1. a shadow file without a valid header, empty or left behind by an
//     interrupted seed, is seeded from a non-empty data file;
//  2. every complete record of the log is applied to the shadow file,
//     stopping silently at the first torn one;
//  3. the shadow file is copied over the data file and synced;
//  4. the log is truncated.
func Recover(data, log, shadow pagestore.File, logger logrus.FieldLogger) (stats RecoverStats, err error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	dataFile, shadowFile := pagefile.New(data), pagefile.New(shadow)

	dataSize, err := dataFile.Size()
	if err != nil {
		return stats, errors.Wrap(err, "wal: recover: size of data file")
	}
	shadowSize, err := shadowFile.Size()
	if err != nil {
		return stats, errors.Wrap(err, "wal: recover: size of shadow file")
	}
	if dataSize > 0 && !seeded(shadowFile, shadowSize) {
		if err = shadowFile.CopyFrom(dataFile); err != nil {
			return stats, errors.Wrap(err, "wal: recover: seed shadow file")
		}
		logger.WithField("bytes", dataSize).Info("wal: shadow file seeded from data file")
	}

	buf := make([]byte, maxRecord)
	for {
		rec, size, err := ReadRecord(log, stats.Bytes, buf)
		if errors.Is(err, io.EOF) {
			break
		}
		if IsCorrupt(err) {
			logger.WithError(err).WithField("offset", stats.Bytes).Warn("wal: recover: discarding torn tail")
			break
		}
		if err != nil {
			return stats, errors.Wrap(err, "wal: recover")
		}
		if err = apply(shadowFile, rec); err != nil {
			return stats, errors.Wrap(err, "wal: recover: apply")
		}
		stats.Records++
		stats.Bytes += size
	}

	if err = shadowFile.Sync(); err != nil {
		return stats, errors.Wrap(err, "wal: recover: sync shadow file")
	}
	if err = dataFile.CopyFrom(shadowFile); err != nil {
		return stats, errors.Wrap(err, "wal: recover: copy shadow file")
	}
	if err = log.Truncate(0); err != nil {
		return stats, errors.Wrap(err, "wal: recover: truncate log")
	}
	if err = log.Sync(); err != nil {
		return stats, errors.Wrap(err, "wal: recover: sync log")
	}
	logger.WithFields(logrus.Fields{
		"records": stats.Records,
		"bytes":   stats.Bytes,
	}).Debug("wal: recovered")
	return stats, nil
}

// seeded reports whether shadow holds a complete copy. CopyFrom writes the
// header page last.
func seeded(shadow *pagefile.File, size int64) bool {
	if size < page.Size {
		return false
	}
	p, err := shadow.LoadPage(page.HeaderNumber)
	if err != nil {
		return false
	}
	h := page.HeaderOf(p)
	return h.Check(h.Layout()) == nil
}

// Bootstrap recovers the store like Recover and initializes it when the
// data file is still empty, by logging an Init record for layout l and
// recovering again.
func Bootstrap(data, log, shadow pagestore.File, l page.Layout, logger logrus.FieldLogger) (stats RecoverStats, err error) {
	if stats, err = Recover(data, log, shadow, logger); err != nil {
		return
	}
	size, err := sizeOf(data)
	if err != nil {
		return stats, errors.Wrap(err, "wal: bootstrap")
	}
	if size != 0 {
		return stats, nil
	}
	if err = l.Validate(); err != nil {
		return stats, errors.Wrap(err, "wal: bootstrap")
	}
	if _, err = log.WriteAt(AppendInit(nil, l), 0); err != nil {
		return stats, errors.Wrap(err, "wal: bootstrap: write init record")
	}
	if err = log.Sync(); err != nil {
		return stats, errors.Wrap(err, "wal: bootstrap: sync log")
	}
	return Recover(data, log, shadow, logger)
}
