// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

// Package logger builds the logrus logger of a store from configuration.
package logger

import (
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
)

// Config selects the level and destination of log output. An empty File
// logs to stderr.
type Config struct {
	Level string `ini:"log_level"`
	File  string `ini:"log_file"`
}

// Formatter writes one compact line per entry:
//
//	[15:04:05.000 2006/01/02] [INFO] message key=value ...
type Formatter struct {
	TimestampFormat string
}

const defaultTimestampFormat = "15:04:05.000 2006/01/02"

// Format implements logrus.Formatter.
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	layout := f.TimestampFormat
	if layout == "" {
		layout = defaultTimestampFormat
	}
	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s", entry.Time.Format(layout), level, entry.Message)
	for _, k := range slices.Sorted(maps.Keys(entry.Data)) {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// ParseLevel parses a level name; unknown names mean info.
func ParseLevel(level string) logrus.Level {
	if level == "" {
		return logrus.InfoLevel
	}
	l, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return l
}

// New returns a logger for cfg and the closer of its output file.
func New(cfg Config) (*logrus.Logger, io.Closer, error) {
	l := logrus.New()
	l.SetFormatter(&Formatter{})
	l.SetLevel(ParseLevel(cfg.Level))
	if cfg.File == "" {
		l.SetOutput(os.Stderr)
		return l, io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	l.SetOutput(file)
	return l, file, nil
}
