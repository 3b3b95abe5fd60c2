package kv

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"

	"github.com/dacapoday/pagestore/backend"
	"github.com/dacapoday/pagestore/internal/retry"
	"github.com/dacapoday/pagestore/logger"
	"github.com/dacapoday/pagestore/page"
	"github.com/dacapoday/pagestore/wal"
)

// Options configures a store. The ini tags name the keys of the [store]
// section read by LoadOptions.
type Options struct {
	KeyWidth   int `ini:"key_width"`
	ValueWidth int `ini:"value_width"`

	CachePages  int64         `ini:"cache_pages"`
	MaxBatch    int           `ini:"max_batch"`
	BatchWindow time.Duration `ini:"batch_window"`
	IdleWait    time.Duration `ini:"idle_wait"`
	QueueDepth  int           `ini:"queue_depth"`

	// WALCompression is one of "none", "snappy" or "lz4".
	WALCompression string `ini:"wal_compression"`

	RetryInitial  time.Duration `ini:"retry_initial"`
	RetryMax      time.Duration `ini:"retry_max"`
	RetryAttempts int           `ini:"retry_attempts"`

	LogLevel string `ini:"log_level"`
	LogFile  string `ini:"log_file"`

	// Logger overrides LogLevel and LogFile.
	Logger logrus.FieldLogger `ini:"-"`
}

// Option mutates Options.
type Option func(*Options)

// DefaultOptions returns the options of an id-set store.
func DefaultOptions() Options {
	def := backend.DefaultConfig(page.IDSet)
	return Options{
		KeyWidth:       page.IDSet.KeyWidth,
		ValueWidth:     page.IDSet.ValueWidth,
		CachePages:     def.CachePages,
		MaxBatch:       def.MaxBatch,
		BatchWindow:    def.BatchWindow,
		IdleWait:       def.IdleWait,
		QueueDepth:     def.QueueDepth,
		WALCompression: wal.CompressNone.String(),
		RetryInitial:   def.Retry.Initial,
		RetryMax:       def.Retry.Max,
		RetryAttempts:  def.Retry.Attempts,
		LogLevel:       "info",
	}
}

// LoadOptions reads the [store] section of an INI file over
// DefaultOptions. Missing keys keep their defaults.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	cfg, err := ini.Load(path)
	if err != nil {
		return opts, errors.Wrap(err, "kv: load options")
	}
	if err = cfg.Section("store").MapTo(&opts); err != nil {
		return opts, errors.Wrapf(err, "kv: map options from %s", path)
	}
	return opts, nil
}

// WithLayout sets the key and value widths.
func WithLayout(l page.Layout) Option {
	return func(o *Options) {
		o.KeyWidth, o.ValueWidth = l.KeyWidth, l.ValueWidth
	}
}

// WithCachePages sets the number of pages cached between batches.
func WithCachePages(n int64) Option {
	return func(o *Options) { o.CachePages = n }
}

// WithBatch sets the batch size and collection window.
func WithBatch(size int, window time.Duration) Option {
	return func(o *Options) {
		o.MaxBatch, o.BatchWindow = size, window
	}
}

// WithCompression sets the compression of log records.
func WithCompression(c wal.Compression) Option {
	return func(o *Options) { o.WALCompression = c.String() }
}

// WithRetry sets the retry policy of log replay and page flush.
func WithRetry(p retry.Policy) Option {
	return func(o *Options) {
		o.RetryInitial, o.RetryMax, o.RetryAttempts = p.Initial, p.Max, p.Attempts
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithOptions replaces all options, typically with the result of
// LoadOptions.
func WithOptions(opts Options) Option {
	return func(o *Options) { *o = opts }
}

// Layout returns the page layout the options describe.
func (o Options) Layout() page.Layout {
	return page.Layout{KeyWidth: o.KeyWidth, ValueWidth: o.ValueWidth}
}

func (o Options) config() (cfg backend.Config, err error) {
	cfg = backend.DefaultConfig(o.Layout())
	if err = cfg.Layout.Validate(); err != nil {
		return cfg, errors.WithStack(err)
	}
	if cfg.Compression, err = wal.ParseCompression(o.WALCompression); err != nil {
		return cfg, err
	}
	cfg.CachePages = o.CachePages
	cfg.MaxBatch = o.MaxBatch
	cfg.BatchWindow = o.BatchWindow
	cfg.IdleWait = o.IdleWait
	cfg.QueueDepth = o.QueueDepth
	cfg.Retry = retry.Policy{
		Initial:  o.RetryInitial,
		Max:      o.RetryMax,
		Attempts: o.RetryAttempts,
	}
	cfg.Logger = o.Logger
	return cfg, nil
}

func (o Options) logConfig() logger.Config {
	return logger.Config{Level: o.LogLevel, File: o.LogFile}
}
