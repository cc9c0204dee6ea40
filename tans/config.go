package tans

import (
	"log"
	"runtime"
)

const defaultSubsequenceSize = 4

// config holds the resolved settings for a Decoder. It is built by
// newConfig from a set of Options the same way zstd's decoderOptions is
// built from DOption values: defaults first, then each option applied in
// order, any of which may reject the configuration outright.
type config struct {
	subsequenceSize int
	threads         int
	checksum        bool
	logger          *log.Logger
}

// Option configures a Decoder. Options are applied in the order given to
// NewDecoder; a later option overrides an earlier one that touched the
// same field.
type Option func(*config) error

// WithSubsequenceSize sets the number of units per subsequence (S in the
// interval planner). It must be a positive multiple of 4. The default is 4.
func WithSubsequenceSize(units int) Option {
	return func(c *config) error {
		if units <= 0 || units%4 != 0 {
			return &ConfigError{Field: "SubsequenceSize", Value: units, Msg: "must be a positive multiple of 4"}
		}
		c.subsequenceSize = units
		return nil
	}
}

// WithThreads sets the number of decoder goroutines (T). It must be at
// least 1. The default is runtime.GOMAXPROCS(0), mirroring zstd.Decoder's
// concurrency default.
func WithThreads(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return &ConfigError{Field: "Threads", Value: n, Msg: "must be at least 1"}
		}
		c.threads = n
		return nil
	}
}

// WithChecksum enables computing an xxhash64 checksum of the decoded output,
// retrievable afterward through Decoder.Checksum. Disabled by default.
func WithChecksum(enabled bool) Option {
	return func(c *config) error {
		c.checksum = enabled
		return nil
	}
}

// WithLogger sets a logger the Decoder uses for optional diagnostics (phase
// 2 iteration counts, interval sizes). Nil, the default, disables logging
// entirely; the Decoder never logs unless a logger is supplied.
func WithLogger(l *log.Logger) Option {
	return func(c *config) error {
		c.logger = l
		return nil
	}
}

func newConfig(opts ...Option) (*config, error) {
	c := &config{
		subsequenceSize: defaultSubsequenceSize,
		threads:         runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *config) logf(format string, args ...interface{}) {
	if c.logger == nil {
		return
	}
	c.logger.Printf(format, args...)
}
