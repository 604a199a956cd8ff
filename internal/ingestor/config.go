package ingestor

import (
	"time"

	"github.com/openshift/rosa-log-ingestor/internal/compression"
	"github.com/openshift/rosa-log-ingestor/internal/ingesterrors"
	"github.com/openshift/rosa-log-ingestor/internal/multiline"
)

// Config is the resolved, immutable configuration an Ingestor is
// constructed from. Callers build this from YAML plus environment
// overrides (see cmd/ingestor) and pass it to New.
type Config struct {
	Region            string
	QueueName         string
	PollInterval      time.Duration
	VisibilityTimeout int64
	DeleteMessage     bool
	Compression       compression.Kind
	Multiline         *multiline.Config
}

// DefaultConfig returns the defaults the YAML schema documents: a
// 15-second poll, a 300-second visibility timeout, delete-on-success
// enabled, and automatic compression detection.
func DefaultConfig() Config {
	return Config{
		PollInterval:      15 * time.Second,
		VisibilityTimeout: 300,
		DeleteMessage:     true,
		Compression:       compression.Auto,
	}
}

// Validate checks the invariants New requires before constructing an
// Ingestor: a non-empty region, a non-negative visibility timeout, and
// a strictly positive poll interval. Region is mandatory because
// processRecord relies on it to reject cross-region notifications
// unconditionally.
func (c Config) Validate() error {
	if c.Region == "" {
		return &ingesterrors.MissingRegionError{}
	}
	if c.VisibilityTimeout < 0 {
		return &ingesterrors.InvalidVisibilityTimeoutError{Timeout: c.VisibilityTimeout}
	}
	if c.PollInterval <= 0 {
		return &ingesterrors.InvalidPollIntervalError{Interval: c.PollInterval.String()}
	}
	return nil
}
