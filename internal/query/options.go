package query

import (
	"time"

	"ragdash/internal/logging"
)

const (
	DefaultStaleTime          = 60 * time.Second
	DefaultGCTime             = 5 * time.Minute
	DefaultRetry              = 1
	DefaultRetryDelay         = time.Second
	defaultRefetchConcurrency = 4
)

type Config struct {
	StaleTime  time.Duration
	GCTime     time.Duration
	Retry      int
	RetryDelay time.Duration
	// RefetchConcurrency bounds the refetches a single Invalidate starts.
	RefetchConcurrency int
	Logger             logging.Logger
}

func DefaultConfig() Config {
	return Config{
		StaleTime:          DefaultStaleTime,
		GCTime:             DefaultGCTime,
		Retry:              DefaultRetry,
		RetryDelay:         DefaultRetryDelay,
		RefetchConcurrency: defaultRefetchConcurrency,
	}
}

func (c Config) normalized() Config {
	if c.StaleTime < 0 {
		c.StaleTime = 0
	}
	if c.GCTime < 0 {
		c.GCTime = DefaultGCTime
	}
	if c.Retry < 0 {
		c.Retry = 0
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.RefetchConcurrency <= 0 {
		c.RefetchConcurrency = defaultRefetchConcurrency
	}
	if c.Logger == nil {
		c.Logger = logging.Nop()
	}
	return c
}

type readPolicy struct {
	staleTime  time.Duration
	gcTime     time.Duration
	retry      int
	retryDelay time.Duration
}

// ReadOption overrides the cache defaults for one key.
type ReadOption func(*readPolicy)

func WithStaleTime(d time.Duration) ReadOption {
	return func(p *readPolicy) {
		if d >= 0 {
			p.staleTime = d
		}
	}
}

func WithGCTime(d time.Duration) ReadOption {
	return func(p *readPolicy) {
		if d >= 0 {
			p.gcTime = d
		}
	}
}

func WithRetry(n int) ReadOption {
	return func(p *readPolicy) {
		if n >= 0 {
			p.retry = n
		}
	}
}

func WithRetryDelay(d time.Duration) ReadOption {
	return func(p *readPolicy) {
		if d >= 0 {
			p.retryDelay = d
		}
	}
}
