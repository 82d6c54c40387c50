package pipeline

import (
	"time"

	"github.com/okian/racerank/internal/domain/scoring"
	"github.com/okian/racerank/pkg/logger"
)

// Option applies a configuration option to the Runner.
type Option func(*Runner)

// WithModel sets the scoring model shared by every partition.
func WithModel(m *scoring.Model) Option {
	return func(r *Runner) {
		if m != nil {
			r.model = m
		}
	}
}

// WithActiveWindowMonths sets the trailing activity window.
func WithActiveWindowMonths(months int) Option {
	return func(r *Runner) {
		if months > 0 {
			r.windowMonths = months
		}
	}
}

// WithMirrors adds best-effort mirrors run after each successful publish.
func WithMirrors(mirrors ...Mirror) Option {
	return func(r *Runner) {
		for _, m := range mirrors {
			if m != nil {
				r.mirrors = append(r.mirrors, m)
			}
		}
	}
}

// WithClock overrides the time source used for the activity window.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets a custom logger for the runner.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}
