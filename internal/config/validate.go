package config

import (
	"fmt"
	"slices"
	"strings"
)

// Validate checks a Config for values that would make a run meaningless.
func Validate(c *Config) error {
	switch {
	case c == nil:
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case len(c.Modes) == 0:
		return fmt.Errorf("%w: modes must not be empty", ErrInvalidConfig)
	case c.ActiveWindowMonths <= 0:
		return fmt.Errorf("%w: active_window_months must be positive", ErrInvalidConfig)
	case c.MinTotalRecords <= 0:
		return fmt.Errorf("%w: min_total_records must be positive", ErrInvalidConfig)
	case c.MinMapParticipants < 0 || c.MinTop1TimeMS < 0 || c.MinTopRelTime < 0:
		return fmt.Errorf("%w: ban thresholds must not be negative", ErrInvalidConfig)
	case c.Curve.V == 0:
		return fmt.Errorf("%w: curve.v must not be zero", ErrInvalidConfig)
	case c.Decay <= 0:
		return fmt.Errorf("%w: decay must be positive", ErrInvalidConfig)
	case len(c.KafkaBrokers) > 0 && c.KafkaTopic == "":
		return fmt.Errorf("%w: kafka_topic is required with kafka_brokers", ErrInvalidConfig)
	}

	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	return nil
}

// ValidateMode rejects modes the config does not list.
func (c *Config) ValidateMode(mode string) error {
	if !slices.Contains(c.Modes, mode) {
		return fmt.Errorf("%w: unknown mode %q (known: %s)", ErrInvalidConfig, mode, strings.Join(c.Modes, ","))
	}
	return nil
}
