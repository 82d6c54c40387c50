// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New returns a Config filled with defaults; Load layers file and env on top.
// - Validate must pass before any partition is computed.
// - Errors returned from this package wrap ErrInvalidConfig or ErrLoadConfig.
package config

import (
	"runtime"

	"github.com/okian/racerank/internal/domain/scoring"
)

// Curve holds the generalized-logistic score curve constants.
type Curve struct {
	A float64 `koanf:"a"`
	B float64 `koanf:"b"`
	M float64 `koanf:"m"`
	V float64 `koanf:"v"`
	Q float64 `koanf:"q"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the ops HTTP listen address used in daemon mode.
	Addr string `koanf:"addr"`

	// WorkerCount bounds how many partitions are computed at once.
	WorkerCount int `koanf:"worker_count"`

	// PostgresURL points at the record and rating store. The command refuses
	// to run without it.
	PostgresURL string `koanf:"postgres_url"`

	// RedisAddr enables the leaderboard mirror when set.
	RedisAddr string `koanf:"redis_addr"`

	// KafkaBrokers and KafkaTopic enable publish notifications when set.
	KafkaBrokers []string `koanf:"kafka_brokers"`
	KafkaTopic   string   `koanf:"kafka_topic"`

	// Modes lists the game modes the entry point accepts.
	Modes []string `koanf:"modes"`

	// ActiveWindowMonths is the trailing activity window for active ranks.
	ActiveWindowMonths int `koanf:"active_window_months"`

	// MinTotalRecords is the sample floor below which ratings are dampened.
	MinTotalRecords int `koanf:"min_total_records"`

	// Map ban thresholds. Zero disables a rule.
	MinMapParticipants int      `koanf:"min_map_participants"`
	MinTop1TimeMS      int64    `koanf:"min_top1_time_ms"`
	MinTopRelTime      float64  `koanf:"min_top_reltime"`
	BannedMaps         []string `koanf:"banned_maps"`

	// Curve and Decay parameterize scoring and rank-decay weighting.
	Curve Curve   `koanf:"curve"`
	Decay float64 `koanf:"decay"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		WorkerCount:        runtime.NumCPU(),
		KafkaTopic:         "racerank.ratings",
		Modes:              []string{"run"},
		ActiveWindowMonths: 3,
		MinTotalRecords:    scoring.DefaultMinTotalRecords,
		MinMapParticipants: scoring.DefaultMinMapParticipants,
		MinTop1TimeMS:      scoring.DefaultMinTop1MS,
		MinTopRelTime:      scoring.DefaultMinTopRelTime,
		Curve: Curve{
			A: scoring.DefaultA,
			B: scoring.DefaultB,
			M: scoring.DefaultM,
			V: scoring.DefaultV,
			Q: scoring.DefaultQ,
		},
		Decay: scoring.DefaultD,
	}
}

// ScoringModel builds the immutable scoring model for one run.
func (c *Config) ScoringModel() *scoring.Model {
	return scoring.New(
		scoring.WithCurve(scoring.Curve{A: c.Curve.A, B: c.Curve.B, M: c.Curve.M, V: c.Curve.V, Q: c.Curve.Q}),
		scoring.WithDecay(c.Decay),
		scoring.WithBanThresholds(c.MinMapParticipants, c.MinTop1TimeMS, c.MinTopRelTime),
		scoring.WithBannedMaps(c.BannedMaps),
		scoring.WithMinTotalRecords(c.MinTotalRecords),
	)
}
