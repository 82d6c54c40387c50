package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "RACERANK_"
	envFileVar = "RACERANK_CONFIG"
)

// nestedKeys are env key prefixes that map onto nested config sections,
// e.g. RACERANK_CURVE_A -> curve.a.
var nestedKeys = []string{"curve_"} //nolint:gochecknoglobals // fixed key table

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML): path, or RACERANK_CONFIG when path is empty
//  3. env (prefix RACERANK_)
//
// The result is validated before it is returned.
func Load(_ context.Context, path string) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(envFileVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: file %s: %w", ErrLoadConfig, path, err)
		}
	}

	// RACERANK_WORKER_COUNT -> worker_count; underscores are kept to match
	// the koanf tags, except for nested sections.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		for _, p := range nestedKeys {
			if strings.HasPrefix(s, p) {
				return strings.TrimSuffix(p, "_") + "." + strings.TrimPrefix(s, p)
			}
		}
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
