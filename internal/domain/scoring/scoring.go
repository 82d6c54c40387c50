// Package scoring holds the rating model: the generalized-logistic score
// curve, map ban thresholds, rank-decay weights and small-sample dampening.
package scoring

import (
	"math"
	"strings"
)

// Default model constants.
const (
	DefaultA = 1.5
	DefaultB = 2.086
	DefaultM = 0.3
	DefaultV = 0.1
	DefaultQ = 0.5
	DefaultD = 0.02

	DefaultMinMapParticipants = 5
	DefaultMinTop1MS          = 500
	DefaultMinTopRelTime      = 0.6
	DefaultMinTotalRecords    = 10

	scoreScale = 1000
)

// Curve holds the generalized-logistic constants.
type Curve struct {
	A, B, M, V, Q float64
}

// Option applies a configuration option to the Model.
type Option func(*Model)

// WithCurve overrides the curve constants. V must be non-zero.
func WithCurve(c Curve) Option {
	return func(m *Model) {
		if c.V != 0 {
			m.curve = c
		}
	}
}

// WithDecay sets D in weight = e^(-D * rank).
func WithDecay(d float64) Option {
	return func(m *Model) {
		if d > 0 {
			m.decay = d
		}
	}
}

// WithBanThresholds sets the map ban thresholds. A zero threshold disables
// its rule; negative values are ignored.
func WithBanThresholds(minParticipants int, minTop1MS int64, minTopRelTime float64) Option {
	return func(m *Model) {
		if minParticipants >= 0 {
			m.minParticipants = minParticipants
		}
		if minTop1MS >= 0 {
			m.minTop1MS = minTop1MS
		}
		if minTopRelTime >= 0 {
			m.minTopRelTime = minTopRelTime
		}
	}
}

// WithBannedMaps sets the explicit map exclusion list (case-insensitive).
func WithBannedMaps(maps []string) Option {
	return func(m *Model) {
		m.bannedMaps = make(map[string]struct{}, len(maps))
		for _, name := range maps {
			if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
				m.bannedMaps[name] = struct{}{}
			}
		}
	}
}

// WithMinTotalRecords sets the sample floor below which ratings are dampened.
func WithMinTotalRecords(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.minTotalRecords = n
		}
	}
}

// Model is immutable once built; one instance is shared by every partition of a run.
type Model struct {
	curve           Curve
	decay           float64
	minParticipants int
	minTop1MS       int64
	minTopRelTime   float64
	minTotalRecords int
	bannedMaps      map[string]struct{}
}

// New creates a Model with the default constants and applies opts.
func New(opts ...Option) *Model {
	m := &Model{
		curve:           Curve{A: DefaultA, B: DefaultB, M: DefaultM, V: DefaultV, Q: DefaultQ},
		decay:           DefaultD,
		minParticipants: DefaultMinMapParticipants,
		minTop1MS:       DefaultMinTop1MS,
		minTopRelTime:   DefaultMinTopRelTime,
		minTotalRecords: DefaultMinTotalRecords,
		bannedMaps:      map[string]struct{}{},
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Score maps a relative time to a score:
//
//	1000 * (A - A / (1 + Q*e^(-B*(rel-M)))^(1/V))
//
// Strictly decreasing in rel, ~1000 at rel=1, tending to 1000*A as rel->0
// and to 0 as rel->inf.
//
// Evaluated as -1000*A*expm1(-log1p(Q*e^x)/V) so slow records keep a
// positive score instead of rounding 1+Q*e^x to 1.
func (m *Model) Score(relTime float64) float64 {
	c := m.curve
	return -scoreScale * c.A * math.Expm1(-math.Log1p(c.Q*math.Exp(-c.B*(relTime-c.M)))/c.V)
}

// Banned reports whether every record on a map must score zero.
func (m *Model) Banned(mapID string, participants int, top1MS int64, topRelTime float64) bool {
	if participants < m.minParticipants || top1MS < m.minTop1MS || topRelTime < m.minTopRelTime {
		return true
	}
	_, listed := m.bannedMaps[strings.ToLower(mapID)]
	return listed
}

// Weight is the rank-decay weight of a player's rank-th best record (rank >= 1).
func (m *Model) Weight(rank int) float64 {
	return math.Exp(-m.decay * float64(rank))
}

// Dampen scales a raw rating linearly when the player has fewer than the
// minimum number of records.
func (m *Model) Dampen(raw float64, records int) float64 {
	if records >= m.minTotalRecords {
		return raw
	}
	return raw * float64(records) / float64(m.minTotalRecords)
}
