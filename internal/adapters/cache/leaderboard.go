// Package cache mirrors published rating partitions into Redis sorted sets
// so leaderboards can be served without touching the rating store.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/okian/racerank/internal/domain/model"
	"github.com/okian/racerank/internal/pipeline"
)

// Board suffixes.
const (
	BoardAll    = "all"
	BoardActive = "active"
)

// Leaderboard writes each partition to two sorted sets scored by rating:
// every player, and only players active within the window.
type Leaderboard struct {
	client redis.Cmdable
	prefix string
}

// Option applies a configuration option to the Leaderboard.
type Option func(*Leaderboard)

// WithKeyPrefix overrides the key prefix (default "rating").
func WithKeyPrefix(prefix string) Option {
	return func(l *Leaderboard) {
		if prefix = strings.TrimSpace(prefix); prefix != "" {
			l.prefix = prefix
		}
	}
}

// NewLeaderboard constructs a Leaderboard over client.
func NewLeaderboard(client redis.Cmdable, opts ...Option) *Leaderboard {
	l := &Leaderboard{client: client, prefix: "rating"}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Key returns the sorted set key of a partition board.
func (l *Leaderboard) Key(p model.Partition, board string) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s", l.prefix, p.Physics, p.Mode, p.Category, board)
}

// Name implements pipeline.Mirror.
func (l *Leaderboard) Name() string { return "redis" }

// Mirror implements pipeline.Mirror. Both boards are replaced in one
// MULTI/EXEC so readers never see an empty or half-written board.
func (l *Leaderboard) Mirror(ctx context.Context, pub pipeline.Publication) error {
	all, active := Members(pub)
	allKey, activeKey := l.Key(pub.Partition, BoardAll), l.Key(pub.Partition, BoardActive)

	pipe := l.client.TxPipeline()
	pipe.Del(ctx, allKey, activeKey)
	if len(all) > 0 {
		pipe.ZAdd(ctx, allKey, all...)
	}
	if len(active) > 0 {
		pipe.ZAdd(ctx, activeKey, active...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirror %s: %w", pub.Partition, err)
	}
	return nil
}

// Members builds the sorted set members of both boards. Members are player
// keys; active holds only players whose last activity is within the window.
func Members(pub pipeline.Publication) (all, active []*redis.Z) {
	all = make([]*redis.Z, 0, len(pub.Rows))
	for _, r := range pub.Rows {
		z := &redis.Z{Score: r.Rating, Member: strconv.FormatInt(r.PlayerKey, 10)}
		all = append(all, z)
		if !r.LastActivity.Before(pub.ActiveSince) {
			active = append(active, z)
		}
	}
	return all, active
}
