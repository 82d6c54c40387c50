package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/racerank/internal/adapters/repository"
	"github.com/okian/racerank/internal/domain/model"
)

// Publication describes a partition that was just replaced in the store.
type Publication struct {
	RunID       string
	Partition   model.Partition
	Rows        []model.PlayerRating
	PublishedAt time.Time
	// ActiveSince is the activity window cutoff the ranks were computed with.
	ActiveSince time.Time
}

// Mirror copies a successful publication somewhere secondary. Mirrors are
// best-effort: their errors are reported but never fail a run.
type Mirror interface {
	Name() string
	Mirror(ctx context.Context, pub Publication) error
}

// Publish replaces p in store with rows as one atomic operation.
func Publish(ctx context.Context, store repository.RatingStore, p model.Partition, rows []model.PlayerRating) error {
	if err := store.ReplacePartition(ctx, p, rows); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailure, p, err)
	}
	return nil
}
