// Package repository defines the record source and rating store contracts
// and an in-memory implementation of both.
package repository

import (
	"context"

	"github.com/okian/racerank/internal/domain/model"
)

// RecordSet is one consistent read of the record feed for a physics and mode.
type RecordSet struct {
	Records []model.RaceRecord
	// Maps holds feature tags by map name. Maps missing here are unknown.
	Maps map[string]model.MapInfo
}

// RecordSource reads race records.
type RecordSource interface {
	// Snapshot returns every record for physics and mode, deleted rows
	// included, as of a single point in time.
	Snapshot(ctx context.Context, physics model.Physics, mode string) (RecordSet, error)
}

// RatingStore holds published rating partitions.
type RatingStore interface {
	// ReplacePartition atomically replaces every row of p with rows.
	// Readers observe either the previous rows or the new ones, never a mix.
	ReplacePartition(ctx context.Context, p model.Partition, rows []model.PlayerRating) error

	// Partition returns the published rows of p ordered by all-players rank.
	// Returns ErrNotFound if p has no published rows.
	Partition(ctx context.Context, p model.Partition) ([]model.PlayerRating, error)
}
