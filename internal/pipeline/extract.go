// Package pipeline computes one rating partition: extract, rank maps, score
// maps, aggregate players, rank globally, publish.
package pipeline

import (
	"context"
	"fmt"

	"github.com/okian/racerank/internal/adapters/repository"
	"github.com/okian/racerank/internal/domain/category"
	"github.com/okian/racerank/internal/domain/model"
)

// Malformed record reasons, used as metric labels.
const (
	ReasonNonPositiveTime = "non_positive_time"
	ReasonMissingMap      = "missing_map"
)

// ExtractResult is the surviving record set of one partition plus what was
// dropped on the way.
type ExtractResult struct {
	Records []model.RaceRecord

	Deleted         int
	NonPositiveTime int
	MissingMap      int
	// OutOfCategory counts well-formed records whose map fails the category.
	OutOfCategory int
}

// Malformed is the number of records excluded as malformed.
func (r ExtractResult) Malformed() int {
	return r.NonPositiveTime + r.MissingMap
}

// Extract reads one snapshot for p's physics and mode and keeps the
// non-deleted, well-formed records whose map belongs to cat.
func Extract(ctx context.Context, src repository.RecordSource, p model.Partition, cat category.Category) (ExtractResult, error) {
	set, err := src.Snapshot(ctx, p.Physics, p.Mode)
	if err != nil {
		return ExtractResult{}, fmt.Errorf("%w: %s: %w", ErrInputUnavailable, p, err)
	}

	res := ExtractResult{Records: make([]model.RaceRecord, 0, len(set.Records))}
	for _, r := range set.Records {
		switch {
		case r.Deleted:
			res.Deleted++
			continue
		case r.ElapsedMS <= 0:
			res.NonPositiveTime++
			continue
		case r.MapID == "":
			res.MissingMap++
			continue
		}

		info, known := set.Maps[r.MapID]
		if !cat.Matches(info, known) {
			res.OutOfCategory++
			continue
		}
		res.Records = append(res.Records, r)
	}
	return res, nil
}
