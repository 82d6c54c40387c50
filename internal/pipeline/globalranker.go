package pipeline

import (
	"cmp"
	"slices"
	"time"

	"github.com/okian/racerank/internal/domain/model"
	"github.com/okian/racerank/internal/domain/ranking"
)

// RankGlobal assigns the participant count and both global ranks, and
// returns ratings ordered by all-players rank then player key.
//
// A player is active when their last activity is no older than windowMonths
// calendar months before now. Inactive players rank on an effective rating
// of zero, so they share the lowest dense rank with each other.
func RankGlobal(ratings []model.PlayerRating, now time.Time, windowMonths int) []model.PlayerRating {
	out := slices.Clone(ratings)
	cutoff := now.AddDate(0, -windowMonths, 0)

	byIdentity := func(a, b model.PlayerRating) int { return cmp.Compare(a.PlayerKey, b.PlayerKey) }
	slices.SortFunc(out, byIdentity)

	for i := range out {
		out[i].CategoryParticipantCount = len(out)
	}

	ranking.Dense(out,
		func(r *model.PlayerRating) float64 {
			if r.LastActivity.Before(cutoff) {
				return 0
			}
			return r.Rating
		},
		ranking.Descending,
		func(r *model.PlayerRating, rank int) { r.ActivePlayersRank = rank },
	)

	slices.SortFunc(out, byIdentity)
	ranking.Dense(out,
		func(r *model.PlayerRating) float64 { return r.Rating },
		ranking.Descending,
		func(r *model.PlayerRating, rank int) { r.AllPlayersRank = rank },
	)
	return out
}
