package pipeline

import (
	"slices"

	"github.com/okian/racerank/internal/domain/model"
	"github.com/okian/racerank/internal/domain/ranking"
	"github.com/okian/racerank/internal/domain/scoring"
)

// AggregatePlayers folds scored rows into one rating per player, in player
// key order. Partition fields and global ranks are left for later stages.
func AggregatePlayers(rows []model.MapScoreRow, m *scoring.Model) []model.PlayerRating {
	byPlayer := make(map[int64][]model.MapScoreRow)
	for _, r := range rows {
		byPlayer[r.Record.PlayerKey] = append(byPlayer[r.Record.PlayerKey], r)
	}

	keys := make([]int64, 0, len(byPlayer))
	for k := range byPlayer {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]model.PlayerRating, 0, len(keys))
	for _, k := range keys {
		out = append(out, aggregate(k, byPlayer[k], m))
	}
	return out
}

type ranked struct {
	score float64
	rank  int
}

func aggregate(key int64, rows []model.MapScoreRow, m *scoring.Model) model.PlayerRating {
	scores := make([]ranked, len(rows))
	latest := rows[0].Record
	for i, r := range rows {
		scores[i].score = r.Score
		if r.Record.SetAt.After(latest.SetAt) {
			latest = r.Record
		}
	}

	ranking.Dense(scores,
		func(s *ranked) float64 { return s.score },
		ranking.Descending,
		func(s *ranked, rank int) { s.rank = rank },
	)

	var weighted, weights float64
	for _, s := range scores {
		w := m.Weight(s.rank)
		weighted += s.score * w
		weights += w
	}

	return model.PlayerRating{
		PlayerKey:         key,
		Name:              latest.Name,
		LocalAccountID:    latest.LocalAccountID,
		Physics:           latest.Physics,
		Mode:              latest.Mode,
		Rating:            m.Dampen(weighted/weights, len(rows)),
		PlayerRecordCount: len(rows),
		LastActivity:      latest.SetAt,
	}
}
