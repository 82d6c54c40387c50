package pipeline

import (
	"math"

	"github.com/okian/racerank/internal/domain/model"
	"github.com/okian/racerank/internal/domain/scoring"
)

// ScoreMaps sets relative time, ban state and score on every row of every
// group and returns the rows flattened in group order.
func ScoreMaps(groups []MapGroup, m *scoring.Model) []model.MapScoreRow {
	n := 0
	for i := range groups {
		n += len(groups[i].Rows)
	}
	out := make([]model.MapScoreRow, 0, n)

	for i := range groups {
		g := &groups[i]
		top1 := float64(g.Top1MS)
		top2 := float64(g.Top2MS)

		g.TopRelativeTime = math.Inf(1)
		for j := range g.Rows {
			r := &g.Rows[j]
			if r.MapRank == 1 {
				r.RelativeTime = top1 / top2
			} else {
				r.RelativeTime = float64(r.Record.ElapsedMS) / top1
			}
			g.TopRelativeTime = math.Min(g.TopRelativeTime, r.RelativeTime)
		}

		g.Banned = m.Banned(g.MapID, g.ParticipantCount, g.Top1MS, g.TopRelativeTime)
		for j := range g.Rows {
			r := &g.Rows[j]
			r.TopRelativeTime = g.TopRelativeTime
			r.Banned = g.Banned
			r.Score = 0
			if !g.Banned {
				r.Score = m.Score(r.RelativeTime)
			}
		}
		out = append(out, g.Rows...)
	}
	return out
}
