package pipeline

import (
	"cmp"
	"slices"

	"github.com/okian/racerank/internal/domain/model"
	"github.com/okian/racerank/internal/domain/ranking"
)

// MapGroup is every surviving record of one map, ordered by map rank.
type MapGroup struct {
	MapID            string
	Rows             []model.MapScoreRow
	ParticipantCount int
	Top1MS           int64
	Top2MS           int64

	// Set by ScoreMaps.
	TopRelativeTime float64
	Banned          bool
}

// RankMaps groups records by map, in map name order, and dense-ranks each
// map by elapsed time ascending.
//
// The participant count is the number of records on the map, not the number
// of distinct players.
func RankMaps(records []model.RaceRecord) []MapGroup {
	byMap := make(map[string][]model.MapScoreRow)
	for _, r := range records {
		byMap[r.MapID] = append(byMap[r.MapID], model.MapScoreRow{Record: r})
	}

	ids := make([]string, 0, len(byMap))
	for id := range byMap {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	groups := make([]MapGroup, 0, len(ids))
	for _, id := range ids {
		rows := byMap[id]
		// Input order is not guaranteed; fix the order of ties by identity.
		slices.SortFunc(rows, func(a, b model.MapScoreRow) int {
			return cmp.Or(
				cmp.Compare(a.Record.PlayerKey, b.Record.PlayerKey),
				a.Record.SetAt.Compare(b.Record.SetAt),
			)
		})
		ranking.Dense(rows,
			func(r *model.MapScoreRow) int64 { return r.Record.ElapsedMS },
			ranking.Ascending,
			func(r *model.MapScoreRow, rank int) { r.MapRank = rank },
		)

		top1 := rows[0].Record.ElapsedMS
		if top1 <= 0 {
			top1 = 1
		}
		top2 := top1
		for _, r := range rows {
			if r.MapRank == 2 {
				top2 = r.Record.ElapsedMS
				break
			}
		}

		for i := range rows {
			rows[i].MapParticipantCount = len(rows)
			rows[i].Top1MS = top1
			rows[i].Top2MS = top2
		}
		groups = append(groups, MapGroup{
			MapID:            id,
			Rows:             rows,
			ParticipantCount: len(rows),
			Top1MS:           top1,
			Top2MS:           top2,
		})
	}
	return groups
}
