package ranking

import (
	"testing"
)

type entry struct {
	id    string
	score float64
	rank  int
}

func setRank(e *entry, r int) { e.rank = r }

func TestDenseDescendingTies(t *testing.T) {
	entries := []entry{
		{id: "a", score: 10},
		{id: "b", score: 30},
		{id: "c", score: 20},
		{id: "d", score: 30},
		{id: "e", score: 10},
	}

	Dense(entries, func(e *entry) float64 { return e.score }, Descending, setRank)

	want := []struct {
		id   string
		rank int
	}{
		{"b", 1}, {"d", 1}, {"c", 2}, {"a", 3}, {"e", 3},
	}
	for i, w := range want {
		if entries[i].id != w.id || entries[i].rank != w.rank {
			t.Errorf("position %d: got %s rank %d, want %s rank %d", i, entries[i].id, entries[i].rank, w.id, w.rank)
		}
	}
}

func TestDenseAscending(t *testing.T) {
	times := []entry{
		{id: "slow", score: 12000},
		{id: "fast", score: 10000},
		{id: "tie", score: 10000},
		{id: "mid", score: 10050},
	}

	Dense(times, func(e *entry) float64 { return e.score }, Ascending, setRank)

	got := map[string]int{}
	for _, e := range times {
		got[e.id] = e.rank
	}
	if got["fast"] != 1 || got["tie"] != 1 || got["mid"] != 2 || got["slow"] != 3 {
		t.Errorf("unexpected ranks %v", got)
	}
}

func TestDenseHasNoGaps(t *testing.T) {
	entries := make([]entry, 0, 100)
	for i := 0; i < 100; i++ {
		entries = append(entries, entry{score: float64(i % 7)})
	}

	Dense(entries, func(e *entry) float64 { return e.score }, Descending, setRank)

	if entries[0].rank != 1 {
		t.Fatalf("first rank = %d", entries[0].rank)
	}
	for i := 1; i < len(entries); i++ {
		d := entries[i].rank - entries[i-1].rank
		if d != 0 && d != 1 {
			t.Fatalf("gap between %d and %d: %d -> %d", i-1, i, entries[i-1].rank, entries[i].rank)
		}
	}
	if last := entries[len(entries)-1].rank; last != 7 {
		t.Errorf("expected 7 distinct ranks, got %d", last)
	}
}

func TestAssignDenseEmpty(t *testing.T) {
	var entries []entry
	AssignDense(entries, func(a, b *entry) bool { return true }, setRank)
}
