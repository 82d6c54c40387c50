package repository

import (
	"context"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/okian/racerank/internal/domain/model"
	"github.com/okian/racerank/pkg/metrics"
)

// feed is an immutable view of the record feed.
type feed struct {
	records []model.RaceRecord
	maps    map[string]model.MapInfo
}

// published is an immutable view of every published partition.
type published map[string][]model.PlayerRating

// MemoryStore is an in-memory RecordSource and RatingStore.
//
// Writers build a fresh copy under mu and swap it in; readers load the
// current pointer without locking, so a reader always sees one whole state.
type MemoryStore struct {
	mu sync.Mutex

	feed       atomic.Pointer[feed]
	partitions atomic.Pointer[published]

	seedRecords []model.RaceRecord
	seedMaps    []model.MapInfo
}

// NewMemoryStore constructs a memory store with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{}

	for _, opt := range opts {
		opt(s)
	}

	f := &feed{
		records: slices.Clone(s.seedRecords),
		maps:    make(map[string]model.MapInfo, len(s.seedMaps)),
	}
	for _, m := range s.seedMaps {
		f.maps[m.Name] = m
	}
	s.seedRecords, s.seedMaps = nil, nil
	s.feed.Store(f)

	p := published{}
	s.partitions.Store(&p)

	return s
}

// AddRecords appends records to the feed.
func (s *MemoryStore) AddRecords(records ...model.RaceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.feed.Load()
	next := &feed{
		records: append(slices.Clone(cur.records), records...),
		maps:    cur.maps,
	}
	s.feed.Store(next)
}

// PutMapInfo adds or replaces feature tags for maps.
func (s *MemoryStore) PutMapInfo(infos ...model.MapInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.feed.Load()
	next := &feed{records: cur.records, maps: maps.Clone(cur.maps)}
	for _, m := range infos {
		next.maps[m.Name] = m
	}
	s.feed.Store(next)
}

// Snapshot implements RecordSource.Snapshot.
func (s *MemoryStore) Snapshot(ctx context.Context, physics model.Physics, mode string) (RecordSet, error) {
	if err := ctx.Err(); err != nil {
		return RecordSet{}, err
	}

	f := s.feed.Load()
	out := RecordSet{Maps: f.maps}
	for _, r := range f.records {
		if r.Physics == physics && r.Mode == mode {
			out.Records = append(out.Records, r)
		}
	}
	return out, nil
}

// ReplacePartition implements RatingStore.ReplacePartition.
func (s *MemoryStore) ReplacePartition(ctx context.Context, p model.Partition, rows []model.PlayerRating) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(*s.partitions.Load())
	next[p.String()] = slices.Clone(rows)
	s.partitions.Store(&next)
	return nil
}

// Partition implements RatingStore.Partition.
func (s *MemoryStore) Partition(ctx context.Context, p model.Partition) ([]model.PlayerRating, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, ok := (*s.partitions.Load())[p.String()]
	if !ok || len(rows) == 0 {
		metrics.RecordErrorByComponent("repository", "not_found")
		return nil, ErrNotFound
	}
	return slices.Clone(rows), nil
}

// Count returns the number of published partitions.
func (s *MemoryStore) Count() int {
	return len(*s.partitions.Load())
}
