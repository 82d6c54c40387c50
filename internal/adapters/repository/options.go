package repository

import "github.com/okian/racerank/internal/domain/model"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithRecords seeds the store with race records.
func WithRecords(records ...model.RaceRecord) Option {
	return func(s *MemoryStore) {
		s.seedRecords = append(s.seedRecords, records...)
	}
}

// WithMapInfo seeds the store with map feature tags.
func WithMapInfo(maps ...model.MapInfo) Option {
	return func(s *MemoryStore) {
		s.seedMaps = append(s.seedMaps, maps...)
	}
}
