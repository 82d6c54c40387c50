// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Physics is the movement rule-set a time was recorded under.
type Physics string

// Known physics.
const (
	PhysicsVQ3 Physics = "vq3"
	PhysicsCPM Physics = "cpm"
)

// AllPhysics lists every physics in run order.
var AllPhysics = []Physics{PhysicsVQ3, PhysicsCPM} //nolint:gochecknoglobals // fixed enumeration

// ParsePhysics validates a physics name (case-insensitive).
func ParsePhysics(s string) (Physics, error) {
	switch p := Physics(strings.ToLower(strings.TrimSpace(s))); p {
	case PhysicsVQ3, PhysicsCPM:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPhysics, s)
	}
}

// RaceRecord is one completed race attempt as read from the record store.
type RaceRecord struct {
	PlayerKey      int64     // external player id (mdd id)
	Name           string    // player name at the time the record was set
	LocalAccountID *int64    // linked local account, if any
	MapID          string    // map name
	Physics        Physics   // vq3 or cpm
	Mode           string    // game mode, e.g. "run"
	ElapsedMS      int64     // race time in milliseconds
	SetAt          time.Time // when the record was set
	Deleted        bool      // soft-deleted upstream
}

// MapInfo carries the feature tags used by category predicates.
type MapInfo struct {
	Name      string
	Weapons   string // comma list, e.g. "rl,pg"
	Functions string // comma list, e.g. "slick,tele"
}

// Partition identifies one independent rating computation.
type Partition struct {
	Physics  Physics `json:"physics"`
	Mode     string  `json:"mode"`
	Category string  `json:"category"`
}

// String renders the partition as physics/mode/category.
func (p Partition) String() string {
	return string(p.Physics) + "/" + p.Mode + "/" + p.Category
}

// MapScoreRow is a surviving record annotated with its map statistics and score.
// It only lives for the duration of one partition run.
type MapScoreRow struct {
	Record              RaceRecord
	MapRank             int
	MapParticipantCount int
	Top1MS              int64
	Top2MS              int64
	RelativeTime        float64
	TopRelativeTime     float64
	Banned              bool
	Score               float64
}

// PlayerRating is the published rating row for one player in one partition.
type PlayerRating struct {
	PlayerKey                int64
	Name                     string
	LocalAccountID           *int64
	Physics                  Physics
	Mode                     string
	Category                 string
	Rating                   float64
	AllPlayersRank           int
	ActivePlayersRank        int
	CategoryParticipantCount int
	PlayerRecordCount        int
	LastActivity             time.Time
}
