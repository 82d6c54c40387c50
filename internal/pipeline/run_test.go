package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/racerank/internal/adapters/repository"
	"github.com/okian/racerank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// flakyStore fails ReplacePartition while fail is set.
type flakyStore struct {
	*repository.MemoryStore
	fail bool
}

func (s *flakyStore) ReplacePartition(ctx context.Context, p model.Partition, rows []model.PlayerRating) error {
	if s.fail {
		return errors.New("deadlock detected")
	}
	return s.MemoryStore.ReplacePartition(ctx, p, rows)
}

type recordingMirror struct {
	name string
	err  error
	got  []Publication
}

func (m *recordingMirror) Name() string { return m.name }

func (m *recordingMirror) Mirror(_ context.Context, pub Publication) error {
	m.got = append(m.got, pub)
	return m.err
}

func seededStore() *repository.MemoryStore {
	records := mapOf("rocket1", 1, 10000, 10050, 10100, 10200, 10300, 10400)
	records = append(records, mapOf("strafe1", 1, 20000, 20100, 20500, 21000, 22000)...)
	records = append(records, mapOf("tiny", 1, 5000, 5100)...)
	return repository.NewMemoryStore(
		repository.WithRecords(records...),
		repository.WithMapInfo(
			model.MapInfo{Name: "rocket1", Weapons: "rl,pg"},
			model.MapInfo{Name: "strafe1", Weapons: "mg"},
		),
	)
}

func TestRunnerRun(t *testing.T) {
	Convey("Given a runner over a seeded memory store", t, func() {
		ctx := context.Background()
		mem := seededStore()
		store := &flakyStore{MemoryStore: mem}
		mirror := &recordingMirror{name: "recorder"}
		runner := NewRunner(mem, store, WithClock(func() time.Time { return now }), WithMirrors(mirror))
		overall := model.Partition{Physics: model.PhysicsVQ3, Mode: "run", Category: "overall"}

		Convey("When the overall partition runs", func() {
			res := runner.Run(ctx, "run-1", overall)

			Convey("Then every player is published with partition fields set", func() {
				So(res.Err, ShouldBeNil)
				So(res.Rows, ShouldEqual, 6)
				So(res.Maps, ShouldEqual, 3)
				So(res.BannedMaps, ShouldEqual, 1)

				rows, err := store.Partition(ctx, overall)
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 6)
				for _, r := range rows {
					So(r.Category, ShouldEqual, "overall")
					So(r.Physics, ShouldEqual, model.PhysicsVQ3)
					So(r.Mode, ShouldEqual, "run")
					So(r.CategoryParticipantCount, ShouldEqual, 6)
				}
				So(rows[0].PlayerKey, ShouldEqual, 1)
				So(rows[0].AllPlayersRank, ShouldEqual, 1)
			})

			Convey("Then the mirror sees the published rows", func() {
				So(mirror.got, ShouldHaveLength, 1)
				So(mirror.got[0].RunID, ShouldEqual, "run-1")
				So(mirror.got[0].Rows, ShouldHaveLength, 6)
				So(mirror.got[0].PublishedAt, ShouldEqual, now)
			})

			Convey("And it runs again on unchanged input", func() {
				first, _ := store.Partition(ctx, overall)
				res2 := runner.Run(ctx, "run-2", overall)
				second, _ := store.Partition(ctx, overall)

				Convey("Then the published rows are identical", func() {
					So(res2.Err, ShouldBeNil)
					So(second, ShouldResemble, first)
				})
			})
		})

		Convey("When a filtered partition runs", func() {
			rocket := overall
			rocket.Category = "rocket"
			res := runner.Run(ctx, "run-1", rocket)

			Convey("Then only players on matching maps are rated", func() {
				So(res.Err, ShouldBeNil)
				So(res.Rows, ShouldEqual, 6)
				So(res.Maps, ShouldEqual, 1)
			})
		})

		Convey("When publishing fails after an earlier success", func() {
			So(runner.Run(ctx, "run-1", overall).Err, ShouldBeNil)
			before, _ := store.Partition(ctx, overall)

			mem.AddRecords(record(99, "rocket1", 9000))
			store.fail = true
			res := runner.Run(ctx, "run-2", overall)

			Convey("Then the run reports a publish failure and prior rows stay", func() {
				So(errors.Is(res.Err, ErrPublishFailure), ShouldBeTrue)
				after, _ := store.Partition(ctx, overall)
				So(after, ShouldResemble, before)
				So(mirror.got, ShouldHaveLength, 1)
			})
		})

		Convey("When the source is unavailable", func() {
			broken := NewRunner(failingSource{err: errors.New("timeout")}, store)
			res := broken.Run(ctx, "run-1", overall)

			Convey("Then nothing is published", func() {
				So(errors.Is(res.Err, ErrInputUnavailable), ShouldBeTrue)
				_, err := store.Partition(ctx, overall)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When a mirror fails", func() {
			bad := &recordingMirror{name: "broken", err: errors.New("redis down")}
			r := NewRunner(mem, store, WithMirrors(bad, mirror))
			res := r.Run(ctx, "run-1", overall)

			Convey("Then the run still succeeds and later mirrors still run", func() {
				So(res.Err, ShouldBeNil)
				So(bad.got, ShouldHaveLength, 1)
				So(mirror.got, ShouldHaveLength, 1)
			})
		})

		Convey("When the partition names an unknown category", func() {
			res := runner.Run(ctx, "run-1", model.Partition{Physics: model.PhysicsVQ3, Mode: "run", Category: "hook"})

			Convey("Then it fails before reading", func() {
				So(res.Err, ShouldNotBeNil)
				So(mirror.got, ShouldBeEmpty)
			})
		})
	})
}
