package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/racerank/internal/adapters/repository"
	"github.com/okian/racerank/internal/domain/category"
	"github.com/okian/racerank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type failingSource struct{ err error }

func (f failingSource) Snapshot(context.Context, model.Physics, string) (repository.RecordSet, error) {
	return repository.RecordSet{}, f.err
}

func TestExtract(t *testing.T) {
	Convey("Given a feed with deleted, malformed and uncategorized records", t, func() {
		ctx := context.Background()
		deleted := record(3, "rocket1", 900)
		deleted.Deleted = true
		zero := record(4, "rocket1", 0)
		negative := record(5, "rocket1", -10)
		noMap := record(6, "", 1000)
		otherPhysics := record(7, "rocket1", 1000)
		otherPhysics.Physics = model.PhysicsCPM

		src := repository.NewMemoryStore(
			repository.WithRecords(
				record(1, "rocket1", 1000),
				record(2, "strafe1", 1100),
				record(8, "unknown", 1200),
				deleted, zero, negative, noMap, otherPhysics,
			),
			repository.WithMapInfo(
				model.MapInfo{Name: "rocket1", Weapons: "rl"},
				model.MapInfo{Name: "strafe1"},
			),
		)
		p := model.Partition{Physics: model.PhysicsVQ3, Mode: "run", Category: "overall"}

		Convey("When extracting the overall category", func() {
			overall, _ := category.Lookup("overall")
			res, err := Extract(ctx, src, p, overall)

			Convey("Then deleted and malformed records are dropped and counted", func() {
				So(err, ShouldBeNil)
				So(res.Records, ShouldHaveLength, 3)
				So(res.Deleted, ShouldEqual, 1)
				So(res.NonPositiveTime, ShouldEqual, 2)
				So(res.MissingMap, ShouldEqual, 1)
				So(res.Malformed(), ShouldEqual, 3)
				So(res.OutOfCategory, ShouldEqual, 0)
			})
		})

		Convey("When extracting a filtered category", func() {
			rocket, _ := category.Lookup("rl")
			res, err := Extract(ctx, src, p, rocket)

			Convey("Then only records on matching known maps survive", func() {
				So(err, ShouldBeNil)
				So(res.Records, ShouldHaveLength, 1)
				So(res.Records[0].MapID, ShouldEqual, "rocket1")
				So(res.OutOfCategory, ShouldEqual, 2)
			})
		})

		Convey("When the source cannot be read", func() {
			overall, _ := category.Lookup("overall")
			_, err := Extract(ctx, failingSource{err: errors.New("connection refused")}, p, overall)

			Convey("Then the error is ErrInputUnavailable", func() {
				So(errors.Is(err, ErrInputUnavailable), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "vq3/run/overall")
			})
		})
	})
}
