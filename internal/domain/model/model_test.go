package model_test

import (
	"errors"
	"testing"

	model "github.com/okian/racerank/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestParsePhysics(t *testing.T) {
	convey.Convey("Given physics names", t, func() {
		convey.Convey("When the name is known", func() {
			vq3, err1 := model.ParsePhysics("vq3")
			cpm, err2 := model.ParsePhysics(" CPM ")

			convey.Convey("Then it should parse case-insensitively", func() {
				convey.So(err1, convey.ShouldBeNil)
				convey.So(err2, convey.ShouldBeNil)
				convey.So(vq3, convey.ShouldEqual, model.PhysicsVQ3)
				convey.So(cpm, convey.ShouldEqual, model.PhysicsCPM)
			})
		})

		convey.Convey("When the name is unknown", func() {
			_, err := model.ParsePhysics("vq4")

			convey.Convey("Then it should return ErrUnknownPhysics", func() {
				convey.So(errors.Is(err, model.ErrUnknownPhysics), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "vq4")
			})
		})
	})
}

func TestPartitionString(t *testing.T) {
	convey.Convey("Given a partition", t, func() {
		p := model.Partition{Physics: model.PhysicsCPM, Mode: "run", Category: "rocket"}

		convey.Convey("Then it should render as physics/mode/category", func() {
			convey.So(p.String(), convey.ShouldEqual, "cpm/run/rocket")
		})
	})
}
