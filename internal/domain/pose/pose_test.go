package pose_test

import (
	"testing"

	"github.com/okian/bodytap/internal/domain/pose"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRegions(t *testing.T) {
	Convey("Given the body regions", t, func() {
		Convey("Then upper selects hands only", func() {
			idx := pose.RegionUpper.Indices()
			So(idx, ShouldContain, pose.LeftWrist)
			So(idx, ShouldContain, pose.RightIndex)
			So(idx, ShouldNotContain, pose.LeftAnkle)
			So(idx, ShouldNotContain, pose.Nose)
		})

		Convey("Then lower selects feet only", func() {
			idx := pose.RegionLower.Indices()
			So(idx, ShouldContain, pose.RightAnkle)
			So(idx, ShouldContain, pose.LeftFootIndex)
			So(idx, ShouldNotContain, pose.LeftWrist)
		})

		Convey("Then validity is checked", func() {
			So(pose.RegionUpper.Valid(), ShouldBeTrue)
			So(pose.Region("sideways").Valid(), ShouldBeFalse)
			So(pose.Region("sideways").Indices(), ShouldResemble, pose.RegionUpper.Indices())
		})
	})
}

func TestFromSlice(t *testing.T) {
	Convey("Given a short landmark list", t, func() {
		s := pose.FromSlice([]pose.Keypoint{{X: 0.1, Y: 0.2, Visibility: 1}})

		Convey("Then the known landmark is kept and the rest are zero", func() {
			So(s.Points[pose.Nose].X, ShouldEqual, 0.1)
			So(s.Points[pose.RightFootIndex], ShouldResemble, pose.Keypoint{})
		})

		Convey("Then only the supplied landmarks are present", func() {
			So(s.Has(pose.Nose), ShouldBeTrue)
			So(s.Has(pose.LeftEyeInner), ShouldBeFalse)
			So(s.Has(pose.RightWrist), ShouldBeFalse)
			So(s.Has(-1), ShouldBeFalse)
			So(s.Has(pose.NumLandmarks), ShouldBeFalse)
		})
	})

	Convey("Given a complete landmark list", t, func() {
		s := pose.FromSlice(make([]pose.Keypoint, pose.NumLandmarks+2))

		Convey("Then every landmark is present", func() {
			So(s.Has(pose.Nose), ShouldBeTrue)
			So(s.Has(pose.RightFootIndex), ShouldBeTrue)
		})
	})

	Convey("Given a skeleton filled in directly", t, func() {
		var s pose.Skeleton

		Convey("Then every landmark counts as present", func() {
			So(s.Has(pose.LeftAnkle), ShouldBeTrue)
		})
	})
}
