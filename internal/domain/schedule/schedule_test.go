package schedule_test

import (
	"testing"
	"time"

	"github.com/okian/bodytap/internal/domain/schedule"
	. "github.com/smartystreets/goconvey/convey"
)

func TestScheduler(t *testing.T) {
	Convey("Given a scheduler", t, func() {
		s := schedule.New()
		t0 := time.Unix(100, 0)
		var fired []string
		record := func(name string) schedule.Task {
			return func(time.Time) { fired = append(fired, name) }
		}

		Convey("When timers are due in a different order than armed", func() {
			s.Schedule("b", t0.Add(2*time.Second), record("b"))
			s.Schedule("a", t0.Add(time.Second), record("a"))
			s.Schedule("c", t0.Add(time.Hour), record("c"))

			n := s.Fire(t0.Add(3 * time.Second))

			Convey("Then only due timers run, earliest first", func() {
				So(n, ShouldEqual, 2)
				So(fired, ShouldResemble, []string{"a", "b"})
				So(s.Len(), ShouldEqual, 1)
				So(s.Pending("c"), ShouldBeTrue)
			})

			Convey("Then fired timers do not fire twice", func() {
				So(s.Fire(t0.Add(4*time.Second)), ShouldEqual, 0)
			})
		})

		Convey("When a timer is cancelled before its deadline", func() {
			s.Schedule("expire/1", t0.Add(time.Second), record("expire/1"))
			So(s.Cancel("expire/1"), ShouldBeTrue)

			Convey("Then it never runs", func() {
				s.Fire(t0.Add(time.Minute))
				So(fired, ShouldBeEmpty)
				So(s.Cancel("expire/1"), ShouldBeFalse)
			})
		})

		Convey("When a key is re-armed", func() {
			s.Schedule("k", t0.Add(time.Second), record("old"))
			s.Schedule("k", t0.Add(5*time.Second), record("new"))

			Convey("Then only the replacement exists", func() {
				s.Fire(t0.Add(2 * time.Second))
				So(fired, ShouldBeEmpty)
				s.Fire(t0.Add(5 * time.Second))
				So(fired, ShouldResemble, []string{"new"})
			})
		})

		Convey("When a running task cancels another due timer", func() {
			s.Schedule("first", t0, func(time.Time) {
				fired = append(fired, "first")
				s.Cancel("second")
			})
			s.Schedule("second", t0.Add(time.Millisecond), record("second"))

			s.Fire(t0.Add(time.Second))

			Convey("Then the cancelled timer is skipped", func() {
				So(fired, ShouldResemble, []string{"first"})
			})
		})

		Convey("When everything is cancelled", func() {
			s.Schedule("a", t0, record("a"))
			s.Schedule("b", t0, record("b"))
			s.CancelAll()

			Convey("Then nothing fires", func() {
				So(s.Fire(t0.Add(time.Hour)), ShouldEqual, 0)
				So(s.Len(), ShouldEqual, 0)
			})
		})
	})
}
