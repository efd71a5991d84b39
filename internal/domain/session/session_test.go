package session_test

import (
	"testing"
	"time"

	"github.com/okian/bodytap/internal/domain/session"
	. "github.com/smartystreets/goconvey/convey"
)

type recorder struct {
	ticks []int
	hits  []int
	ends  []int
}

func (r *recorder) OnHit(score int)        { r.hits = append(r.hits, score) }
func (r *recorder) OnSessionEnd(final int) { r.ends = append(r.ends, final) }
func (r *recorder) OnCountdownTick(v int)  { r.ticks = append(r.ticks, v) }

func TestMachine_Countdown(t *testing.T) {
	Convey("Given a started session with the default countdown", t, func() {
		rec := &recorder{}
		m := session.New(session.WithListener(rec))
		t0 := time.Unix(1_000, 0)
		m.Start(t0)

		Convey("Then it shows 10 and is not yet active", func() {
			So(m.Phase(), ShouldEqual, session.PhaseCountdown)
			So(m.State(t0).Countdown, ShouldEqual, 10)
			So(rec.ticks, ShouldResemble, []int{10})
		})

		Convey("When ticked once per second for ten seconds", func() {
			starts := 0
			for i := 1; i <= 10; i++ {
				tr := m.Tick(t0.Add(time.Duration(i) * time.Second))
				if tr.Started {
					starts++
				}
			}

			Convey("Then every value is emitted and play starts exactly once", func() {
				So(rec.ticks, ShouldResemble, []int{10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0})
				So(starts, ShouldEqual, 1)
				So(m.Phase(), ShouldEqual, session.PhaseActive)
			})

			Convey("Then further ticks do not start it again", func() {
				tr := m.Tick(t0.Add(11 * time.Second))
				So(tr.Started, ShouldBeFalse)
			})
		})

		Convey("When ticked faster than once per second", func() {
			m.Tick(t0.Add(300 * time.Millisecond))
			m.Tick(t0.Add(600 * time.Millisecond))

			Convey("Then the countdown does not move", func() {
				So(m.State(t0).Countdown, ShouldEqual, 10)
			})
		})

		Convey("When a tick arrives after a long stall", func() {
			tr := m.Tick(t0.Add(3500 * time.Millisecond))

			Convey("Then it catches up one value per elapsed second", func() {
				So(tr.Countdown, ShouldResemble, []int{9, 8, 7})
			})
		})
	})

	Convey("Given a session without a countdown", t, func() {
		m := session.New(session.WithCountdown(0), session.WithDuration(time.Minute))
		t0 := time.Unix(0, 0)
		m.Start(t0)

		Convey("Then the first tick starts play", func() {
			tr := m.Tick(t0)
			So(tr.Started, ShouldBeTrue)
			So(m.State(t0).Remaining, ShouldEqual, time.Minute)
		})
	})

	Convey("Given a session that was never started", t, func() {
		m := session.New()

		Convey("Then ticks do nothing", func() {
			tr := m.Tick(time.Now().Add(time.Hour))
			So(tr.Started, ShouldBeFalse)
			So(m.Running(), ShouldBeFalse)
			So(m.Phase(), ShouldEqual, session.PhaseCountdown)
		})
	})
}

func TestMachine_Play(t *testing.T) {
	Convey("Given an active session of 30 seconds", t, func() {
		rec := &recorder{}
		m := session.New(session.WithCountdown(0), session.WithDuration(30*time.Second), session.WithListener(rec))
		t0 := time.Unix(5_000, 0)
		m.Start(t0)
		m.Tick(t0)

		Convey("When hits are registered", func() {
			s1, ok1 := m.RegisterHit(t0.Add(time.Second))
			s2, ok2 := m.RegisterHit(t0.Add(2 * time.Second))

			Convey("Then the score grows by exactly one per hit", func() {
				So(ok1, ShouldBeTrue)
				So(ok2, ShouldBeTrue)
				So(s1, ShouldEqual, 1)
				So(s2, ShouldEqual, 2)
				So(rec.hits, ShouldResemble, []int{1, 2})
			})
		})

		Convey("When time runs", func() {
			st := m.State(t0.Add(10 * time.Second))

			Convey("Then the remaining time is the deadline distance", func() {
				So(st.Remaining, ShouldEqual, 20*time.Second)
			})
		})

		Convey("When ticked with a 16ms cadence past the deadline", func() {
			m.RegisterHit(t0.Add(time.Second))
			var endedAt time.Time
			ends := 0
			for now := t0; now.Before(t0.Add(31 * time.Second)); now = now.Add(16 * time.Millisecond) {
				if tr := m.Tick(now); tr.Ended {
					ends++
					endedAt = now
					So(tr.Final, ShouldEqual, 1)
				}
			}

			Convey("Then it ends once, within one tick of the deadline", func() {
				So(ends, ShouldEqual, 1)
				So(endedAt.Sub(t0.Add(30*time.Second)), ShouldBeBetweenOrEqual, time.Duration(0), 16*time.Millisecond)
				So(rec.ends, ShouldResemble, []int{1})
				So(m.Phase(), ShouldEqual, session.PhaseEnded)
				So(m.State(endedAt).Remaining, ShouldEqual, time.Duration(0))
			})

			Convey("Then hits after the end are ignored", func() {
				score, ok := m.RegisterHit(t0.Add(32 * time.Second))
				So(ok, ShouldBeFalse)
				So(score, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a session still counting down", t, func() {
		m := session.New()
		m.Start(time.Unix(0, 0))

		Convey("Then hits are not counted", func() {
			score, ok := m.RegisterHit(time.Unix(1, 0))
			So(ok, ShouldBeFalse)
			So(score, ShouldEqual, 0)
		})
	})

	Convey("Given a finished session that is started again", t, func() {
		m := session.New(session.WithCountdown(0), session.WithDuration(time.Second))
		t0 := time.Unix(0, 0)
		m.Start(t0)
		m.Tick(t0)
		m.RegisterHit(t0)
		m.Tick(t0.Add(2 * time.Second))
		m.Start(t0.Add(3 * time.Second))

		Convey("Then the score is reset", func() {
			So(m.Score(), ShouldEqual, 0)
			So(m.Phase(), ShouldEqual, session.PhaseCountdown)
		})
	})
}
