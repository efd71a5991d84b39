package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it registers under the default namespace", func() {
				So(manager, ShouldNotBeNil)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				So(families[0].GetName(), ShouldStartWith, "bodytap_game_")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("loop"),
				WithMetricPrefix("x_"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(5*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then names carry the namespace, subsystem and prefix", func() {
				So(manager.refreshInterval, ShouldEqual, 5*time.Second)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(families[0].GetName(), ShouldStartWith, "test_loop_x_")
				So(families[0].GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
			})
		})
	})
}

func TestMetricsDisabled(t *testing.T) {
	Convey("Given a manager with metrics disabled", t, func() {
		registry := prometheus.NewRegistry()
		manager := NewManager(WithPrometheusRegistry(registry), WithMetricsEnabled(false))

		Convey("Then nothing is registered on its registry", func() {
			families, err := registry.Gather()
			So(err, ShouldBeNil)
			So(families, ShouldBeEmpty)
		})

		Convey("Then recording through it is still safe", func() {
			So(func() {
				manager.hits.Inc()
				manager.adjustQueue(1, 4)
			}, ShouldNotPanic)
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When game events are recorded", func() {
			before, err := Value("bodytap_game_hits_total")
			So(err, ShouldBeNil)
			spawnedBefore, _ := Value("bodytap_game_targets_spawned_total")
			fallbackBefore, _ := Value("bodytap_game_spawn_fallbacks_total")

			RecordHit()
			RecordHit()
			RecordTargetSpawned(false)
			RecordTargetSpawned(true)

			Convey("Then the counters move", func() {
				after, _ := Value("bodytap_game_hits_total")
				So(after-before, ShouldEqual, 2.0)
				spawned, _ := Value("bodytap_game_targets_spawned_total")
				So(spawned-spawnedBefore, ShouldEqual, 2.0)
				fallback, _ := Value("bodytap_game_spawn_fallbacks_total")
				So(fallback-fallbackBefore, ShouldEqual, 1.0)
			})
		})

		Convey("When a session starts and closes", func() {
			before, _ := Value("bodytap_game_active_sessions")
			RecordSessionStarted()
			during, _ := Value("bodytap_game_active_sessions")
			RecordSessionEnded(12)
			RecordSessionClosed()
			after, _ := Value("bodytap_game_active_sessions")

			Convey("Then the active gauge returns to where it was", func() {
				So(during-before, ShouldEqual, 1.0)
				So(after, ShouldEqual, before)
			})
		})

		Convey("When the remaining recorders are called", func() {
			Convey("Then none of them panic", func() {
				So(func() {
					RecordFrameProcessed()
					RecordFrameSkipped()
					RecordDetectionSubmitted()
					RecordDetectionBusy()
					RecordDetectionFailed()
					RecordDetectionDiscarded()
					RecordDetectionLatency(3.5)
					RecordSpawnDeferred()
					RecordTargetExpired()
					RecordTargetEvicted()
					RecordSessionRejected()
					AddQueueCapacity(64)
					AddQueueSize(3)
					AddQueueSize(-3)
					AddQueueCapacity(-64)
					RecordQueueEnqueue()
					RecordQueueDequeue()
					RecordQueueEnqueueError()
					RecordQueueProcessingLatency(0.1)
					AddWorkerActive(1)
					AddWorkerActive(-1)
					RecordWorkerProcessingLatency(1.0)
					RecordWorkerError()
					RecordHTTPRequest("/healthz", "GET", "200")
					RecordHTTPRequestDuration("/healthz", "GET", "200", 5.0)
					RecordErrorByComponent("engine", "estimate")
					CollectRuntime()
				}, ShouldNotPanic)
			})
		})

		Convey("When two outboxes report their share", func() {
			sizeBefore, _ := Value("bodytap_game_outbox_size")
			capBefore, _ := Value("bodytap_game_outbox_capacity")

			AddQueueCapacity(10)
			AddQueueCapacity(30)
			AddQueueSize(4)
			AddQueueSize(6)

			size, _ := Value("bodytap_game_outbox_size")
			capacity, _ := Value("bodytap_game_outbox_capacity")
			utilization, _ := Value("bodytap_game_outbox_utilization_ratio")

			AddQueueSize(-10)
			AddQueueCapacity(-40)
			sizeAfter, _ := Value("bodytap_game_outbox_size")
			capAfter, _ := Value("bodytap_game_outbox_capacity")

			Convey("Then the gauges show the totals of both", func() {
				So(size-sizeBefore, ShouldEqual, 10.0)
				So(capacity-capBefore, ShouldEqual, 40.0)
				So(utilization, ShouldAlmostEqual, (sizeBefore+10)/(capBefore+40))
			})

			Convey("Then closing them returns the gauges to where they were", func() {
				So(sizeAfter, ShouldEqual, sizeBefore)
				So(capAfter, ShouldEqual, capBefore)
			})
		})

		Convey("When asking for an unknown metric", func() {
			_, err := Value("bodytap_game_nope")

			Convey("Then ErrNoSample is returned", func() {
				So(errors.Is(err, ErrNoSample), ShouldBeTrue)
			})
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		Convey("Then it is shared and stable", func() {
			So(GetRegistry(), ShouldNotBeNil)
			So(GetRegistry(), ShouldEqual, GetRegistry())
			So(RefreshInterval(), ShouldEqual, 10*time.Second)
		})
	})
}
