package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a dedicated registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("pipeline"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithConstLabels(map[string]string{"group": "test-group"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then its collectors should be registered on that registry", func() {
				So(manager, ShouldNotBeNil)
				manager.eventsEmitted.WithLabelValues("LEVEL_UP").Inc()

				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var names []string
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_pipeline_events_emitted_total")
			})
		})

		Convey("When the global manager is rebuilt with Init", func() {
			registry := Init(
				WithNamespace("custom"),
				WithConstLabels(map[string]string{"group": "hardcore-group"}),
			)
			RecordEventEmitted("QUEST_COMPLETED")

			Convey("Then recorders write to the new registry with the const label", func() {
				So(GetRegistry(), ShouldEqual, registry)
				So(testutil.ToFloat64(globalManager.eventsEmitted.WithLabelValues("QUEST_COMPLETED")), ShouldEqual, 1)

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, f := range families {
					if f.GetName() != "custom_tracker_events_emitted_total" {
						continue
					}
					found = true
					labels := map[string]string{}
					for _, l := range f.GetMetric()[0].GetLabel() {
						labels[l.GetName()] = l.GetValue()
					}
					So(labels["group"], ShouldEqual, "hardcore-group")
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When two managers share a registry", func() {
			registry := prometheus.NewRegistry()
			_ = NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration should panic", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording pipeline metrics", func() {
			before := testutil.ToFloat64(globalManager.eventsEmitted.WithLabelValues("RARE_DROP"))
			RecordEventEmitted("RARE_DROP")
			RecordEventEmitted("RARE_DROP")

			Convey("Then the counter should advance", func() {
				after := testutil.ToFloat64(globalManager.eventsEmitted.WithLabelValues("RARE_DROP"))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When updating feed and queue gauges", func() {
			UpdateFeedSize("engine", 12)
			UpdateQueueSize("control", 3)
			UpdateQueueCapacity("control", 1024)

			Convey("Then the gauges should hold the last value", func() {
				So(testutil.ToFloat64(globalManager.feedSize.WithLabelValues("engine")), ShouldEqual, 12)
				So(testutil.ToFloat64(globalManager.queueSize.WithLabelValues("control")), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.queueCapacity.WithLabelValues("control")), ShouldEqual, 1024)
			})
		})

		Convey("When recording sync and worker metrics", func() {
			So(func() {
				RecordSyncRequest("send_event", "success", 12.5)
				RecordSyncRequest("fetch_group", "transport_error", 3)
				RecordWorkerJob("sync", "ok", 4)
				RecordTaxonomyResolution("defaults", 5)
				RecordFactClassified("quest")
				RecordEventSkipped("not_configured")
				RecordQueueEnqueue("sync")
				RecordQueueDequeue("sync")
				RecordQueueEnqueueError("sync", "full")
				UpdateWorkerActiveCount("sync", 4)
			}, ShouldNotPanic)

			Convey("Then the taxonomy gauge should reflect the level count", func() {
				So(testutil.ToFloat64(globalManager.taxonomyLevelEntries), ShouldEqual, 5)
			})
		})

		Convey("When recording HTTP and system metrics", func() {
			So(func() {
				RecordHTTPRequest("feed", "GET", "200")
				RecordHTTPRequestDuration("feed", "GET", "200", 1.5)
				RecordHTTPError("group", "GET", "not_found", "medium")
				UpdateWebsocketClients(2)
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(42)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})

		Convey("When fetching the registry", func() {
			Convey("Then it should be the custom registry", func() {
				So(GetRegistry(), ShouldEqual, customRegistry)
			})
		})
	})
}
