// SPDX-License-Identifier: MIT
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Meter metrics
	meterReading = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "eagle3d_meter_reading",
		Help: "Latest value per meter variable (last poll)",
	}, []string{"address", "variable"})

	metersDiscovered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eagle3d_meters_discovered",
		Help: "Number of electricity meters known to the daemon (last poll)",
	})

	devicesDiscovered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eagle3d_devices_discovered",
		Help: "Number of devices paired with the hub (last poll)",
	})

	hubOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eagle3d_hub_online",
		Help: "Whether the hub answered the last command (1) or not (0)",
	})

	// Poll metrics
	pollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eagle3d_polls_total",
		Help: "Poll cycles by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	pollFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eagle3d_poll_failures_total",
		Help: "Poll failures by stage",
	}, []string{"stage"}) // stage=device_list|device_query|store|history|cache|manifest

	pollDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "eagle3d_poll_duration_seconds",
		Help:    "Time spent completing a full poll cycle",
		Buckets: prometheus.DefBuckets,
	})

	lastPollTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eagle3d_last_successful_poll_timestamp_seconds",
		Help: "Unix time of the last successful poll",
	})

	// Export metrics
	manifestExportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eagle3d_manifest_exports_total",
		Help: "Manifest export attempts by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	historyRowsPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eagle3d_history_rows_pruned_total",
		Help: "Readings removed from history by retention pruning",
	})
)

func RecordMeterReading(address, variable string, value float64) {
	meterReading.WithLabelValues(address, variable).Set(value)
}

func RecordDeviceCounts(devices, meters int) {
	devicesDiscovered.Set(float64(devices))
	metersDiscovered.Set(float64(meters))
}

func RecordHubOnline(online bool) {
	if online {
		hubOnline.Set(1)
	} else {
		hubOnline.Set(0)
	}
}

func RecordPoll(outcome string, d time.Duration) {
	pollsTotal.WithLabelValues(outcome).Inc()
	pollDurationSeconds.Observe(d.Seconds())
	if outcome == "success" {
		lastPollTimestamp.SetToCurrentTime()
	}
}

func IncPollFailure(stage string) { pollFailuresTotal.WithLabelValues(stage).Inc() }

func IncManifestExport(outcome string) { manifestExportsTotal.WithLabelValues(outcome).Inc() }

func AddHistoryRowsPruned(n int64) {
	if n > 0 {
		historyRowsPruned.Add(float64(n))
	}
}
