// Package metrics registers the Prometheus collectors for the simulation
// and its HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric names.
const (
	MetricNameTicks            = "taixu_ticks_total"
	MetricNameDays             = "taixu_days_total"
	MetricNameCropsPlanted     = "taixu_crops_planted_total"
	MetricNameCropsHarvested   = "taixu_crops_harvested_total"
	MetricNameHarvestYield     = "taixu_harvest_yield_total"
	MetricNameRejected         = "taixu_operations_rejected_total"
	MetricNamePathRequests     = "taixu_path_requests_total"
	MetricNameSnapshotSaves    = "taixu_snapshot_saves_total"
	MetricNameSubscribers      = "taixu_event_subscribers"
	MetricNameHTTPRequests     = "taixu_http_requests_total"
	MetricNameHTTPDuration     = "taixu_http_request_duration_seconds"
	MetricNameHTTPInFlight     = "taixu_http_requests_in_flight"
	MetricNameTickDuration     = "taixu_tick_duration_seconds"
	MetricNameGrowingTiles     = "taixu_growing_tiles"
	MetricNameHarvestableTiles = "taixu_harvestable_tiles"
)

// Label names.
const (
	LabelCrop    = "crop"
	LabelOp      = "op"
	LabelReason  = "reason"
	LabelOutcome = "outcome"
	LabelResult  = "result"
	LabelMethod  = "method"
	LabelPath    = "path"
	LabelStatus  = "status"
)

// Simulation metrics
var (
	Ticks = promauto.NewCounter(prometheus.CounterOpts{
		Name: MetricNameTicks,
		Help: "Simulation ticks processed",
	})

	Days = promauto.NewCounter(prometheus.CounterOpts{
		Name: MetricNameDays,
		Help: "In-game days advanced",
	})

	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    MetricNameTickDuration,
		Help:    "Time spent running one simulation tick",
		Buckets: []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	})

	GrowingTiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: MetricNameGrowingTiles,
		Help: "Farmland tiles with a growing crop",
	})

	HarvestableTiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: MetricNameHarvestableTiles,
		Help: "Farmland tiles with a ripe crop",
	})
)

// Farm metrics
var (
	CropsPlanted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: MetricNameCropsPlanted,
		Help: "Crops sown, by crop",
	}, []string{LabelCrop})

	CropsHarvested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: MetricNameCropsHarvested,
		Help: "Fields harvested or cleared, by crop",
	}, []string{LabelCrop})

	HarvestYield = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: MetricNameHarvestYield,
		Help: "Produce gathered, by crop",
	}, []string{LabelCrop})
)

// Operation metrics
var (
	Rejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: MetricNameRejected,
		Help: "Operations rejected with a typed error, by operation and reason",
	}, []string{LabelOp, LabelReason})

	PathRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: MetricNamePathRequests,
		Help: "Click-to-move path requests, by outcome",
	}, []string{LabelOutcome})

	SnapshotSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: MetricNameSnapshotSaves,
		Help: "Snapshot saves, by result",
	}, []string{LabelResult})

	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: MetricNameSubscribers,
		Help: "Live event stream subscribers",
	})
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: MetricNameHTTPRequests,
		Help: "Total number of HTTP requests",
	}, []string{LabelMethod, LabelPath, LabelStatus})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    MetricNameHTTPDuration,
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{LabelMethod, LabelPath})

	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: MetricNameHTTPInFlight,
		Help: "Current number of HTTP requests being served",
	})
)
