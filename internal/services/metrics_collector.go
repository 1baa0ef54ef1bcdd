package services

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector owns the ranking service's Prometheus collectors. A nil
// *MetricsCollector is valid and records nothing.
type MetricsCollector struct {
	recommendationRequests *prometheus.CounterVec
	recommendationLatency  prometheus.Histogram
	relaxationLevel        *prometheus.CounterVec
	degradedResponses      prometheus.Counter
	diversityBackfills     prometheus.Counter
	cacheResults           *prometheus.CounterVec
	collaborativeEmpty     prometheus.Counter

	snapshotRefreshes       *prometheus.CounterVec
	snapshotRefreshDuration prometheus.Histogram
	snapshotVersion         prometheus.Gauge
	snapshotUsers           prometheus.Gauge
}

// NewMetricsCollector registers collectors on reg.
func NewMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(reg)

	return &MetricsCollector{
		recommendationRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dinerank_recommendation_requests_total",
			Help: "Total number of recommendation requests by eligibility state",
		}, []string{"eligibility"}),

		recommendationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dinerank_recommendation_latency_seconds",
			Help:    "Recommendation pipeline latency in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),

		relaxationLevel: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dinerank_relaxation_level_total",
			Help: "Responses by filter relaxation level",
		}, []string{"level"}),

		degradedResponses: factory.NewCounter(prometheus.CounterOpts{
			Name: "dinerank_degraded_responses_total",
			Help: "Responses served after relaxation, fallback or timeout",
		}),

		diversityBackfills: factory.NewCounter(prometheus.CounterOpts{
			Name: "dinerank_diversity_backfills_total",
			Help: "Responses that needed the uncapped diversity pass",
		}),

		cacheResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dinerank_cache_results_total",
			Help: "Cache lookups by cache and outcome",
		}, []string{"cache", "outcome"}),

		collaborativeEmpty: factory.NewCounter(prometheus.CounterOpts{
			Name: "dinerank_collaborative_empty_total",
			Help: "Eligible requests where the collaborative scorer produced no signal",
		}),

		snapshotRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dinerank_snapshot_refreshes_total",
			Help: "Similarity snapshot refreshes by outcome",
		}, []string{"outcome"}),

		snapshotRefreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dinerank_snapshot_refresh_seconds",
			Help:    "Similarity snapshot build duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),

		snapshotVersion: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dinerank_snapshot_version",
			Help: "Version of the similarity snapshot serving reads",
		}),

		snapshotUsers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dinerank_snapshot_users",
			Help: "Users covered by the current similarity snapshot",
		}),
	}
}

func (mc *MetricsCollector) RecordRecommendation(eligibility EligibilityState, relaxation RelaxationLevel, degraded, backfilled bool, duration time.Duration) {
	if mc == nil {
		return
	}
	mc.recommendationRequests.WithLabelValues(string(eligibility)).Inc()
	mc.recommendationLatency.Observe(duration.Seconds())
	mc.relaxationLevel.WithLabelValues(strconv.Itoa(int(relaxation))).Inc()
	if degraded {
		mc.degradedResponses.Inc()
	}
	if backfilled {
		mc.diversityBackfills.Inc()
	}
}

func (mc *MetricsCollector) RecordCacheResult(cache string, hit bool) {
	if mc == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	mc.cacheResults.WithLabelValues(cache, outcome).Inc()
}

func (mc *MetricsCollector) RecordCollaborativeEmpty() {
	if mc == nil {
		return
	}
	mc.collaborativeEmpty.Inc()
}

func (mc *MetricsCollector) RecordSnapshotRefresh(snapshot *SimilaritySnapshot, err error, duration time.Duration) {
	if mc == nil {
		return
	}
	if err != nil {
		mc.snapshotRefreshes.WithLabelValues("error").Inc()
		return
	}
	mc.snapshotRefreshes.WithLabelValues("success").Inc()
	mc.snapshotRefreshDuration.Observe(duration.Seconds())
	mc.snapshotVersion.Set(float64(snapshot.Version()))
	mc.snapshotUsers.Set(float64(snapshot.Info().Users))
}
