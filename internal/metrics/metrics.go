// Package metrics holds the Prometheus collectors of the engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "alchemorsel"

var (
	rebuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshot_rebuilds_total",
		Help:      "Snapshot rebuilds by component and result.",
	}, []string{"component", "result"})

	rebuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "snapshot_rebuild_duration_seconds",
		Help:      "Time spent loading and indexing a snapshot.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"component"})

	snapshotVersion = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "snapshot_version",
		Help:      "Generation of the currently published snapshot.",
	}, []string{"component"})

	snapshotSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "snapshot_entries",
		Help:      "Number of entries in the currently published snapshot.",
	}, []string{"component"})

	recommendationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recommendations_total",
		Help:      "Ranking requests served by scoring strategy.",
	}, []string{"strategy"})

	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "nutrient_resolutions_total",
		Help:      "Nutrient reference lookups by outcome.",
	}, []string{"outcome"})

	nutritionCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "nutrition_cache_requests_total",
		Help:      "Nutrition summary cache lookups by result.",
	}, []string{"result"})
)

const (
	ComponentCorpus    = "corpus"
	ComponentNutrients = "nutrients"
)

// RecordRebuild records one rebuild attempt.
func RecordRebuild(component string, err error, took time.Duration) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	rebuildsTotal.WithLabelValues(component, result).Inc()
	rebuildDuration.WithLabelValues(component).Observe(took.Seconds())
}

// SetSnapshot publishes the version and size of a newly swapped snapshot.
func SetSnapshot(component string, version uint64, entries int) {
	snapshotVersion.WithLabelValues(component).Set(float64(version))
	snapshotSize.WithLabelValues(component).Set(float64(entries))
}

func RecordRecommendation(strategy string) {
	recommendationsTotal.WithLabelValues(strategy).Inc()
}

func RecordResolution(outcome string) {
	resolutionsTotal.WithLabelValues(outcome).Inc()
}

// RecordCacheLookup records a hit or a miss.
func RecordCacheLookup(hit bool) {
	if hit {
		nutritionCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	nutritionCacheTotal.WithLabelValues("miss").Inc()
}
