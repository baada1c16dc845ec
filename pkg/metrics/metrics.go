package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Recommendations served, by the tier that produced them
	RecommendRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reco_recommend_requests_total",
		Help: "Total number of recommend calls by winning strategy",
	}, []string{"strategy"})

	RecommendLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "reco_recommend_latency_seconds",
		Help:    "Latency of the recommendation tier cascade",
		Buckets: prometheus.DefBuckets,
	})

	// Store failures swallowed by a tier before falling through
	TierErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reco_tier_errors_total",
		Help: "Store errors treated as an empty tier",
	}, []string{"strategy"})

	PrecomputeProducts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reco_precompute_products_total",
		Help: "Products recomputed by outcome",
	}, []string{"outcome"})

	EdgesWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reco_edges_written_total",
		Help: "Recommendation edges written by type",
	}, []string{"type"})

	PrecomputeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "reco_precompute_shop_duration_seconds",
		Help:    "Duration of a full shop precompute pass",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
	})

	PopularityRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reco_popularity_runs_total",
		Help: "Popularity recompute runs by outcome",
	}, []string{"outcome"})

	AnalyticsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reco_analytics_dropped_total",
		Help: "Recommendation request logs that could not be recorded",
	})
)

func Init() {
	prometheus.MustRegister(
		RecommendRequests,
		RecommendLatency,
		TierErrors,
		PrecomputeProducts,
		EdgesWritten,
		PrecomputeDuration,
		PopularityRuns,
		AnalyticsDropped,
	)
}
