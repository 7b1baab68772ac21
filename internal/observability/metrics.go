package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "celeste_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// MongoQueryLatency records query latency by operation and collection.
	MongoQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "celeste_mongo_query_latency_seconds",
		Help:    "MongoDB query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "collection"})

	// FeedBuildLatency records how long a full feed build takes, from the
	// candidate query through ranking and author joining.
	FeedBuildLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "celeste_feed_build_latency_seconds",
		Help:    "Feed build latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// VerificationCodesIssued counts issued verification codes by purpose.
	VerificationCodesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "celeste_verification_codes_issued_total",
		Help: "Total number of verification codes issued by purpose",
	}, []string{"purpose"})

	// VerificationOutcomes counts verification attempts by outcome.
	VerificationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "celeste_verification_outcomes_total",
		Help: "Total number of verification attempts by outcome",
	}, []string{"outcome"})

	// MailSendFailures counts failed verification email deliveries.
	MailSendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "celeste_mail_send_failures_total",
		Help: "Total number of failed verification email deliveries",
	})
)

// MongoMetrics wraps query latency recording for the document store.
type MongoMetrics struct{}

// NewMongoMetrics returns a new MongoMetrics instance.
func NewMongoMetrics() *MongoMetrics {
	return &MongoMetrics{}
}

// ObserveQuery records the latency of a query.
func (m *MongoMetrics) ObserveQuery(operation, collection string, start time.Time) {
	latency := time.Since(start).Seconds()
	MongoQueryLatency.WithLabelValues(operation, collection).Observe(latency)
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *MongoMetrics) TrackQuery(operation, collection string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, collection, start)
	}
}
