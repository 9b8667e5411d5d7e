package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rushteam/hybridrec/pipeline"
)

const metricsNamespace = "hybridrec"

// 降级原因
const (
	fallbackAnonymous        = "anonymous"
	fallbackOutOfRange       = "out_of_range"
	fallbackInsufficientData = "insufficient_data"
	fallbackRecallError      = "recall_error"
)

type metrics struct {
	events          *prometheus.CounterVec
	recommendations *prometheus.CounterVec
	fallbacks       *prometheus.CounterVec
	retrains        *prometheus.CounterVec
	retrainDuration prometheus.Histogram
	modelUsers      prometheus.Gauge
	modelItems      prometheus.Gauge
	pendingEvents   prometheus.Gauge
	nodeDuration    *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_total",
			Help:      "Interaction events received, by action and outcome",
		}, []string{"action", "outcome"}),
		recommendations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "recommendations_total",
			Help:      "Recommendation requests, by outcome",
		}, []string{"outcome"}),
		fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fallbacks_total",
			Help:      "Requests served without collaborative signal, by reason",
		}, []string{"reason"}),
		retrains: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "retrains_total",
			Help:      "Model retrains, by trigger and outcome",
		}, []string{"trigger", "outcome"}),
		retrainDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "retrain_duration_seconds",
			Help:      "Duration of matrix rebuild plus ALS training",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
		modelUsers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "model_users",
			Help:      "User rows in the current model",
		}),
		modelItems: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "model_items",
			Help:      "Item columns in the current model",
		}),
		pendingEvents: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "pending_events",
			Help:      "Events appended since the last successful retrain",
		}),
		nodeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "pipeline_node_duration_seconds",
			Help:      "Duration of each pipeline node",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"node"}),
	}
}

func (m *metrics) observeNode(node pipeline.Node, _, _ int, cost time.Duration, _ error) {
	m.nodeDuration.WithLabelValues(node.Name()).Observe(cost.Seconds())
}

func (m *metrics) observeSnapshot(s *Snapshot, pending int) {
	if s.Model != nil {
		m.modelUsers.Set(float64(s.Model.UserCount()))
		m.modelItems.Set(float64(s.Model.ItemCount()))
	}
	m.pendingEvents.Set(float64(pending))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
