package pubsub

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments a broker with Prometheus counters and gauges. A nil
// *Metrics is valid everywhere it's used; every method is a no-op in that
// case so instrumentation stays optional.
type Metrics struct {
	topics      prometheus.Gauge
	subscribers prometheus.Gauge
	lagEvents   *prometheus.CounterVec
	published   *prometheus.CounterVec
}

// NewMetrics registers broker instrumentation under the given namespace on
// reg. Pass prometheus.DefaultRegisterer to use the global registry.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		topics: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pubsub_topics",
			Help:      "Number of topics currently held by at least one subscriber.",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pubsub_subscribers",
			Help:      "Number of live subscribers.",
		}),
		lagEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pubsub_lag_events_total",
			Help:      "Number of messages subscribers missed through lag, by topic.",
		}, []string{"topic"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pubsub_published_total",
			Help:      "Number of messages published, by topic.",
		}, []string{"topic"}),
	}
	reg.MustRegister(m.topics, m.subscribers, m.lagEvents, m.published)
	return m
}

func (m *Metrics) setTopics(n int) {
	if m == nil {
		return
	}
	m.topics.Set(float64(n))
}

func (m *Metrics) setSubscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}

func (m *Metrics) observePublish(topic any) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(topicLabel(topic)).Inc()
}

func (m *Metrics) observeLag(topic any, n uint64) {
	if m == nil {
		return
	}
	m.lagEvents.WithLabelValues(topicLabel(topic)).Add(float64(n))
}

func topicLabel(topic any) string {
	return fmt.Sprintf("%v", topic)
}
