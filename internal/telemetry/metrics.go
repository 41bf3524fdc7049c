package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "meshnode"

// Metrics records node and gossip activity on its own registry. It
// implements node.Metrics and gossip.Observer.
type Metrics struct {
	Registry *prometheus.Registry

	messagesIn     *prometheus.CounterVec
	messagesOut    *prometheus.CounterVec
	handleDuration *prometheus.HistogramVec
	gossipSent     *prometheus.CounterVec
	gossipAcked    *prometheus.CounterVec
	gossipPruned   prometheus.Counter
	gossipInFlight prometheus.Gauge
	buildInfo      *prometheus.GaugeVec
	uptime         prometheus.GaugeFunc
}

// New creates the collectors and registers them on a fresh registry.
func New(workload string) *Metrics {
	labels := prometheus.Labels{"workload": workload}
	start := time.Now()

	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		messagesIn: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "messages_in_total",
				Help:        "Messages handled, by type.",
				ConstLabels: labels,
			},
			[]string{"type"},
		),
		messagesOut: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "messages_out_total",
				Help:        "Messages written, by type.",
				ConstLabels: labels,
			},
			[]string{"type"},
		),
		handleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Name:        "handle_duration_seconds",
				Help:        "Time spent handling one message.",
				ConstLabels: labels,
				// 10µs .. ~80ms
				Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14),
			},
			[]string{"type"},
		),
		gossipSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "gossip_sent_total",
				Help:        "Gossip messages sent, by peer.",
				ConstLabels: labels,
			},
			[]string{"peer"},
		),
		gossipAcked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "gossip_acked_total",
				Help:        "Gossip messages acknowledged, by peer.",
				ConstLabels: labels,
			},
			[]string{"peer"},
		),
		gossipPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "gossip_pruned_total",
			Help:        "Gossip messages abandoned after a full tick without acknowledgement.",
			ConstLabels: labels,
		}),
		gossipInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "gossip_outstanding",
			Help:        "Gossip messages awaiting acknowledgement.",
			ConstLabels: labels,
		}),
		buildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "build_info",
				Help:      "Build info (constant 1, labeled by version).",
			},
			[]string{"version"},
		),
		uptime: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "uptime_seconds",
				Help:      "Process uptime in seconds.",
			},
			func() float64 { return time.Since(start).Seconds() },
		),
	}

	m.Registry.MustRegister(
		m.messagesIn, m.messagesOut, m.handleDuration,
		m.gossipSent, m.gossipAcked, m.gossipPruned, m.gossipInFlight,
		m.buildInfo, m.uptime,
	)
	return m
}

// Handler exposes the registry. Mount it with mux.Handle("/metrics", m.Handler()).
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// SetBuildInfo should be called once at startup.
func (m *Metrics) SetBuildInfo(version string) {
	m.buildInfo.WithLabelValues(version).Set(1)
}

func (m *Metrics) MessageIn(typ string)  { m.messagesIn.WithLabelValues(typ).Inc() }
func (m *Metrics) MessageOut(typ string) { m.messagesOut.WithLabelValues(typ).Inc() }

func (m *Metrics) Handled(typ string, elapsed time.Duration) {
	m.handleDuration.WithLabelValues(typ).Observe(elapsed.Seconds())
}

func (m *Metrics) GossipSent(peer string)  { m.gossipSent.WithLabelValues(peer).Inc() }
func (m *Metrics) GossipAcked(peer string) { m.gossipAcked.WithLabelValues(peer).Inc() }
func (m *Metrics) GossipPruned(count int)  { m.gossipPruned.Add(float64(count)) }
func (m *Metrics) Outstanding(count int)   { m.gossipInFlight.Set(float64(count)) }
