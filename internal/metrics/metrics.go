// Package metrics exposes request and queue counters in the Prometheus format.
package metrics

import (
	"context"
	"net/http"

	"nyan-bot/pkg/events"
	"nyan-bot/pkg/sequencer"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nyan_bot"

// SnapshotFunc reports the live sequencer state.
type SnapshotFunc func() sequencer.Snapshot

// Recorder counts sequencer events. It is an events.Publisher so it can sit
// next to the event bus on the sequencer's sink.
type Recorder struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	modes    prometheus.Counter
}

func NewRecorder(snapshot SnapshotFunc) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Count of chat requests by outcome.",
			},
			[]string{"outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "completion_duration_seconds",
				Help:      "Time spent in the completion call.",
				Buckets:   []float64{0.5, 1, 2, 4, 8, 15, 30, 60},
			},
			[]string{"outcome"},
		),
		modes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "style_mode_changes_total",
			Help:      "Count of style mode toggles.",
		}),
	}

	r.registry.MustRegister(
		r.requests,
		r.latency,
		r.modes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if snapshot != nil {
		r.registry.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queue_depth",
				Help:      "Requests waiting behind the one in flight.",
			}, func() float64 { return float64(snapshot().QueueDepth) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "busy",
				Help:      "1 while a request is being serviced.",
			}, func() float64 { return boolToFloat(snapshot().Busy) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "style_mode",
				Help:      "1 while answers are stylized.",
			}, func() float64 { return boolToFloat(snapshot().StyleMode) }),
		)
	}
	return r
}

func (r *Recorder) Publish(_ context.Context, event events.Event) error {
	switch event.EventType() {
	case sequencer.EventRequestAdmitted:
		r.requests.WithLabelValues("admitted").Inc()
	case sequencer.EventRequestQueued:
		r.requests.WithLabelValues("queued").Inc()
	case sequencer.EventRequestRejected:
		r.requests.WithLabelValues("rejected").Inc()
	case sequencer.EventRequestCompleted:
		r.requests.WithLabelValues("completed").Inc()
		r.observe("completed", event.Payload())
	case sequencer.EventRequestFailed:
		r.requests.WithLabelValues("failed").Inc()
		r.observe("failed", event.Payload())
	case sequencer.EventStyleModeChanged:
		r.modes.Inc()
	}
	return nil
}

func (r *Recorder) observe(outcome string, data map[string]interface{}) {
	ms, ok := data["latency_ms"].(int64)
	if !ok {
		return
	}
	r.latency.WithLabelValues(outcome).Observe(float64(ms) / 1000)
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the text exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
