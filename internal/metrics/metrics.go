// Package metrics exposes Prometheus collectors for the PeerNotes API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Verdict outcomes recorded by RecordVerdict.
const (
	OutcomeClean    = "clean"
	OutcomeHarmful  = "harmful"
	OutcomeUnparsed = "unparsed"
	OutcomeFailed   = "failed"
	OutcomeDisabled = "disabled"
)

// Note events recorded by RecordNoteEvent.
const (
	EventCreated  = "created"
	EventRejected = "rejected"
	EventLiked    = "liked"
	EventReported = "reported"
	EventDeleted  = "deleted"
)

// Recorder owns the API collectors. A nil *Recorder discards every observation.
type Recorder struct {
	requests   *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	verdicts   *prometheus.CounterVec
	noteEvents *prometheus.CounterVec
}

// New creates the collectors and registers them with registerer.
func New(registerer prometheus.Registerer) (*Recorder, error) {
	recorder := &Recorder{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peernotes_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "peernotes_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peernotes_moderation_verdicts_total",
			Help: "Moderation verdicts by outcome.",
		}, []string{"outcome"}),
		noteEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peernotes_note_events_total",
			Help: "Note lifecycle events.",
		}, []string{"event"}),
	}

	for _, collector := range []prometheus.Collector{
		recorder.requests,
		recorder.durations,
		recorder.verdicts,
		recorder.noteEvents,
	} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}
	return recorder, nil
}

// ObserveHTTP records one finished request.
func (r *Recorder) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	r.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.durations.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordVerdict counts one moderation outcome.
func (r *Recorder) RecordVerdict(outcome string) {
	if r == nil {
		return
	}
	r.verdicts.WithLabelValues(outcome).Inc()
}

// RecordNoteEvent counts one note lifecycle event.
func (r *Recorder) RecordNoteEvent(event string) {
	if r == nil {
		return
	}
	r.noteEvents.WithLabelValues(event).Inc()
}

// Handler serves the gathered metrics in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
