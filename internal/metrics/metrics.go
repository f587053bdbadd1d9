package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the interface the engine components report through.
type Collector interface {
	RecordTransition(state string)
	RecordViewRecorded(completed bool)
	RecordPrefetch(kind string, outcome string)
	RecordMediaError()
	RecordSessionOpened()
	SetSessionOpen(open bool)
}

// PromCollector implements Collector on Prometheus.
type PromCollector struct {
	transitions   *prometheus.CounterVec
	viewsRecorded *prometheus.CounterVec
	prefetch      *prometheus.CounterVec
	mediaErrors   prometheus.Counter
	sessionsOpen  prometheus.Gauge
	sessionsTotal prometheus.Counter
}

// NewCollector creates a PromCollector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *PromCollector {
	c := &PromCollector{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storyplay_transitions_total",
			Help: "Playback state transitions by target state",
		}, []string{"state"}),
		viewsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storyplay_views_recorded_total",
			Help: "View completion records by completed flag",
		}, []string{"completed"}),
		prefetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storyplay_prefetch_total",
			Help: "Prefetch attempts by media kind and outcome",
		}, []string{"kind", "outcome"}),
		mediaErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storyplay_media_errors_total",
			Help: "Media load errors skipped by the engine",
		}),
		sessionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storyplay_session_open",
			Help: "Whether a playback session is currently open",
		}),
		sessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storyplay_sessions_opened_total",
			Help: "Total playback sessions opened",
		}),
	}

	reg.MustRegister(
		c.transitions,
		c.viewsRecorded,
		c.prefetch,
		c.mediaErrors,
		c.sessionsOpen,
		c.sessionsTotal,
	)
	return c
}

func (c *PromCollector) RecordTransition(state string) {
	c.transitions.WithLabelValues(state).Inc()
}

func (c *PromCollector) RecordViewRecorded(completed bool) {
	c.viewsRecorded.WithLabelValues(strconv.FormatBool(completed)).Inc()
}

func (c *PromCollector) RecordPrefetch(kind string, outcome string) {
	c.prefetch.WithLabelValues(kind, outcome).Inc()
}

func (c *PromCollector) RecordMediaError() {
	c.mediaErrors.Inc()
}

func (c *PromCollector) RecordSessionOpened() {
	c.sessionsTotal.Inc()
}

func (c *PromCollector) SetSessionOpen(open bool) {
	if open {
		c.sessionsOpen.Set(1)
		return
	}
	c.sessionsOpen.Set(0)
}

var _ Collector = (*PromCollector)(nil)

// Noop discards all measurements. Used in tests.
type Noop struct{}

func (Noop) RecordTransition(string)       {}
func (Noop) RecordViewRecorded(bool)       {}
func (Noop) RecordPrefetch(string, string) {}
func (Noop) RecordMediaError()             {}
func (Noop) RecordSessionOpened()          {}
func (Noop) SetSessionOpen(bool)           {}

var _ Collector = Noop{}
