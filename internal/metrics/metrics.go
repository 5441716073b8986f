// Package metrics holds the Prometheus collectors of the messaging service.
// All methods are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dm"

// Metrics groups the service counters
type Metrics struct {
	registry *prometheus.Registry

	messagesSent     *prometheus.CounterVec
	messagesEdited   prometheus.Counter
	messagesDeleted  *prometheus.CounterVec
	readReceipts     prometheus.Counter
	typingEvents     *prometheus.CounterVec
	typingEvicted    prometheus.Counter
	notifyFailures   prometheus.Counter
	conversationsNew prometheus.Counter
}

// New registers the collectors on a fresh registry together with the Go
// runtime and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		messagesSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Messages sent, by content kind.",
		}, []string{"kind"}),
		messagesEdited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_edited_total",
			Help:      "Messages edited.",
		}),
		messagesDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_deleted_total",
			Help:      "Message deletions, by mode.",
		}, []string{"mode"}),
		readReceipts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_receipts_total",
			Help:      "Read receipts added by mark-read.",
		}),
		typingEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "typing_events_total",
			Help:      "Typing signals, by action.",
		}, []string{"action"}),
		typingEvicted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "typing_evicted_total",
			Help:      "Expired typing entries removed by the sweeper.",
		}),
		notifyFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_failures_total",
			Help:      "New-message notifications that could not be published.",
		}),
		conversationsNew: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_opened_total",
			Help:      "Get-or-create conversation calls.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) MessageSent(kind string) {
	if m == nil {
		return
	}
	m.messagesSent.WithLabelValues(kind).Inc()
}

func (m *Metrics) MessageEdited() {
	if m == nil {
		return
	}
	m.messagesEdited.Inc()
}

func (m *Metrics) MessageDeleted(mode string) {
	if m == nil {
		return
	}
	m.messagesDeleted.WithLabelValues(mode).Inc()
}

func (m *Metrics) ReadReceipts(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.readReceipts.Add(float64(n))
}

func (m *Metrics) TypingEvent(action string) {
	if m == nil {
		return
	}
	m.typingEvents.WithLabelValues(action).Inc()
}

// TypingEvicted implements the sweeper's eviction recorder
func (m *Metrics) TypingEvicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.typingEvicted.Add(float64(n))
}

func (m *Metrics) NotifyFailed() {
	if m == nil {
		return
	}
	m.notifyFailures.Inc()
}

func (m *Metrics) ConversationOpened() {
	if m == nil {
		return
	}
	m.conversationsNew.Inc()
}
