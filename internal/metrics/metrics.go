package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Webhook deliveries by provider and outcome (processed, duplicate, ignored, failed, rejected)
	WebhookEventsTotal *prometheus.CounterVec

	// Calls to third-party APIs (graph, iyzico, paytr, resend, n8n, centrifugo)
	OutboundRequestsTotal *prometheus.CounterVec

	// Subscription status changes
	SubscriptionTransitionsTotal *prometheus.CounterVec

	// Realtime websocket clients currently connected
	RealtimeClients prometheus.Gauge

	initOnce sync.Once
)

// Init registers the metrics on the default registry. Safe to call more than once.
func Init(prefix string) {
	initOnce.Do(func() {
		register(prometheus.DefaultRegisterer, prefix)
	})
}

func register(reg prometheus.Registerer, prefix string) {
	factory := promauto.With(reg)
	name := func(n string) string {
		if prefix == "" {
			return n
		}
		return strings.TrimSuffix(prefix, "_") + "_" + n
	}

	HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: name("http_requests_total"),
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    name("http_request_duration_seconds"),
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	WebhookEventsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: name("webhook_events_total"),
			Help: "Total number of webhook deliveries by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	OutboundRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: name("outbound_requests_total"),
			Help: "Total number of calls to third-party APIs",
		},
		[]string{"service", "outcome"},
	)

	SubscriptionTransitionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: name("subscription_transitions_total"),
			Help: "Total number of subscription status changes",
		},
		[]string{"from", "to"},
	)

	RealtimeClients = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: name("realtime_clients"),
			Help: "Websocket clients currently connected",
		},
	)
}

// ObserveHTTP records one finished HTTP request
func ObserveHTTP(method, route, status string, elapsed time.Duration) {
	if HTTPRequestsTotal == nil {
		return
	}
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(elapsed.Seconds())
}

// RecordWebhook increments the webhook counter
func RecordWebhook(provider, outcome string) {
	if WebhookEventsTotal == nil {
		return
	}
	WebhookEventsTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordOutbound increments the outbound call counter, outcome is "ok" or "error"
func RecordOutbound(service string, err error) {
	if OutboundRequestsTotal == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	OutboundRequestsTotal.WithLabelValues(service, outcome).Inc()
}

// RecordSubscriptionTransition increments the transition counter
func RecordSubscriptionTransition(from, to string) {
	if SubscriptionTransitionsTotal == nil {
		return
	}
	SubscriptionTransitionsTotal.WithLabelValues(from, to).Inc()
}

// ClientConnected adjusts the websocket client gauge by delta
func ClientConnected(delta int) {
	if RealtimeClients == nil {
		return
	}
	RealtimeClients.Add(float64(delta))
}
