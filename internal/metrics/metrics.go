// Package metrics holds the Prometheus collectors shared by the loader, the
// query service and the API server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "crease"

var (
	DocumentsLoaded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "documents_loaded_total",
		Help:      "Match documents processed by the loader",
	}, []string{"status"}) // "committed", "failed"

	LoadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "document_load_duration_seconds",
		Help:      "Time taken to load one match document inside its transaction",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	})

	DeliveriesInserted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deliveries_inserted_total",
		Help:      "Delivery rows written, counted when the statement succeeds",
	})

	EntityResolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entity_resolutions_total",
		Help:      "Team and player name resolutions by source",
	}, []string{"kind", "source"}) // source: "cache", "inserted", "fetched"

	AskRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ask_requests_total",
		Help:      "Natural-language questions answered by outcome",
	}, []string{"outcome"}) // "ok", "cached", "no_sql", "error"

	AskDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ask_duration_seconds",
		Help:      "Time from question to rendered answer",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
	})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests served by route and status code",
	}, []string{"route", "code"})

	WebSocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "websocket_clients",
		Help:      "Currently connected WebSocket clients",
	})
)

func init() {
	prometheus.MustRegister(
		DocumentsLoaded,
		LoadDuration,
		DeliveriesInserted,
		EntityResolutions,
		AskRequests,
		AskDuration,
		HTTPRequests,
		WebSocketClients,
	)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
