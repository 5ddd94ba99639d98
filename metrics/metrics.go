// Package metrics exposes a Prometheus-compatible /metrics listener on its
// own address, plus the counters recorded by the orchestration flow.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

var (
	akeRequests        = metrics.NewCounter(`ake_requests_total`)
	akeFailures        = metrics.NewCounter(`ake_requests_failed_total`)
	akeMismatches      = metrics.NewCounter(`ake_shared_secret_mismatch_total`)
	healthRequests     = metrics.NewCounter(`health_requests_total`)
	strategySuccessFmt = `ake_strategy_success_total{strategy="%s"}`
)

// RecordAkeRequest counts an inbound /select/ake request.
func RecordAkeRequest() { akeRequests.Inc() }

// RecordAkeFailure counts an orchestration-level failure.
func RecordAkeFailure() { akeFailures.Inc() }

// RecordMismatch counts a shared-secret mismatch outcome.
func RecordMismatch() { akeMismatches.Inc() }

// RecordHealthRequest counts an inbound /health request.
func RecordHealthRequest() { healthRequests.Inc() }

// RecordStrategySuccess counts which signing strategy produced the context
// that passed downstream verification.
func RecordStrategySuccess(strategy string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(strategySuccessFmt, strategy)).Inc()
}

// MetricsServer serves the /metrics endpoint on a dedicated listener.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server for the given service name and listen address.
func New(serviceName, listenAddr string) (*MetricsServer, error) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`service_up{service=%q}`, serviceName)).Set(1)

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	return &MetricsServer{
		srv: &http.Server{
			Addr:         listenAddr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}, nil
}

// ListenAndServe blocks serving the metrics endpoint.
func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics listener.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
