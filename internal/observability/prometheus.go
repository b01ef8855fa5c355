package observability

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sreekeshm77/ATS-project/internal/config"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// PrometheusConfig describes the scrape endpoint for pull-based metrics.
type PrometheusConfig struct {
	Enabled  bool
	Endpoint string
	Port     string
}

// SetupPrometheusExporter builds the OTel-to-Prometheus bridge and a mux
// serving the scrape endpoint. The exporter registers with the default
// Prometheus registry, which is what promhttp.Handler exposes.
func SetupPrometheusExporter(pc PrometheusConfig) (metric.Reader, *http.ServeMux, error) {
	if !pc.Enabled {
		return nil, nil, nil
	}

	exp, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build Prometheus exporter: %w", err)
	}

	m := http.NewServeMux()
	m.Handle(pc.Endpoint, promhttp.Handler())
	return exp, m, nil
}

// StartPrometheusServer serves the scrape endpoint on its own port, separate
// from the API listener, so metrics stay reachable without TLS or client
// certificates.
func StartPrometheusServer(m *http.ServeMux, port string) error {
	if m == nil {
		return nil
	}

	srv := &http.Server{Addr: ":" + port, Handler: m}
	srv.ReadHeaderTimeout = 10 * time.Second
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second

	fmt.Printf("Prometheus metrics listening on http://localhost%s/metrics\n", srv.Addr)

	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("Prometheus metrics server failed: %v\n", err)
		}
	}()
	return nil
}

// GetPrometheusConfig extracts the Prometheus settings, falling back to the
// standard scrape setup when no config is loaded.
func GetPrometheusConfig(c *config.Config) PrometheusConfig {
	if c == nil {
		return PrometheusConfig{Enabled: true, Endpoint: "/metrics", Port: "9090"}
	}
	p := c.Observability.Prometheus
	return PrometheusConfig{Enabled: p.Enabled, Endpoint: p.Endpoint, Port: p.Port}
}
