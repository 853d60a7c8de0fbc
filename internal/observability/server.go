// Package observability wires Prometheus metric families and a small echo
// HTTP server exposing /healthz and /metrics, grounded on the teacher's
// httpcontroller.Server (echo.New(), handler registration, Start/Shutdown)
// but scoped to observability only, not the full dashboard.
package observability

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bramsnet/meteorscan/internal/conf"
	"github.com/bramsnet/meteorscan/internal/logging"
	"github.com/bramsnet/meteorscan/internal/observability/metrics"
)

// Registry bundles every metrics.New*Metrics family behind one Prometheus
// registry, so cmd/root.go constructs it once and hands each *Metrics
// struct to the collaborator that records against it.
type Registry struct {
	Registry    *prometheus.Registry
	Datastore   *metrics.DatastoreMetrics
	DiskManager *metrics.DiskManagerMetrics
	Pipeline    *metrics.PipelineMetrics
}

// NewRegistry builds a fresh Prometheus registry and every component's
// metric family on top of it.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	return &Registry{
		Registry:    reg,
		Datastore:   metrics.NewDatastoreMetrics(reg),
		DiskManager: metrics.NewDiskManagerMetrics(reg),
		Pipeline:    metrics.NewPipelineMetrics(reg),
	}
}

// Server is the minimal HTTP surface spec.md's observability ambient
// concerns need: liveness and metric scraping, nothing else.
type Server struct {
	echo   *echo.Echo
	listen string
}

// NewServer builds a Server bound to settings.WebServer.Listen, serving
// /healthz and /metrics from reg.
func NewServer(settings *conf.Settings, reg *Registry) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg.Registry, promhttp.HandlerOpts{})))

	return &Server{echo: e, listen: settings.WebServer.Listen}
}

// Start begins serving in a background goroutine, logging (not panicking)
// on a listener failure after Shutdown wasn't the cause.
func (s *Server) Start() {
	go func() {
		if err := s.echo.Start(s.listen); err != nil && err != http.ErrServerClosed {
			logging.Error("observability server stopped", "error", err)
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
