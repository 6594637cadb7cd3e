package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/poiesic/rentmatch/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

const metricsServerKey = "metrics-server"

// metricsServer exposes the match metrics over HTTP while a command runs.
type metricsServer struct {
	server   *http.Server
	listener net.Listener
}

func newMetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

// startMetricsServer listens on addr and serves /metrics in the background.
func startMetricsServer(addr string, gatherer prometheus.Gatherer) (*metricsServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for metrics: %w", err)
	}
	ms := &metricsServer{
		server: &http.Server{
			Handler:           newMetricsHandler(gatherer),
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: listener,
	}
	go func() {
		if err := ms.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", "err", err)
		}
	}()
	slog.Info("serving metrics", "addr", ms.Addr())
	return ms, nil
}

// Addr returns the address the server listens on.
func (ms *metricsServer) Addr() string {
	return ms.listener.Addr().String()
}

func (ms *metricsServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return ms.server.Shutdown(ctx)
}

// setupMetrics registers the match collectors and, with --metrics-addr,
// starts serving them.
func setupMetrics(c *cli.Context) error {
	metrics.Default()
	addr := c.String("metrics-addr")
	if addr == "" {
		return nil
	}
	ms, err := startMetricsServer(addr, prometheus.DefaultGatherer)
	if err != nil {
		return err
	}
	if c.App.Metadata == nil {
		c.App.Metadata = map[string]interface{}{}
	}
	c.App.Metadata[metricsServerKey] = ms
	return nil
}

// flushMetrics writes the metrics to --metrics-file, in the text format
// read by the node exporter's textfile collector, and stops the server.
func flushMetrics(c *cli.Context) error {
	var errs []error
	if path := c.String("metrics-file"); path != "" {
		if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		}
	}
	if ms, ok := c.App.Metadata[metricsServerKey].(*metricsServer); ok {
		errs = append(errs, ms.Close())
	}
	return errors.Join(errs...)
}
