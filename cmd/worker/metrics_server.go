package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"newsfeed-engine/internal/scheduler"
	"newsfeed-engine/internal/telemetry"
)

// startMetricsServer starts the operational HTTP server on its own port,
// separate from the liveness/readiness server in internal/infra/worker: the
// Prometheus scrape endpoint plus read-only JSON views over the scheduler
// and cache-protection telemetry. It runs in a background goroutine and
// shuts down gracefully when ctx is canceled.
//
// Environment variables:
//   - METRICS_PORT: Port to listen on (default: 9090)
func startMetricsServer(ctx context.Context, logger *slog.Logger, sched *scheduler.Scheduler, observer *telemetry.Observer) *http.Server {
	port := getMetricsPort()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, logger, sched.Snapshots())
	})
	mux.HandleFunc("/telemetry", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, logger, observer.SourceReports())
	})
	mux.HandleFunc("/telemetry/global", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, logger, observer.Rollup())
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("metrics server starting", slog.Int("port", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", slog.Any("error", err))
		}
	}()

	go func() {
		<-ctx.Done()
		logger.Info("metrics server shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", slog.Any("error", err))
		} else {
			logger.Info("metrics server stopped")
		}
	}()

	return server
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("status endpoint encode failed", slog.Any("error", err))
	}
}

// getMetricsPort retrieves the metrics server port from environment variable.
// Defaults to 9090 if not set or invalid.
func getMetricsPort() int {
	portStr := os.Getenv("METRICS_PORT")
	if portStr == "" {
		return 9090
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return 9090
	}

	return port
}
