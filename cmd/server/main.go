package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Brownie44l1/stethoscope-api/internal/config"
	"github.com/Brownie44l1/stethoscope-api/internal/handlers"
	"github.com/Brownie44l1/stethoscope-api/internal/logging"
	"github.com/Brownie44l1/stethoscope-api/internal/metrics"
	"github.com/Brownie44l1/stethoscope-api/internal/model"
	"github.com/Brownie44l1/stethoscope-api/internal/store"
	"github.com/Brownie44l1/stethoscope-api/internal/worker"
)

const serviceName = "stethoscope-api"

func main() {
	configPath := flag.String("config", "", "Path to configuration file (defaults apply when empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil || p < 1 || p > 65535 {
			fmt.Fprintf(os.Stderr, "Invalid PORT %q\n", port)
			os.Exit(1)
		}
		cfg.HTTP.Port = p
	}

	logger, closeLog := logging.New(cfg.Logging)
	defer closeLog()

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("config_path", *configPath),
		slog.String("model_path", cfg.Model.Path),
		slog.String("output_dir", cfg.Output.Dir),
		slog.Int("queue_size", cfg.Worker.QueueSize),
	)

	appMetrics := metrics.New(prometheus.DefaultRegisterer)

	// The classifier is loaded lazily on the first prediction.
	svc := model.NewService(model.ONNXLoader(model.ONNXConfig{
		ModelPath:   cfg.Model.Path,
		LibraryPath: cfg.Model.LibraryPath,
		InputName:   cfg.Model.InputName,
		OutputName:  cfg.Model.OutputName,
	}), model.WithLogger(logger), model.WithMetrics(appMetrics))

	runner := worker.NewRunner(svc, cfg.Worker.QueueSize, logger, appMetrics)
	st := store.New(cfg.Output.Dir, logger, appMetrics)
	handler := handlers.NewHandler(runner, svc, st, logger, appMetrics, cfg.HTTP.MaxUploadSize)

	srv := &http.Server{
		Addr:         cfg.HTTP.ListenAddress(),
		Handler:      handler.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			slog.String("address", srv.Addr),
			slog.Any("labels", model.Labels.Names()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("HTTP server failed", slog.String("error", err.Error()))
	}

	logger.Info("Starting graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	runner.Close()
	if err := svc.Close(); err != nil {
		logger.Error("Error releasing model", slog.String("error", err.Error()))
	}

	logger.Info("Service stopped")
}
