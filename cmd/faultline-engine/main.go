package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/platformops/faultline/internal/aggregator"
	"github.com/platformops/faultline/internal/alerting"
	"github.com/platformops/faultline/internal/api"
	"github.com/platformops/faultline/internal/config"
	"github.com/platformops/faultline/internal/engine"
	"github.com/platformops/faultline/internal/metrics"
	"github.com/platformops/faultline/internal/recovery"
	"github.com/platformops/faultline/internal/store"
	"github.com/platformops/faultline/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting faultline", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var kv store.KeyValueStore
	redisStore, err := store.NewRedisStore(cfg.Store)
	if err != nil {
		// Degraded mode: correlation state is process-local and lost on
		// restart, but ingestion keeps working.
		logger.Warn("external store unavailable, using in-memory store", slog.Any("error", err))
		kv = store.NewMemoryStore()
	} else {
		kv = redisStore
	}
	defer kv.Close()

	errorStore := store.NewErrorStore(kv, logger, cfg.Engine.ErrorTTL, cfg.Engine.MaxRecentErrors, cfg.Store.OpTimeout)
	correlationStore := store.NewCorrelationStore(kv, logger, cfg.Engine.CorrelationTTL, cfg.Store.OpTimeout)
	sink := alerting.NewSink(kv, logger, cfg.Engine.MaxAlerts, cfg.Engine.CorrelationTTL, cfg.Store.OpTimeout)

	var dispatcher engine.Dispatcher
	if cfg.Recovery.Enabled {
		dispatcher = recovery.NewDispatcher(recovery.DefaultRegistry(), kv, sink, logger, cfg.Recovery, nil)
	}

	eng := engine.NewEngine(logger, errorStore, correlationStore, sink, dispatcher, cfg.Engine.CorrelationWindow)
	agg := aggregator.New(logger, eng, correlationStore)

	handler := api.NewHandler(agg, logger)
	server, err := api.NewServer(cfg.Server, handler.Routes())
	if err != nil {
		logger.Error("failed to create server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("faultline stopped")
}
