package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wastewater-dashboard/internal/config"
	"wastewater-dashboard/internal/datastore"
	"wastewater-dashboard/internal/handlers"
	"wastewater-dashboard/internal/services"
	"wastewater-dashboard/pkg/logging"
	"wastewater-dashboard/pkg/metrics"
)

const version = "1.0.0"

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	ctx := context.Background()

	// Load configuration
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logLevel, _ := logging.ParseLevel(cfg.Logging.Level)
	if *debug {
		logLevel = logging.DebugLevel
	}

	logger := logging.NewStructuredLogger("wastewater-dashboard", version, logLevel)

	logger.Info(ctx, "[STARTUP] Starting wastewater dashboard", logging.Fields{
		"version":     version,
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
		"data_source": cfg.Data.Source,
		"debug":       *debug,
	})

	metricsCollector := metrics.NewCollector("wastewater_dashboard", prometheus.DefaultRegisterer)

	// Load the three tables once; they are immutable afterwards.
	// OpenStore closes the source itself when loading fails.
	store, source, closeSource, err := datastore.OpenStore(ctx, cfg, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to load dashboard data", logging.Fields{
			"data_source": cfg.Data.Source,
		}, err)
	}
	defer closeSource()

	var health datastore.HealthChecker
	if hc, ok := source.(datastore.HealthChecker); ok {
		health = hc
	}

	chartService := services.NewChartService(store, logger, metricsCollector)
	dashboardHandler := handlers.NewDashboardHandler(chartService, health, logger, metricsCollector)

	router := mux.NewRouter()
	router.Use(handlers.RequestID, handlers.AccessLog(logger))
	dashboardHandler.RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address":     server.Addr,
			"facilities":  len(store.Facilities()),
			"valid_range": store.ValidDateRange().String(),
		})

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
