package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/launchforge/curve-middleware/pkg/config"
	"github.com/launchforge/curve-middleware/pkg/dexpool"
	"github.com/launchforge/curve-middleware/pkg/engine"
	"github.com/launchforge/curve-middleware/pkg/evm"
	"github.com/launchforge/curve-middleware/pkg/graduation"
	"github.com/launchforge/curve-middleware/pkg/launchstore"
	"github.com/launchforge/curve-middleware/pkg/pgutil"
	"github.com/launchforge/curve-middleware/pkg/pricesync"
	"github.com/launchforge/curve-middleware/pkg/rebalancer"
	"github.com/launchforge/curve-middleware/pkg/reserves"
	"github.com/launchforge/curve-middleware/pkg/supply"
)

var (
	configPath = flag.String("config", "config.yaml", "Path to configuration file")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Cross-Chain Curve Synchronization Engine")

	// Initialize database
	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connection established")

	store := launchstore.NewStore(db)

	// Dial every configured chain up front so a bad chain name fails at boot
	registry, err := evm.NewRegistry(cfg.Chains, logger)
	if err != nil {
		logger.Fatal("Failed to initialize chain clients", zap.Error(err))
	}
	defer registry.Close()

	// Assemble engine components
	supplySvc := supply.NewService(store, logger)
	syncer := pricesync.NewSyncer(store, supplySvc, logger)
	monitor := reserves.NewMonitor(store, logger)
	bridger := rebalancer.NewRegistryBridger(registry)
	rb := rebalancer.NewRebalancer(store, monitor, bridger,
		cfg.Engine.MaxBridgeAttempts, cfg.Engine.RetryBaseDelay, logger)
	poolCreator := dexpool.NewEVMCreator(registry, logger)
	graduator := graduation.NewGraduator(store, poolCreator,
		cfg.Engine.MaxGraduationTries, cfg.Engine.RetryBaseDelay, logger)

	eng := engine.New(store, syncer, graduator, rb, cfg.Engine, logger)
	eng.Start()
	defer eng.Stop()

	// Setup HTTP server for ops and read-only status endpoints
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint (liveness)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Readiness endpoint - the engine is ready once the database answers
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("NOT_READY"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("READY"))
	})

	// Metrics endpoint
	if cfg.Monitoring.Enabled {
		r.Handle("/metrics", promhttp.Handler())
		logger.Info("Metrics enabled")
	}

	// Read-only API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/tokens", handleListTokens(store, logger))
		r.Get("/tokens/{tokenID}/deployments", handleListDeployments(store, logger))
		r.Get("/tokens/{tokenID}/reserves", handleReserves(monitor, logger))
		r.Get("/tokens/{tokenID}/graduation/{chain}", handleGraduationStatus(graduator, logger))
		r.Get("/status", handleGetStatus(logger))
	})

	// Start HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("address", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received, gracefully shutting down...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Engine stopped")
}

func handleListTokens(store launchstore.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokens, err := store.ListTokens(r.Context())
		if err != nil {
			logger.Error("Failed to list tokens", zap.Error(err))
			http.Error(w, "Failed to list tokens", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]interface{}{"tokens": tokens}); err != nil {
			logger.Error("Failed to encode response", zap.Error(err))
		}
	}
}

func handleListDeployments(store launchstore.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenID := chi.URLParam(r, "tokenID")
		deployments, err := store.ListDeployments(r.Context(), tokenID)
		if err != nil {
			logger.Error("Failed to list deployments", zap.Error(err), zap.String("token_id", tokenID))
			http.Error(w, "Failed to list deployments", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]interface{}{"deployments": deployments}); err != nil {
			logger.Error("Failed to encode response", zap.Error(err))
		}
	}
}

func handleReserves(monitor *reserves.Monitor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenID := chi.URLParam(r, "tokenID")
		snapshots, err := monitor.MonitorReserves(r.Context(), tokenID)
		if err != nil {
			logger.Error("Failed to monitor reserves", zap.Error(err), zap.String("token_id", tokenID))
			http.Error(w, "Failed to monitor reserves", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]interface{}{"reserves": snapshots}); err != nil {
			logger.Error("Failed to encode response", zap.Error(err))
		}
	}
}

func handleGraduationStatus(graduator *graduation.Graduator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenID := chi.URLParam(r, "tokenID")
		chain := chi.URLParam(r, "chain")
		status, err := graduator.CheckGraduationStatus(r.Context(), tokenID, chain)
		if err != nil {
			logger.Error("Failed to get graduation status",
				zap.Error(err),
				zap.String("token_id", tokenID),
				zap.String("chain", chain))
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status); err != nil {
			logger.Error("Failed to encode response", zap.Error(err))
		}
	}
}

func handleGetStatus(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]interface{}{"status": "running"}); err != nil {
			logger.Error("Failed to encode response", zap.Error(err))
		}
	}
}
