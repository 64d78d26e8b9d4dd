package main

import (
	"context"
	"fmt"
	"net"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/sitepulse/pulse-go/internal/api/http"
	"github.com/sitepulse/pulse-go/internal/config"
	"github.com/sitepulse/pulse-go/internal/dispatch"
	"github.com/sitepulse/pulse-go/internal/engine"
	"github.com/sitepulse/pulse-go/internal/storage/cache"
	"github.com/sitepulse/pulse-go/internal/storage/sqlite"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Starting Pulse - event ingestion service",
		zap.String("version", "1.0.0"),
		zap.String("port", cfg.Port),
		zap.String("resolver", cfg.Resolver),
	)

	// Initialize database layer
	eventDB, err := sqlite.NewEventDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to initialize event database", zap.Error(err))
	}
	defer eventDB.Close()

	sessionDB, err := sqlite.NewSessionDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to initialize session database", zap.Error(err))
	}
	defer sessionDB.Close()

	// Initialize metadata cache (Redis when configured, in-memory otherwise)
	metaCache, err := cache.New(cfg.RedisAddr, cfg.RedisPassword, logger)
	if err != nil {
		logger.Fatal("Failed to initialize metadata cache", zap.Error(err))
	}
	defer metaCache.Close()

	// Initialize the IP metadata resolver
	resolver, err := engine.NewResolver(engine.ResolverConfig{
		Kind:          cfg.Resolver,
		IPInfoBaseURL: cfg.IPInfoBaseURL,
		IPInfoToken:   cfg.IPInfoToken,
		MaxMindDBPath: cfg.MaxMindDBPath,
		Timeout:       cfg.ResolverTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize IP resolver", zap.Error(err))
	}
	defer resolver.Close()

	// Initialize core engine
	enricher := engine.NewEnricher(metaCache, resolver, cfg.CacheTTL, logger)
	tracker := engine.NewSessionTracker(sessionDB, cfg.SessionWindow, logger)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background dispatch for session bookkeeping
	queue := dispatch.New(cfg.QueueSize, cfg.QueueWorkers, logger)
	queue.Start(ctx)

	ingestor := engine.NewIngestor(eventDB, enricher, tracker, queue, logger)

	// Periodic sweep: close sessions that expired without a follow-up event,
	// and evict expired in-memory cache entries.
	sweepTicker := time.NewTicker(cfg.SessionSweepInterval)
	defer sweepTicker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sweepTicker.C:
				if _, err := tracker.CloseStale(); err != nil {
					logger.Error("Failed to close stale sessions", zap.Error(err))
				}
				if mem, ok := metaCache.(*cache.MemoryCache); ok {
					mem.Sweep()
				}
			}
		}
	}()

	// Initialize HTTP server
	httpRouter := httpapi.NewServer(
		ingestor,
		eventDB,
		metaCache,
		logger,
		cfg.AllowedOrigin,
		cfg.TrustedProxyHeader,
	)

	httpLis, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		logger.Fatal("Failed to listen on HTTP port", zap.Error(err))
	}

	httpServer := &stdhttp.Server{
		Handler: httpRouter,
	}

	go func() {
		logger.Info("HTTP server starting", zap.String("port", cfg.Port))
		if err := httpServer.Serve(httpLis); err != nil && err != stdhttp.ErrServerClosed {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Pulse...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// Drain pending session updates before the stores close.
	queue.Close()

	logger.Info("Pulse shutdown complete")
}
