package http

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sitepulse/pulse-go/internal/domain"
	"github.com/sitepulse/pulse-go/internal/engine"
	"github.com/sitepulse/pulse-go/internal/storage/cache"
	"github.com/sitepulse/pulse-go/internal/storage/sqlite"
	"go.uber.org/zap"
)

// Server implements the HTTP REST API
type Server struct {
	router      *gin.Engine
	ingestor    *engine.Ingestor
	events      *sqlite.EventDB
	metaCache   cache.Cache
	logger      *zap.Logger
	proxyHeader string
}

// NewServer creates a new HTTP server
func NewServer(
	ingestor *engine.Ingestor,
	events *sqlite.EventDB,
	metaCache cache.Cache,
	logger *zap.Logger,
	allowedOrigin string,
	proxyHeader string,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(allowedOrigin))

	s := &Server{
		router:      router,
		ingestor:    ingestor,
		events:      events,
		metaCache:   metaCache,
		logger:      logger,
		proxyHeader: proxyHeader,
	}

	// Setup routes
	s.setupRoutes()

	return router
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.banner)

	api := s.router.Group("/api/v1")
	{
		api.POST("/collect", s.collect)
		api.GET("/health", s.healthCheck)
		api.GET("/stats", s.getStats)
	}
}

// Middleware

func corsMiddleware(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Handlers

func (s *Server) banner(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "pulse",
		"version": "1.0.0",
	})
}

func (s *Server) collect(c *gin.Context) {
	var payload domain.EventPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}

	// Server-side senders forward their clients' agents in the body; the
	// request header is the fallback for plain browser beacons.
	if payload.UserAgent == "" {
		payload.UserAgent = c.GetHeader("User-Agent")
	}

	_, err := s.ingestor.Ingest(c.Request.Context(), payload, s.clientAddr(c))
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		s.logger.Error("event ingestion failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Event recorded",
	})
}

func (s *Server) healthCheck(c *gin.Context) {
	if err := s.events.Ping(); err != nil {
		s.logger.Error("health check: events store unreachable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "component": "events"})
		return
	}
	if err := s.metaCache.Ping(c.Request.Context()); err != nil {
		s.logger.Error("health check: cache unreachable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "component": "cache"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pulse",
	})
}

func (s *Server) getStats(c *gin.Context) {
	stats, err := s.events.Stats(time.Now())
	if err != nil {
		s.logger.Error("stats query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Helper functions

// clientAddr extracts the client address, preferring the trusted proxy header,
// then the first X-Forwarded-For hop, then the socket peer.
func (s *Server) clientAddr(c *gin.Context) string {
	if s.proxyHeader != "" {
		if addr := c.GetHeader(s.proxyHeader); addr != "" {
			return strings.TrimSpace(addr)
		}
	}

	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if addr := strings.TrimSpace(first); addr != "" {
			return addr
		}
	}

	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return host
}
