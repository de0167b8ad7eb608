// Package api exposes the analytics service over HTTP: prediction, pattern,
// and regime endpoints plus a websocket event stream.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"dex-analytics-bot/internal/auth"
	"dex-analytics-bot/internal/events"
	"dex-analytics-bot/internal/predictor"
)

// RateLimiter provides simple in-memory rate limiting per client key
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int           // max requests
	window   time.Duration // time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            int
	Host            string
	AllowedOrigins  string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server is the HTTP API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	service     *predictor.Service
	hub         *WSHub
	jwtManager  *auth.JWTManager
	authEnabled bool
	rateLimiter *RateLimiter
	logger      zerolog.Logger
	config      ServerConfig
}

// NewServer creates the API server and wires its routes. jwtManager may be
// nil when auth is disabled.
func NewServer(cfg ServerConfig, service *predictor.Service, bus *events.Bus, jwtManager *auth.JWTManager, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.AllowedOrigins == "" || cfg.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(cfg.AllowedOrigins, ",")
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	hub := NewWSHub(logger)
	if bus != nil {
		bus.SubscribeAll(hub.BroadcastEvent)
	}

	s := &Server{
		router:      router,
		service:     service,
		hub:         hub,
		jwtManager:  jwtManager,
		authEnabled: jwtManager != nil,
		rateLimiter: NewRateLimiter(60, time.Minute),
		logger:      logger.With().Str("component", "api").Logger(),
		config:      cfg,
	}

	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ws", s.handleWebSocket)

	if s.authEnabled {
		s.router.POST("/api/v1/auth/login", s.handleLogin)
	}

	v1 := s.router.Group("/api/v1")
	v1.Use(s.rateLimitMiddleware())
	if s.authEnabled {
		v1.Use(auth.Middleware(s.jwtManager))
	}
	{
		v1.GET("/pools/:poolId/prediction", s.handlePredictVolume)
		v1.GET("/pools/:poolId/patterns", s.handleIdentifyPatterns)
		v1.GET("/pools/:poolId/regime", s.handleAnalyzeRegime)
	}
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.rateLimiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// Start runs the HTTP server and the websocket hub; it blocks until the
// server stops.
func (s *Server) Start() error {
	go s.hub.Run()
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("API server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
