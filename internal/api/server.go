// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/account-monitor/internal/adapter"
	"github.com/account-monitor/internal/logging"
	"github.com/account-monitor/internal/models"
	"github.com/account-monitor/internal/service"
	"github.com/account-monitor/internal/storage"
	"github.com/account-monitor/internal/worker"
	"github.com/gorilla/mux"
)

// Service interfaces for dependency injection and testing

// QueryServiceInterface defines the interface for query service operations
type QueryServiceInterface interface {
	ListAccounts() ([]string, error)
	AccountInfo(identifier string) (models.Account, error)
	StartOfDayBalance(identifier, date string) (*service.BalanceResult, error)
	LatestBalance(identifier, date string) (*service.BalanceResult, error)
	ClosestBalance(identifier, date, at string) (*service.BalanceResult, error)
	ListPositionSymbols(identifier string) ([]string, error)
	LatestPosition(identifier, symbol, date string) (*service.PositionResult, error)
	ClosestPosition(identifier, symbol, date, at string) (*service.PositionResult, error)
	Statusbar(identifier, template string) (string, error)
	Stats() storage.Stats
}

// SyncStatusProvider reports the sync worker's state
type SyncStatusProvider interface {
	GetStatus() *worker.SyncWorkerStatus
}

// BrokerHealthProvider reports broker API request statistics
type BrokerHealthProvider interface {
	Health() adapter.ProviderHealth
}

// Server represents the HTTP API server.
type Server struct {
	router       *mux.Router
	httpServer   *http.Server
	queryService QueryServiceInterface
	syncStatus   SyncStatusProvider
	brokerHealth BrokerHealthProvider
	logger       *logging.Logger
	config       *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    float64 // Requests per second per client IP
	RateLimitBurst  int
}

// NewServer creates a new API server instance. syncStatus and brokerHealth
// may be nil.
func NewServer(
	config *ServerConfig,
	queryService QueryServiceInterface,
	syncStatus SyncStatusProvider,
	brokerHealth BrokerHealthProvider,
	logger *logging.Logger,
) *Server {
	if logger == nil {
		logger = logging.Nop()
	}

	s := &Server{
		router:       mux.NewRouter(),
		queryService: queryService,
		syncStatus:   syncStatus,
		brokerHealth: brokerHealth,
		logger:       logger.WithField("component", "api"),
		config:       config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RateLimitRPS, s.config.RateLimitBurst)

	// Set up middleware (order matters!)
	s.router.Use(RequestIDMiddleware(s.logger))
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes. Literal segments are registered
// before the variable routes they would otherwise shadow.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET", "OPTIONS")

	raw := s.router.PathPrefix("/raw").Subrouter()

	// Account endpoints
	raw.HandleFunc("/account/list", s.handleListAccounts).Methods("GET", "OPTIONS")
	raw.HandleFunc("/account/{id}", s.handleAccountInfo).Methods("GET", "OPTIONS")

	// Balance endpoints
	raw.HandleFunc("/balance/{id}/sod", s.handleStartOfDayBalance).Methods("GET", "OPTIONS")
	raw.HandleFunc("/balance/{id}/latest", s.handleLatestBalance).Methods("GET", "OPTIONS")
	raw.HandleFunc("/balance/{id}/{date}/sod", s.handleStartOfDayBalance).Methods("GET", "OPTIONS")
	raw.HandleFunc("/balance/{id}/{date}/latest", s.handleLatestBalance).Methods("GET", "OPTIONS")
	raw.HandleFunc("/balance/{id}/{date}/{time}", s.handleClosestBalance).Methods("GET", "OPTIONS")

	// Position endpoints
	raw.HandleFunc("/position/{id}/list", s.handleListPositions).Methods("GET", "OPTIONS")
	raw.HandleFunc("/position/{id}/{symbol}/latest", s.handleLatestPosition).Methods("GET", "OPTIONS")
	raw.HandleFunc("/position/{id}/{symbol}/{date}/latest", s.handleLatestPosition).Methods("GET", "OPTIONS")
	raw.HandleFunc("/position/{id}/{symbol}/{date}/{time}", s.handleClosestPosition).Methods("GET", "OPTIONS")

	// Statusbar endpoint
	s.router.HandleFunc("/statusbar/{id}/{template}", s.handleStatusbar).Methods("GET", "OPTIONS")

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "no route for "+r.URL.Path, nil)
	})
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status  string                   `json:"status"`
	Service string                   `json:"service"`
	Store   storage.Stats            `json:"store"`
	Sync    *worker.SyncWorkerStatus `json:"sync,omitempty"`
	Broker  *adapter.ProviderHealth  `json:"broker,omitempty"`
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "healthy",
		Service: "account-monitor",
		Store:   s.queryService.Stats(),
	}

	if s.syncStatus != nil {
		resp.Sync = s.syncStatus.GetStatus()
		if resp.Sync.State == worker.StateStopped {
			resp.Status = "degraded"
		}
	}
	if s.brokerHealth != nil {
		health := s.brokerHealth.Health()
		resp.Broker = &health
		if !health.IsHealthy {
			resp.Status = "degraded"
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// Handler returns the router with all middleware applied
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Infof("Starting API server on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}
