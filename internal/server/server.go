// FilePath: internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avisproject/avis-hub/api"
	"github.com/avisproject/avis-hub/internal/config"
	"github.com/avisproject/avis-hub/internal/database"
	"github.com/avisproject/avis-hub/internal/hubservice"
	"github.com/avisproject/avis-hub/internal/monitoring"
	"github.com/avisproject/avis-hub/internal/repository/postgres"
	"github.com/avisproject/avis-hub/internal/tokens"
	"github.com/gorilla/handlers"
	nuts "github.com/vaudience/go-nuts"
)

// Server represents our HTTP server
type Server struct {
	config     *config.Config
	srv        *http.Server
	db         database.DB
	tokens     *tokens.Store
	hubservice *hubservice.HubService
	monitoring *monitoring.Service
}

// New creates a new server instance
func New(cfg *config.Config) *Server {
	return &Server{config: cfg}
}

// Start initializes all dependencies and begins listening for requests.
func (s *Server) Start() error {
	db, err := database.NewPostgresDB(s.config.Database.Postgres)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	s.db = db

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	tokenStore, err := tokens.New(ctx, s.config)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	s.tokens = tokenStore

	s.monitoring = monitoring.NewService(monitoring.Config{
		LogLevel: s.config.Monitoring.LogLevel,
	})

	svc, err := s.initializeHubService(db)
	if err != nil {
		return err
	}
	s.hubservice = svc
	if err := s.hubservice.Validate(); err != nil {
		return err
	}

	s.setupCleanupHandlers()

	router := api.NewRouter(s.hubservice, s.tokens)
	router.SetHealthCheck(s.handleHealth())
	router.SetMetrics(s.handleMetrics())

	handler := handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{}))(
		handlers.CORS(
			handlers.AllowedOrigins(s.config.Server.AllowedOrigins),
			handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		)(router))

	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:      handler,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	go func() {
		nuts.L.Infof("[Server] Starting server on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nuts.L.Errorf("[Server] Error starting server: %v", err)
			os.Exit(1)
		}
	}()

	return s.waitForShutdown()
}

// waitForShutdown waits for interrupt signal and gracefully shuts down the server
func (s *Server) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	nuts.L.Infof("[Server] Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	if err := s.tokens.Close(); err != nil {
		nuts.L.Warnf("[Server] Error closing redis connection: %v", err)
	}
	if err := s.db.Close(); err != nil {
		nuts.L.Warnf("[Server] Error closing database connection: %v", err)
	}

	nuts.L.Infof("[Server] Server shut down successfully")
	return nil
}

// handleHealth returns a simple health check handler
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","version":"` + nuts.GetVersion() + `"}`))
	}
}

// handleMetrics exposes the in-process event counters.
func (s *Server) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(s.monitoring.Counters())
	}
}

func (s *Server) setupCleanupHandlers() {
	// Handle session deletion events
	s.hubservice.Cleanup.OnCleanup("session.deleted", func(id string) {
		nuts.L.Infof("[Cleanup] Session %s and all associated data deleted", id)
		s.monitoring.RecordEvent("session_deletion", map[string]string{
			"session_id": id,
		})
	})

	// Handle telemetry deletion events
	s.hubservice.Cleanup.OnCleanup("telemetry.deleted", func(id string) {
		nuts.L.Infof("[Cleanup] Telemetry for session %s deleted", id)
		s.monitoring.RecordEvent("telemetry_deletion", map[string]string{
			"session_id": id,
		})
	})
}

// initializeHubService creates and configures the hub service
func (s *Server) initializeHubService(db database.DB) (*hubservice.HubService, error) {
	accounts, err := postgres.NewAccountRepository(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize account repository: %w", err)
	}
	devices, err := postgres.NewDeviceRepository(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize device repository: %w", err)
	}
	sessions, err := postgres.NewSessionRepository(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session repository: %w", err)
	}
	telemetry, err := postgres.NewTelemetryRepository(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry repository: %w", err)
	}

	return hubservice.New(accounts, devices, sessions, telemetry, s.tokens, s.monitoring), nil
}

type recoveryLogger struct{}

func (recoveryLogger) Println(args ...interface{}) {
	nuts.L.Errorf("[Server] Panic recovered: %v", args)
}
