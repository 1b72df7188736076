// FilePath: api/api.router.go
package api

import (
	"net/http"

	"github.com/avisproject/avis-hub/api/middleware"
	"github.com/avisproject/avis-hub/api/resources"
	"github.com/avisproject/avis-hub/internal/hubservice"
	"github.com/avisproject/avis-hub/internal/tokens"
	"github.com/gorilla/mux"
)

type Router struct {
	router    *mux.Router
	auth      *middleware.AuthMiddleware
	resources *resources.Resources
}

func NewRouter(svc *hubservice.HubService, tokenStore *tokens.Store) *Router {
	r := &Router{
		router:    mux.NewRouter(),
		auth:      middleware.NewAuthMiddleware(tokenStore),
		resources: resources.NewResources(svc),
	}

	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	// API version prefix
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Public routes. Health and metrics handlers are injected after
	// construction, so they are resolved per request rather than captured
	// at registration time.
	api.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		r.resources.HealthCheck(w, req)
	}).Methods(http.MethodGet)
	api.HandleFunc("/metrics", func(w http.ResponseWriter, req *http.Request) {
		r.resources.Metrics(w, req)
	}).Methods(http.MethodGet)
	api.HandleFunc("/accounts", r.resources.Accounts.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", r.resources.Accounts.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/recover", r.resources.Accounts.RecoverPassword).Methods(http.MethodPost)

	// Ingest is public: field gateways post telemetry without credentials.
	api.HandleFunc("/ingest", r.resources.Ingest.IngestEvent).Methods(http.MethodPost)

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(r.auth.Authenticate)

	// Accounts
	protected.HandleFunc("/accounts/{username}", r.resources.Accounts.GetAccount).Methods(http.MethodGet)
	protected.HandleFunc("/accounts/{username}", r.resources.Accounts.UpdateAccount).Methods(http.MethodPut)
	protected.HandleFunc("/accounts/{username}/password", r.resources.Accounts.ChangePassword).Methods(http.MethodPut)

	// Devices
	devices := protected.PathPrefix("/devices").Subrouter()
	devices.HandleFunc("", r.resources.Devices.ListDevices).Methods(http.MethodGet)
	devices.HandleFunc("", r.resources.Devices.RegisterDevice).Methods(http.MethodPost)

	// Sessions
	sessions := protected.PathPrefix("/sessions").Subrouter()
	sessions.HandleFunc("", r.resources.Sessions.ListSessions).Methods(http.MethodGet)
	sessions.HandleFunc("", r.resources.Sessions.CreateSession).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}", r.resources.Sessions.GetSession).Methods(http.MethodGet)
	sessions.HandleFunc("/{id}", r.resources.Sessions.DeleteSession).Methods(http.MethodDelete)
	sessions.HandleFunc("/{id}/close", r.resources.Sessions.CloseSession).Methods(http.MethodPut)
	sessions.HandleFunc("/{id}/data", r.resources.Sessions.GetSessionData).Methods(http.MethodGet)
}

func (r *Router) SetHealthCheck(h func(w http.ResponseWriter, req *http.Request)) {
	r.resources.SetHealthCheck(h)
}

func (r *Router) SetMetrics(h func(w http.ResponseWriter, req *http.Request)) {
	r.resources.SetMetrics(h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
