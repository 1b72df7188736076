// FilePath: api/resources/api.resource.sessions.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/avisproject/avis-hub/internal/errors"
	"github.com/avisproject/avis-hub/internal/hubservice"
	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"
)

// SessionHandlers encapsulates the listening-session HTTP handlers
type SessionHandlers struct {
	hubservice *hubservice.HubService
}

type createSessionRequest struct {
	Name     string `json:"name"`
	DeviceID string `json:"device_id"`
}

// @Summary Create a listening session
// @Description Open a new session and bind a device to it
// @Tags sessions
// @Accept json
// @Produce json
// @Success 201 {object} models.Session
// @Failure 400 {object} errors.APIError
// @Router /sessions [post]
// @Security BearerAuth
func (h *SessionHandlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	accountID := hubservice.AccountIDFromContext(r.Context())
	session, err := h.hubservice.CreateSession(r.Context(), accountID, req.Name, req.DeviceID)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, session)
}

// @Summary List sessions
// @Description List all sessions owned by the authenticated account
// @Tags sessions
// @Produce json
// @Success 200 {array} models.Session
// @Router /sessions [get]
// @Security BearerAuth
func (h *SessionHandlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	accountID := hubservice.AccountIDFromContext(r.Context())
	sessions, err := h.hubservice.ListSessions(r.Context(), accountID)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, sessions)
}

// @Summary Get a session by ID
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.Session
// @Failure 404 {object} errors.APIError
// @Router /sessions/{id} [get]
// @Security BearerAuth
func (h *SessionHandlers) GetSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	accountID := hubservice.AccountIDFromContext(r.Context())
	session, err := h.hubservice.GetSession(r.Context(), accountID, id)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, session)
}

// @Summary Close a session
// @Description End a session; closing an already closed session is a no-op
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.Session
// @Failure 404 {object} errors.APIError
// @Router /sessions/{id}/close [put]
// @Security BearerAuth
func (h *SessionHandlers) CloseSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	accountID := hubservice.AccountIDFromContext(r.Context())
	session, err := h.hubservice.CloseSession(r.Context(), accountID, id)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, session)
}

// @Summary Delete a session
// @Description Remove a session and all telemetry recorded under it
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} errors.APIError
// @Router /sessions/{id} [delete]
// @Security BearerAuth
func (h *SessionHandlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	accountID := hubservice.AccountIDFromContext(r.Context())
	if err := h.hubservice.DeleteSession(r.Context(), accountID, id); err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Get consolidated session data
// @Description Session details plus node activations, weather readings and bird detections
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.SessionData
// @Failure 404 {object} errors.APIError
// @Router /sessions/{id}/data [get]
// @Security BearerAuth
func (h *SessionHandlers) GetSessionData(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	requestID := nuts.NID("req", 12)

	accountID := hubservice.AccountIDFromContext(r.Context())
	data, err := h.hubservice.GetSessionData(r.Context(), accountID, id)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, data)
}
