// FilePath: api/resources/resources.go
package resources

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/avisproject/avis-hub/internal/errors"
	"github.com/avisproject/avis-hub/internal/hubservice"
	"github.com/avisproject/avis-hub/internal/repository"
	"github.com/gorilla/schema"
	nuts "github.com/vaudience/go-nuts"
)

// formDecoder decodes url-encoded request bodies. Gateways in the field
// post forms, not JSON; unknown keys are ignored so firmware revisions can
// add fields without breaking older hubs.
var formDecoder = newFormDecoder()

func newFormDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// Resources holds all HTTP resource handlers
type Resources struct {
	Accounts    *AccountHandlers
	Devices     *DeviceHandlers
	Sessions    *SessionHandlers
	Ingest      *IngestHandlers
	HealthCheck func(w http.ResponseWriter, r *http.Request)
	Metrics     func(w http.ResponseWriter, r *http.Request)
}

// NewResources creates a new Resources instance
func NewResources(svc *hubservice.HubService) *Resources {
	return &Resources{
		Accounts: &AccountHandlers{hubservice: svc},
		Devices:  &DeviceHandlers{hubservice: svc},
		Sessions: &SessionHandlers{hubservice: svc},
		Ingest:   &IngestHandlers{hubservice: svc},
	}
}

// SetHealthCheck sets the health check handler
func (r *Resources) SetHealthCheck(h func(w http.ResponseWriter, r *http.Request)) {
	r.HealthCheck = h
}

// SetMetrics sets the metrics handler
func (r *Resources) SetMetrics(h func(w http.ResponseWriter, r *http.Request)) {
	r.Metrics = h
}

// Helper functions

func respondWithError(w http.ResponseWriter, err *errors.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
	nuts.L.Errorf("[API] %s", err.Error())
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// respondWithServiceError translates service-layer errors into HTTP
// responses. APIErrors already carry their status code; bare repository
// sentinels are mapped here.
func respondWithServiceError(w http.ResponseWriter, requestID string, err error) {
	var apiErr *errors.APIError
	if stderrors.As(err, &apiErr) {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}
	if stderrors.Is(err, repository.ErrNotFound) {
		respondWithError(w, errors.NewNotFoundError("resource not found", err).WithRequestID(requestID))
		return
	}
	if stderrors.Is(err, repository.ErrDuplicate) {
		respondWithError(w, errors.NewConflictError("resource already exists", err).WithRequestID(requestID))
		return
	}
	respondWithError(w, errors.NewInternalError("internal error", err).WithRequestID(requestID))
}
