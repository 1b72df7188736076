// FilePath: api/resources/api.resource.ingest.go
package resources

import (
	"io"
	"net/http"

	"github.com/avisproject/avis-hub/internal/errors"
	"github.com/avisproject/avis-hub/internal/hubservice"
	nuts "github.com/vaudience/go-nuts"
)

// maxEventBytes bounds a single telemetry payload.
const maxEventBytes = 64 << 10

// IngestHandlers receives raw telemetry events from gateway bridges.
type IngestHandlers struct {
	hubservice *hubservice.HubService
}

// @Summary Ingest a telemetry event
// @Description Apply one device event (activation, weather or bird detection)
// @Tags ingest
// @Accept json
// @Produce json
// @Success 201 {object} ingest.Result
// @Failure 400 {object} errors.APIError
// @Failure 422 {object} errors.APIError
// @Router /ingest [post]
func (h *IngestHandlers) IngestEvent(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
	if err != nil {
		respondWithError(w, errors.NewValidationError("failed to read request body", err).WithRequestID(requestID))
		return
	}

	result, err := h.hubservice.IngestEvent(r.Context(), raw)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	code := http.StatusCreated
	if result.Duplicate {
		code = http.StatusOK
	}
	respondWithJSON(w, code, result)
}
