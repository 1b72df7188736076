// FilePath: api/resources/api.resource.devices.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/avisproject/avis-hub/internal/errors"
	"github.com/avisproject/avis-hub/internal/hubservice"
	nuts "github.com/vaudience/go-nuts"
)

// DeviceHandlers encapsulates the device-related HTTP handlers
type DeviceHandlers struct {
	hubservice *hubservice.HubService
}

type registerDeviceRequest struct {
	DevEUI string `json:"dev_eui"`
}

// @Summary Register a device
// @Description Register a field node to the authenticated account
// @Tags devices
// @Accept json
// @Produce json
// @Success 201 {object} models.Device
// @Failure 400 {object} errors.APIError
// @Failure 409 {object} errors.APIError
// @Router /devices [post]
// @Security BearerAuth
func (h *DeviceHandlers) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	accountID := hubservice.AccountIDFromContext(r.Context())
	device, err := h.hubservice.RegisterDevice(r.Context(), accountID, req.DevEUI)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, device)
}

// @Summary List devices
// @Description List devices registered to the authenticated account
// @Tags devices
// @Produce json
// @Success 200 {array} models.Device
// @Router /devices [get]
// @Security BearerAuth
func (h *DeviceHandlers) ListDevices(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	accountID := hubservice.AccountIDFromContext(r.Context())
	devices, err := h.hubservice.ListDevices(r.Context(), accountID)
	if err != nil {
		respondWithServiceError(w, requestID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, devices)
}
