// FilePath: internal/hubservice/hubservice.device.go
package hubservice

import (
	"context"
	stderrors "errors"

	"github.com/avisproject/avis-hub/internal/errors"
	"github.com/avisproject/avis-hub/internal/models"
	"github.com/avisproject/avis-hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// RegisterDevice binds a device to an account, creating the device record
// on first sight of its devEUI. Registering the same devEUI under the same
// account twice is a conflict; under a different account it just links.
func (s *HubService) RegisterDevice(ctx context.Context, accountID, devEUI string) (*models.Device, error) {
	if devEUI == "" {
		return nil, errors.NewValidationError("device id is required", nil)
	}

	device, err := s.Devices.Upsert(ctx, devEUI)
	if err != nil {
		return nil, err
	}

	if err := s.Devices.LinkAccount(ctx, accountID, device.ID); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.NewConflictError("device already registered to this account", err)
		}
		return nil, err
	}

	nuts.L.Infof("[DeviceService] Registered device %s (%s) to account %s", device.ID, devEUI, accountID)
	return device, nil
}

// ListDevices returns all devices registered to the account.
func (s *HubService) ListDevices(ctx context.Context, accountID string) ([]*models.Device, error) {
	return s.Devices.ListByAccount(ctx, accountID)
}
