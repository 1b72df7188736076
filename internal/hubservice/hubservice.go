// FilePath: internal/hubservice/hubservice.go
package hubservice

import (
	"context"

	"github.com/avisproject/avis-hub/internal/cleanup"
	"github.com/avisproject/avis-hub/internal/errors"
	"github.com/avisproject/avis-hub/internal/monitoring"
	"github.com/avisproject/avis-hub/internal/repository"
	"github.com/avisproject/avis-hub/internal/tokens"
)

// HubService contains all repositories and service-wide dependencies
type HubService struct {
	Accounts  repository.AccountRepository
	Devices   repository.DeviceRepository
	Sessions  repository.SessionRepository
	Telemetry repository.TelemetryRepository
	Tokens    *tokens.Store
	Monitor   *monitoring.Service
	Cleanup   *cleanup.CleanupService
}

// New creates a new HubService instance
func New(
	accounts repository.AccountRepository,
	devices repository.DeviceRepository,
	sessions repository.SessionRepository,
	telemetry repository.TelemetryRepository,
	tokenStore *tokens.Store,
	monitor *monitoring.Service,
) *HubService {
	svc := &HubService{
		Accounts:  accounts,
		Devices:   devices,
		Sessions:  sessions,
		Telemetry: telemetry,
		Tokens:    tokenStore,
		Monitor:   monitor,
	}
	svc.Cleanup = cleanup.New(sessions, telemetry)
	return svc
}

// Validate checks if all required repositories are initialized
func (s *HubService) Validate() error {
	if s.Accounts == nil {
		return ErrMissingRepository("accounts")
	}
	if s.Devices == nil {
		return ErrMissingRepository("devices")
	}
	if s.Sessions == nil {
		return ErrMissingRepository("sessions")
	}
	if s.Telemetry == nil {
		return ErrMissingRepository("telemetry")
	}
	if s.Tokens == nil {
		return ErrMissingRepository("tokens")
	}
	return nil
}

func ErrMissingRepository(name string) error {
	return errors.NewInternalError("missing repository: "+name, nil)
}

type contextKey string

// AccountIDKey carries the authenticated account id in a request context.
const AccountIDKey contextKey = "account_id"

// AccountIDFromContext returns the authenticated account id, or "" for
// unauthenticated requests.
func AccountIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(AccountIDKey).(string); ok {
		return id
	}
	return ""
}

// rolesFor maps a viewer to the field-access roles used by the struccy
// readxs/writexs tags: an account always owns its own record.
func rolesFor(ctx context.Context, ownerID string) []string {
	roles := []string{"any"}
	if AccountIDFromContext(ctx) == ownerID {
		roles = append(roles, "owner")
	}
	return roles
}
