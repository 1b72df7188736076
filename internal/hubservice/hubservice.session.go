// FilePath: internal/hubservice/hubservice.session.go
package hubservice

import (
	"context"
	"sync"
	"time"

	"github.com/avisproject/avis-hub/internal/errors"
	"github.com/avisproject/avis-hub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// CreateSession opens a new listening session for the account and binds
// the given device to it. The device record is created on the fly when the
// devEUI is unknown, so a field node can be deployed before anyone
// registers it explicitly.
func (s *HubService) CreateSession(ctx context.Context, accountID, name, devEUI string) (*models.Session, error) {
	if name == "" {
		return nil, errors.NewValidationError("session name is required", nil)
	}
	if devEUI == "" {
		return nil, errors.NewValidationError("device id is required", nil)
	}

	device, err := s.Devices.Upsert(ctx, devEUI)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		ID:        nuts.NID("ses", 12),
		AccountID: accountID,
		Name:      name,
		CreatedAt: time.Now(),
	}

	if err := s.Sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	if err := s.Sessions.LinkDevice(ctx, session.ID, device.ID); err != nil {
		return nil, err
	}

	nuts.L.Infof("[SessionService] Created session %s (%s) for account %s with device %s",
		session.ID, name, accountID, devEUI)
	return session, nil
}

// GetSession retrieves one session, enforcing account ownership.
func (s *HubService) GetSession(ctx context.Context, accountID, sessionID string) (*models.Session, error) {
	session, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.AccountID != accountID {
		return nil, errors.NewAuthorizationError("session belongs to another account", nil)
	}
	return session, nil
}

// ListSessions returns all sessions owned by the account, newest first.
func (s *HubService) ListSessions(ctx context.Context, accountID string) ([]*models.Session, error) {
	return s.Sessions.ListByAccount(ctx, accountID)
}

// CloseSession ends a session. Closing is idempotent: a session that is
// already closed keeps its original close time.
func (s *HubService) CloseSession(ctx context.Context, accountID, sessionID string) (*models.Session, error) {
	session, err := s.GetSession(ctx, accountID, sessionID)
	if err != nil {
		return nil, err
	}

	if session.IsOpen() {
		if err := s.Sessions.Close(ctx, sessionID, time.Now()); err != nil {
			return nil, err
		}
		nuts.L.Infof("[SessionService] Closed session %s", sessionID)
	}

	return s.Sessions.Get(ctx, sessionID)
}

// DeleteSession removes a session and all its telemetry.
func (s *HubService) DeleteSession(ctx context.Context, accountID, sessionID string) error {
	if _, err := s.GetSession(ctx, accountID, sessionID); err != nil {
		return err
	}

	if err := s.Cleanup.DeleteSession(ctx, sessionID); err != nil {
		return err
	}

	s.Monitor.RecordEvent("session_deleted", map[string]string{"session_id": sessionID})
	return nil
}

// GetSessionData assembles the consolidated read-side view of a session:
// details plus all activations, weather readings and bird detections. The
// three telemetry queries are independent and run concurrently.
func (s *HubService) GetSessionData(ctx context.Context, accountID, sessionID string) (*models.SessionData, error) {
	session, err := s.GetSession(ctx, accountID, sessionID)
	if err != nil {
		return nil, err
	}

	data := &models.SessionData{Details: session}

	var wg sync.WaitGroup
	var nodesErr, weatherErr, birdsErr error

	wg.Add(3)
	go func() {
		defer wg.Done()
		data.Nodes, nodesErr = s.Telemetry.ListNodeActivations(ctx, sessionID)
	}()
	go func() {
		defer wg.Done()
		data.Weather, weatherErr = s.Telemetry.ListWeatherReadings(ctx, sessionID)
	}()
	go func() {
		defer wg.Done()
		data.Birds, birdsErr = s.Telemetry.ListBirdDetections(ctx, sessionID)
	}()
	wg.Wait()

	for _, err := range []error{nodesErr, weatherErr, birdsErr} {
		if err != nil {
			return nil, err
		}
	}

	return data, nil
}
