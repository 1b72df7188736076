// FilePath: internal/cleanup/cleanup.go
package cleanup

import (
	"context"
	"fmt"

	"github.com/avisproject/avis-hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// CleanupService coordinates deletion of hierarchical session data. A
// session owns node activations, which own weather readings, which own
// bird detections; the whole chain is removed in one transaction so a
// failure never leaves orphaned telemetry.
type CleanupService struct {
	sessions  repository.SessionRepository
	telemetry repository.TelemetryRepository
	events    *nuts.EventEmitter
}

// New creates a new CleanupService
func New(sessions repository.SessionRepository, telemetry repository.TelemetryRepository) *CleanupService {
	return &CleanupService{
		sessions:  sessions,
		telemetry: telemetry,
		events:    nuts.NewEventEmitter(),
	}
}

// DeleteSession deletes a session and all telemetry recorded under it.
func (s *CleanupService) DeleteSession(ctx context.Context, sessionID string) error {
	tx, err := s.sessions.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be ignored if transaction is committed

	// Children first: detections, readings, activations.
	if err := s.telemetry.DeleteBySession(ctx, sessionID, tx); err != nil {
		return fmt.Errorf("failed to delete session telemetry: %w", err)
	}

	if err := s.sessions.Delete(ctx, sessionID, tx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Events fire only once the transaction is durable.
	s.events.Emit("telemetry.deleted", sessionID)
	s.events.Emit("session.deleted", sessionID)
	return nil
}

// OnCleanup registers a callback for cleanup events
func (s *CleanupService) OnCleanup(event string, handler func(id string)) {
	s.events.On(event, "cleanup_handler", func(args ...interface{}) {
		if len(args) > 0 {
			if id, ok := args[0].(string); ok {
				handler(id)
			}
		}
	})
}
