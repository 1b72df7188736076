// FilePath: internal/repository/postgres/postgres.session.go
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/avisproject/avis-hub/internal/database"
	"github.com/avisproject/avis-hub/internal/errors"
	"github.com/avisproject/avis-hub/internal/models"
	"github.com/avisproject/avis-hub/internal/repository"
)

type SessionRepo struct {
	PostgresBaseRepo
}

func NewSessionRepository(db database.DB) (*SessionRepo, error) {
	repo := &SessionRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *SessionRepo) initializeSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL REFERENCES accounts(id),
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			closed_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS session_devices (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			device_id TEXT NOT NULL REFERENCES devices(id),
			UNIQUE (session_id, device_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_account ON sessions(account_id)`,
	}

	for _, query := range queries {
		if _, err := r.db.GetDB().Exec(query); err != nil {
			return errors.NewDatabaseError("failed to initialize sessions schema", err)
		}
	}
	return nil
}

func (r *SessionRepo) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, account_id, name, created_at, closed_at)
		VALUES (:id, :account_id, :name, :created_at, :closed_at)`

	if _, err := r.db.GetDB().NamedExecContext(ctx, query, session); err != nil {
		return errors.NewDatabaseError("failed to create session", err)
	}
	return nil
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*models.Session, error) {
	session := &models.Session{}
	query := `SELECT * FROM sessions WHERE id = $1`

	err := r.db.GetDB().GetContext(ctx, session, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, errors.NewDatabaseError("failed to get session", err)
	}
	return session, nil
}

func (r *SessionRepo) ListByAccount(ctx context.Context, accountID string) ([]*models.Session, error) {
	sessions := []*models.Session{}
	query := `SELECT * FROM sessions WHERE account_id = $1 ORDER BY created_at DESC`

	err := r.db.GetDB().SelectContext(ctx, &sessions, query, accountID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list sessions", err)
	}
	return sessions, nil
}

// Close marks a session ended. A closed session is no longer eligible for
// device-to-session resolution.
func (r *SessionRepo) Close(ctx context.Context, id string, closedAt time.Time) error {
	query := `UPDATE sessions SET closed_at = $1 WHERE id = $2 AND closed_at IS NULL`

	result, err := r.db.GetDB().ExecContext(ctx, query, closedAt, id)
	if err != nil {
		return errors.NewDatabaseError("failed to close session", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *SessionRepo) Delete(ctx context.Context, id string, tx database.Transaction) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return errors.NewDatabaseError("failed to delete session", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *SessionRepo) LinkDevice(ctx context.Context, sessionID, deviceID string) error {
	query := `
		INSERT INTO session_devices (session_id, device_id)
		VALUES ($1, $2)
		ON CONFLICT (session_id, device_id) DO NOTHING`

	if _, err := r.db.GetDB().ExecContext(ctx, query, sessionID, deviceID); err != nil {
		return errors.NewDatabaseError("failed to link device to session", err)
	}
	return nil
}

// FindOpenByDevice resolves the session that telemetry from the given
// devEUI belongs to: the most recently created session that is still open
// and has the device bound to it.
func (r *SessionRepo) FindOpenByDevice(ctx context.Context, devEUI string) (*models.Session, error) {
	session := &models.Session{}
	query := `
		SELECT s.* FROM sessions s
		JOIN session_devices sd ON sd.session_id = s.id
		JOIN devices d ON d.id = sd.device_id
		WHERE d.dev_eui = $1 AND s.closed_at IS NULL
		ORDER BY s.created_at DESC
		LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, session, query, devEUI)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, errors.NewDatabaseError("failed to find open session for device", err)
	}
	return session, nil
}
