// FilePath: internal/repository/postgres/postgres.device.go
package postgres

import (
	"context"
	"database/sql"

	"github.com/avisproject/avis-hub/internal/database"
	"github.com/avisproject/avis-hub/internal/errors"
	"github.com/avisproject/avis-hub/internal/models"
	"github.com/avisproject/avis-hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

type DeviceRepo struct {
	PostgresBaseRepo
}

func NewDeviceRepository(db database.DB) (*DeviceRepo, error) {
	repo := &DeviceRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *DeviceRepo) initializeSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS devices (
			id TEXT PRIMARY KEY,
			dev_eui TEXT UNIQUE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS account_devices (
			account_id TEXT NOT NULL REFERENCES accounts(id),
			device_id TEXT NOT NULL REFERENCES devices(id),
			UNIQUE (account_id, device_id)
		)`,
	}

	for _, query := range queries {
		if _, err := r.db.GetDB().Exec(query); err != nil {
			return errors.NewDatabaseError("failed to initialize devices schema", err)
		}
	}
	return nil
}

// Upsert registers a device by devEUI. Registering the same devEUI twice
// does not duplicate; the stored row is returned either way.
func (r *DeviceRepo) Upsert(ctx context.Context, devEUI string) (*models.Device, error) {
	id := nuts.NID("dev", 12)
	query := `INSERT INTO devices (id, dev_eui) VALUES ($1, $2) ON CONFLICT (dev_eui) DO NOTHING`

	if _, err := r.db.GetDB().ExecContext(ctx, query, id, devEUI); err != nil {
		return nil, errors.NewDatabaseError("failed to upsert device", err)
	}
	return r.GetByDevEUI(ctx, devEUI)
}

func (r *DeviceRepo) GetByDevEUI(ctx context.Context, devEUI string) (*models.Device, error) {
	device := &models.Device{}
	query := `SELECT * FROM devices WHERE dev_eui = $1`

	err := r.db.GetDB().GetContext(ctx, device, query, devEUI)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, errors.NewDatabaseError("failed to get device", err)
	}
	return device, nil
}

// LinkAccount links a device to an account. Linking the same pair twice
// returns ErrDuplicate without inserting.
func (r *DeviceRepo) LinkAccount(ctx context.Context, accountID, deviceID string) error {
	query := `
		INSERT INTO account_devices (account_id, device_id)
		VALUES ($1, $2)
		ON CONFLICT (account_id, device_id) DO NOTHING`

	result, err := r.db.GetDB().ExecContext(ctx, query, accountID, deviceID)
	if err != nil {
		return errors.NewDatabaseError("failed to link device to account", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return repository.ErrDuplicate
	}
	return nil
}

func (r *DeviceRepo) ListByAccount(ctx context.Context, accountID string) ([]*models.Device, error) {
	devices := []*models.Device{}
	query := `
		SELECT d.id, d.dev_eui FROM devices d
		JOIN account_devices ad ON ad.device_id = d.id
		WHERE ad.account_id = $1
		ORDER BY d.dev_eui`

	err := r.db.GetDB().SelectContext(ctx, &devices, query, accountID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list devices", err)
	}
	return devices, nil
}
