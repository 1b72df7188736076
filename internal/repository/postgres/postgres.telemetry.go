// FilePath: internal/repository/postgres/postgres.telemetry.go
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

type TelemetryRepo struct {
	PostgresBaseRepo
}

func NewTelemetryRepository(db database.DB) (*TelemetryRepo, error) {
	repo := &TelemetryRepo{PostgresBaseRepo: PostgresBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *TelemetryRepo) initializeSchema() error {
	// The unique constraints are load-bearing: idempotency under concurrent
	// ingestion is enforced here, not by application check-then-insert.
	queries := []string{
		`CREATE TABLE IF NOT EXISTS node_activations (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			device_id TEXT NOT NULL,
			altitude DOUBLE PRECISION NOT NULL DEFAULT 0,
			lat DOUBLE PRECISION NOT NULL DEFAULT 0,
			lng DOUBLE PRECISION NOT NULL DEFAULT 0,
			activation_timestamp TIMESTAMPTZ NOT NULL,
			UNIQUE (session_id, device_id, activation_timestamp)
		)`,
		`CREATE TABLE IF NOT EXISTS weather_readings (
			id TEXT PRIMARY KEY,
			node_activation_id TEXT NOT NULL REFERENCES node_activations(id) ON DELETE CASCADE,
			timestamp TIMESTAMPTZ NOT NULL,
			temperature DOUBLE PRECISION NOT NULL DEFAULT 0,
			humidity DOUBLE PRECISION NOT NULL DEFAULT 0,
			pressure DOUBLE PRECISION NOT NULL DEFAULT 0,
			UNIQUE (node_activation_id, timestamp)
		)`,
		`CREATE TABLE IF NOT EXISTS bird_detections (
			id TEXT PRIMARY KEY,
			weather_reading_id TEXT NOT NULL REFERENCES weather_readings(id),
			node_activation_id TEXT NOT NULL REFERENCES node_activations(id) ON DELETE CASCADE,
			timestamp TIMESTAMPTZ NOT NULL,
			species TEXT NOT NULL DEFAULT '',
			confidence_level DOUBLE PRECISION NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_node_activations_session_device
			ON node_activations(session_id, device_id, activation_timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_weather_readings_activation_ts
			ON weather_readings(node_activation_id, timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_bird_detections_activation_ts
			ON bird_detections(node_activation_id, timestamp)`,
	}

	for _, query := range queries {
		if _, err := r.db.GetDB().Exec(query); err != nil {
			return errors.NewDatabaseError("failed to initialize telemetry schema", err)
		}
	}
	return nil
}

// InsertNodeActivation inserts an activation row. A second activation with
// the same (session, device, activation_timestamp) returns ErrDuplicate.
func (r *TelemetryRepo) InsertNodeActivation(ctx context.Context, activation *models.NodeActivation) error {
	query := `
		INSERT INTO node_activations (
			id, session_id, device_id, altitude, lat, lng, activation_timestamp
		) VALUES (
			:id, :session_id, :device_id, :altitude, :lat, :lng, :activation_timestamp
		) ON CONFLICT (session_id, device_id, activation_timestamp) DO NOTHING`

	result, err := r.db.GetDB().NamedExecContext(ctx, query, activation)
	if err != nil {
		return errors.NewDatabaseError("failed to insert node activation", err)
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

// FindLatestNodeActivation returns the current activation for the
// (session, device) pair: the one with the greatest activation_timestamp.
func (r *TelemetryRepo) FindLatestNodeActivation(ctx context.Context, sessionID, deviceID string) (*models.NodeActivation, error) {
	activation := &models.NodeActivation{}
	query := `
		SELECT * FROM node_activations
		WHERE session_id = $1 AND device_id = $2
		ORDER BY activation_timestamp DESC
		LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, activation, query, sessionID, deviceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, errors.NewDatabaseError("failed to find latest node activation", err)
	}
	return activation, nil
}

func (r *TelemetryRepo) ListNodeActivations(ctx context.Context, sessionID string) ([]*models.NodeActivation, error) {
	activations := []*models.NodeActivation{}
	query := `
		SELECT * FROM node_activations
		WHERE session_id = $1
		ORDER BY activation_timestamp ASC`

	err := r.db.GetDB().SelectContext(ctx, &activations, query, sessionID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list node activations", err)
	}
	return activations, nil
}

// InsertWeatherReading inserts a reading. A second reading at the same
// (node_activation, timestamp) returns ErrDuplicate.
func (r *TelemetryRepo) InsertWeatherReading(ctx context.Context, reading *models.WeatherReading) error {
	query := `
		INSERT INTO weather_readings (
			id, node_activation_id, timestamp, temperature, humidity, pressure
		) VALUES (
			:id, :node_activation_id, :timestamp, :temperature, :humidity, :pressure
		) ON CONFLICT (node_activation_id, timestamp) DO NOTHING`

	result, err := r.db.GetDB().NamedExecContext(ctx, query, reading)
	if err != nil {
		return errors.NewDatabaseError("failed to insert weather reading", err)
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

// FindLatestWeatherAtOrBefore returns the reading with the greatest
// timestamp at or before ts for the node activation.
func (r *TelemetryRepo) FindLatestWeatherAtOrBefore(ctx context.Context, nodeActivationID string, ts time.Time) (*models.WeatherReading, error) {
	reading := &models.WeatherReading{}
	query := `
		SELECT * FROM weather_readings
		WHERE node_activation_id = $1 AND timestamp <= $2
		ORDER BY timestamp DESC
		LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, reading, query, nodeActivationID, ts)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, errors.NewDatabaseError("failed to find weather reading", err)
	}
	return reading, nil
}

// FindLatestWeather returns the most recent reading overall for the node
// activation, regardless of the requesting event's timestamp.
func (r *TelemetryRepo) FindLatestWeather(ctx context.Context, nodeActivationID string) (*models.WeatherReading, error) {
	reading := &models.WeatherReading{}
	query := `
		SELECT * FROM weather_readings
		WHERE node_activation_id = $1
		ORDER BY timestamp DESC
		LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, reading, query, nodeActivationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, errors.NewDatabaseError("failed to find weather reading", err)
	}
	return reading, nil
}

func (r *TelemetryRepo) ListWeatherReadings(ctx context.Context, sessionID string) ([]*models.WeatherReading, error) {
	readings := []*models.WeatherReading{}
	query := `
		SELECT wr.* FROM weather_readings wr
		JOIN node_activations na ON na.id = wr.node_activation_id
		WHERE na.session_id = $1
		ORDER BY wr.timestamp ASC`

	err := r.db.GetDB().SelectContext(ctx, &readings, query, sessionID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list weather readings", err)
	}
	return readings, nil
}

func (r *TelemetryRepo) InsertBirdDetection(ctx context.Context, detection *models.BirdDetection) error {
	query := `
		INSERT INTO bird_detections (
			id, weather_reading_id, node_activation_id, timestamp, species, confidence_level
		) VALUES (
			:id, :weather_reading_id, :node_activation_id, :timestamp, :species, :confidence_level
		)`

	if _, err := r.db.GetDB().NamedExecContext(ctx, query, detection); err != nil {
		return errors.NewDatabaseError("failed to insert bird detection", err)
	}
	return nil
}

func (r *TelemetryRepo) ListBirdDetections(ctx context.Context, sessionID string) ([]*models.BirdDetection, error) {
	detections := []*models.BirdDetection{}
	query := `
		SELECT bd.* FROM bird_detections bd
		JOIN node_activations na ON na.id = bd.node_activation_id
		WHERE na.session_id = $1
		ORDER BY bd.timestamp ASC`

	err := r.db.GetDB().SelectContext(ctx, &detections, query, sessionID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list bird detections", err)
	}
	return detections, nil
}

// DeleteBySession removes a session's telemetry inside the caller's
// transaction, children first so the foreign keys hold throughout.
func (r *TelemetryRepo) DeleteBySession(ctx context.Context, sessionID string, tx database.Transaction) error {
	queries := []string{
		`DELETE FROM bird_detections WHERE node_activation_id IN
			(SELECT id FROM node_activations WHERE session_id = $1)`,
		`DELETE FROM weather_readings WHERE node_activation_id IN
			(SELECT id FROM node_activations WHERE session_id = $1)`,
		`DELETE FROM node_activations WHERE session_id = $1`,
	}

	for _, query := range queries {
		if _, err := tx.ExecContext(ctx, query, sessionID); err != nil {
			return errors.NewDatabaseError("failed to delete session telemetry", err)
		}
	}
	return nil
}
