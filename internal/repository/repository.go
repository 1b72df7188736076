// FilePath: internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/avisproject/avis-hub/internal/database"
	"github.com/avisproject/avis-hub/internal/models"
)

var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")
	// ErrDuplicate indicates that a resource already exists
	ErrDuplicate = errors.New("resource already exists")
	// ErrInvalidInput indicates that the input data is invalid
	ErrInvalidInput = errors.New("invalid input")
)

// AccountRepository defines the interface for account data operations
type AccountRepository interface {
	database.Repository
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	Update(ctx context.Context, account *models.Account) error
	UpdatePassword(ctx context.Context, username, passwordHash string) error
	FindByIdentity(ctx context.Context, username, email, firstName, lastName string) (*models.Account, error)
}

// DeviceRepository defines the interface for device data operations
type DeviceRepository interface {
	database.Repository
	// Upsert inserts the device if its devEUI is unknown and returns the
	// stored row either way.
	Upsert(ctx context.Context, devEUI string) (*models.Device, error)
	GetByDevEUI(ctx context.Context, devEUI string) (*models.Device, error)
	LinkAccount(ctx context.Context, accountID, deviceID string) error
	ListByAccount(ctx context.Context, accountID string) ([]*models.Device, error)
}

// SessionRepository defines the interface for listening-session operations
type SessionRepository interface {
	database.Repository
	Create(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	ListByAccount(ctx context.Context, accountID string) ([]*models.Session, error)
	Close(ctx context.Context, id string, closedAt time.Time) error
	Delete(ctx context.Context, id string, tx database.Transaction) error
	LinkDevice(ctx context.Context, sessionID, deviceID string) error
	// FindOpenByDevice returns the most recently created open session bound
	// to the device with the given devEUI.
	FindOpenByDevice(ctx context.Context, devEUI string) (*models.Session, error)
}

// TelemetryRepository defines the interface for node activations, weather
// readings and bird detections. Insert methods rely on database uniqueness
// constraints and report ErrDuplicate instead of inserting a second row.
type TelemetryRepository interface {
	database.Repository
	InsertNodeActivation(ctx context.Context, activation *models.NodeActivation) error
	FindLatestNodeActivation(ctx context.Context, sessionID, deviceID string) (*models.NodeActivation, error)
	ListNodeActivations(ctx context.Context, sessionID string) ([]*models.NodeActivation, error)
	InsertWeatherReading(ctx context.Context, reading *models.WeatherReading) error
	FindLatestWeatherAtOrBefore(ctx context.Context, nodeActivationID string, ts time.Time) (*models.WeatherReading, error)
	FindLatestWeather(ctx context.Context, nodeActivationID string) (*models.WeatherReading, error)
	ListWeatherReadings(ctx context.Context, sessionID string) ([]*models.WeatherReading, error)
	InsertBirdDetection(ctx context.Context, detection *models.BirdDetection) error
	ListBirdDetections(ctx context.Context, sessionID string) ([]*models.BirdDetection, error)
	DeleteBySession(ctx context.Context, sessionID string, tx database.Transaction) error
}
