// FilePath: internal/ingest/ingest.go

// Package ingest holds the telemetry reconciliation core: one pure function
// that applies a decoded device event to persistent state through a narrow
// store contract. Events arrive out of order and duplicated; the rules here
// keep state consistent anyway. There is no retry queue — a rejected event
// is dropped and the device's future telemetry succeeds once prerequisite
// state exists.
package ingest

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/avisproject/avis-hub/internal/errors"
	"github.com/avisproject/avis-hub/internal/models"
	"github.com/avisproject/avis-hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// Store is the persistence contract the ingestor runs against. Lookups
// report repository.ErrNotFound when nothing matches; inserts with a
// uniqueness key report repository.ErrDuplicate instead of inserting a
// second row. The duplicate guarantee must come from a storage-layer
// constraint so that two concurrent identical events cannot both insert.
type Store interface {
	FindOpenSessionForDevice(ctx context.Context, devEUI string) (string, error)
	FindLatestNodeActivation(ctx context.Context, sessionID, deviceID string) (*models.NodeActivation, error)
	InsertNodeActivation(ctx context.Context, activation *models.NodeActivation) error
	FindLatestWeatherAtOrBefore(ctx context.Context, nodeActivationID string, ts time.Time) (*models.WeatherReading, error)
	FindLatestWeather(ctx context.Context, nodeActivationID string) (*models.WeatherReading, error)
	InsertWeatherReading(ctx context.Context, reading *models.WeatherReading) error
	InsertBirdDetection(ctx context.Context, detection *models.BirdDetection) error
}

// Result reports what one event did to the store. Exactly zero or one rows
// are written per successful event; Duplicate marks the zero-row case.
type Result struct {
	SessionID        string `json:"session_id"`
	NodeActivationID string `json:"node_activation_id,omitempty"`
	WeatherReadingID string `json:"weather_reading_id,omitempty"`
	InsertedID       string `json:"inserted_id,omitempty"`
	Duplicate        bool   `json:"duplicate,omitempty"`
	StaleWeather     bool   `json:"stale_weather,omitempty"`
}

// Apply reconciles one telemetry event against the store. The session is
// taken from the event when explicit, otherwise resolved through the
// device's open-session binding. Malformed events fail before any store
// access and never mutate state.
func Apply(ctx context.Context, store Store, ev Event) (*Result, error) {
	meta := ev.Meta()
	if meta.DevEUI == "" {
		return nil, errors.NewMalformedEventError("missing device identifier", nil)
	}
	if meta.Timestamp.IsZero() {
		return nil, errors.NewMalformedEventError("missing event timestamp", nil)
	}

	sessionID, err := resolveSession(ctx, store, meta)
	if err != nil {
		return nil, err
	}

	switch e := ev.(type) {
	case *ActivationEvent:
		return applyActivation(ctx, store, sessionID, e)
	case *WeatherEvent:
		return applyWeather(ctx, store, sessionID, e)
	case *BirdEvent:
		return applyBird(ctx, store, sessionID, e)
	default:
		return nil, errors.NewMalformedEventError("unknown event kind", nil)
	}
}

// resolveSession prefers the event's explicit session id; events carrying
// only a device identifier resolve through the most recently created open
// session bound to that device.
func resolveSession(ctx context.Context, store Store, meta EventMeta) (string, error) {
	if meta.SessionID != "" {
		return meta.SessionID, nil
	}

	sessionID, err := store.FindOpenSessionForDevice(ctx, meta.DevEUI)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return "", errors.NewNoActiveSessionError(
				fmt.Sprintf("no active session for node %s", meta.DevEUI), err)
		}
		return "", err
	}
	return sessionID, nil
}

// applyActivation records a node's activation beacon. Nodes beacon
// periodically; only the first beacon per (session, device, timestamp)
// creates state, the rest are skipped.
func applyActivation(ctx context.Context, store Store, sessionID string, ev *ActivationEvent) (*Result, error) {
	activation := &models.NodeActivation{
		ID:                  nuts.NID("na", 12),
		SessionID:           sessionID,
		DeviceID:            ev.DevEUI,
		Altitude:            ev.Altitude,
		Lat:                 ev.Lat,
		Lng:                 ev.Lng,
		ActivationTimestamp: ev.Timestamp,
	}

	err := store.InsertNodeActivation(ctx, activation)
	if stderrors.Is(err, repository.ErrDuplicate) {
		nuts.L.Warnf("[Ingest] Skipping duplicate node activation: session=%s node=%s ts=%s",
			sessionID, ev.DevEUI, ev.Timestamp.Format(time.RFC3339))
		return &Result{SessionID: sessionID, Duplicate: true}, nil
	}
	if err != nil {
		return nil, err
	}

	nuts.L.Infof("[Ingest] Inserted node activation %s: session=%s node=%s ts=%s",
		activation.ID, sessionID, ev.DevEUI, ev.Timestamp.Format(time.RFC3339))
	return &Result{
		SessionID:        sessionID,
		NodeActivationID: activation.ID,
		InsertedID:       activation.ID,
	}, nil
}

// applyWeather attaches an environmental sample to the current node
// activation. A reading cannot exist without an activation.
func applyWeather(ctx context.Context, store Store, sessionID string, ev *WeatherEvent) (*Result, error) {
	activation, err := currentActivation(ctx, store, sessionID, ev.DevEUI)
	if err != nil {
		return nil, err
	}

	reading := &models.WeatherReading{
		ID:               nuts.NID("wr", 12),
		NodeActivationID: activation.ID,
		Timestamp:        ev.Timestamp,
		Temperature:      ev.Temperature,
		Humidity:         ev.Humidity,
		Pressure:         ev.Pressure,
	}

	err = store.InsertWeatherReading(ctx, reading)
	if stderrors.Is(err, repository.ErrDuplicate) {
		nuts.L.Warnf("[Ingest] Skipping duplicate weather reading: activation=%s ts=%s",
			activation.ID, ev.Timestamp.Format(time.RFC3339))
		return &Result{SessionID: sessionID, NodeActivationID: activation.ID, Duplicate: true}, nil
	}
	if err != nil {
		return nil, err
	}

	nuts.L.Infof("[Ingest] Inserted weather reading %s: activation=%s ts=%s",
		reading.ID, activation.ID, ev.Timestamp.Format(time.RFC3339))
	return &Result{
		SessionID:        sessionID,
		NodeActivationID: activation.ID,
		InsertedID:       reading.ID,
	}, nil
}

// applyBird records a detection against the weather reading temporally
// closest at-or-before it. When the detection predates every reading —
// clocks drift between the detector and the weather sensor — the most
// recent reading overall is used instead of dropping the detection.
func applyBird(ctx context.Context, store Store, sessionID string, ev *BirdEvent) (*Result, error) {
	activation, err := currentActivation(ctx, store, sessionID, ev.DevEUI)
	if err != nil {
		return nil, err
	}

	stale := false
	reading, err := store.FindLatestWeatherAtOrBefore(ctx, activation.ID, ev.Timestamp)
	if stderrors.Is(err, repository.ErrNotFound) {
		nuts.L.Warnf("[Ingest] No weather at or before %s, falling back to most recent reading for activation=%s",
			ev.Timestamp.Format(time.RFC3339), activation.ID)
		stale = true
		reading, err = store.FindLatestWeather(ctx, activation.ID)
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NewNoWeatherDataError(
				fmt.Sprintf("no weather data for node activation %s", activation.ID), err)
		}
	}
	if err != nil {
		return nil, err
	}

	detection := &models.BirdDetection{
		ID:               nuts.NID("bd", 12),
		WeatherReadingID: reading.ID,
		NodeActivationID: activation.ID,
		Timestamp:        ev.Timestamp,
		Species:          ev.Species,
		ConfidenceLevel:  ev.ConfidenceLevel,
	}

	if err := store.InsertBirdDetection(ctx, detection); err != nil {
		return nil, err
	}

	nuts.L.Infof("[Ingest] Inserted bird detection %s (%s): activation=%s weather=%s ts=%s",
		detection.ID, detection.Species, activation.ID, reading.ID, ev.Timestamp.Format(time.RFC3339))
	return &Result{
		SessionID:        sessionID,
		NodeActivationID: activation.ID,
		WeatherReadingID: reading.ID,
		InsertedID:       detection.ID,
		StaleWeather:     stale,
	}, nil
}

func currentActivation(ctx context.Context, store Store, sessionID, devEUI string) (*models.NodeActivation, error) {
	activation, err := store.FindLatestNodeActivation(ctx, sessionID, devEUI)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NewNoNodeActivationError(
				fmt.Sprintf("no node activation for session=%s node=%s", sessionID, devEUI), err)
		}
		return nil, err
	}
	return activation, nil
}
