// FilePath: internal/hubservice/hubservice.ingest.go
package hubservice

import (
	"context"
	"time"

	"github.com/avisproject/avis-hub/internal/ingest"
	"github.com/avisproject/avis-hub/internal/models"
	"github.com/avisproject/avis-hub/internal/repository"
)

// IngestEvent decodes one raw telemetry payload and applies it to the
// store. Outcomes are counted per event kind so stuck gateways show up in
// the health endpoint.
func (s *HubService) IngestEvent(ctx context.Context, raw []byte) (*ingest.Result, error) {
	ev, err := ingest.ParseEvent(raw)
	if err != nil {
		s.Monitor.RecordEvent("ingest_malformed", nil)
		return nil, err
	}

	result, err := ingest.Apply(ctx, &ingestStore{sessions: s.Sessions, telemetry: s.Telemetry}, ev)
	if err != nil {
		s.Monitor.RecordEvent("ingest_rejected", map[string]string{"node": ev.Meta().DevEUI})
		return nil, err
	}

	label := "ingest_applied"
	if result.Duplicate {
		label = "ingest_duplicate"
	}
	s.Monitor.RecordEvent(label, map[string]string{"session": result.SessionID})
	return result, nil
}

// ingestStore adapts the session and telemetry repositories to the narrow
// contract the reconciliation core runs against.
type ingestStore struct {
	sessions  repository.SessionRepository
	telemetry repository.TelemetryRepository
}

func (a *ingestStore) FindOpenSessionForDevice(ctx context.Context, devEUI string) (string, error) {
	session, err := a.sessions.FindOpenByDevice(ctx, devEUI)
	if err != nil {
		return "", err
	}
	return session.ID, nil
}

func (a *ingestStore) FindLatestNodeActivation(ctx context.Context, sessionID, deviceID string) (*models.NodeActivation, error) {
	return a.telemetry.FindLatestNodeActivation(ctx, sessionID, deviceID)
}

func (a *ingestStore) InsertNodeActivation(ctx context.Context, activation *models.NodeActivation) error {
	return a.telemetry.InsertNodeActivation(ctx, activation)
}

func (a *ingestStore) FindLatestWeatherAtOrBefore(ctx context.Context, nodeActivationID string, ts time.Time) (*models.WeatherReading, error) {
	return a.telemetry.FindLatestWeatherAtOrBefore(ctx, nodeActivationID, ts)
}

func (a *ingestStore) FindLatestWeather(ctx context.Context, nodeActivationID string) (*models.WeatherReading, error) {
	return a.telemetry.FindLatestWeather(ctx, nodeActivationID)
}

func (a *ingestStore) InsertWeatherReading(ctx context.Context, reading *models.WeatherReading) error {
	return a.telemetry.InsertWeatherReading(ctx, reading)
}

func (a *ingestStore) InsertBirdDetection(ctx context.Context, detection *models.BirdDetection) error {
	return a.telemetry.InsertBirdDetection(ctx, detection)
}
