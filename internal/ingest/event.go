// FilePath: internal/ingest/event.go
package ingest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/avisproject/avis-hub/internal/errors"
)

// Wire event kinds as the gateway bridge sends them.
const (
	KindBird       = 1
	KindWeather    = 2
	KindActivation = 3
)

// EventMeta carries the fields common to every telemetry event: the device
// that produced it, an optional explicit session id, and the event time.
type EventMeta struct {
	SessionID string
	DevEUI    string
	Timestamp time.Time
}

// Event is the closed set of telemetry event kinds. Using one variant type
// per kind keeps every consumer exhaustive over the three cases instead of
// switching on a raw wire number.
type Event interface {
	Meta() EventMeta
	isEvent()
}

// ActivationEvent is a node's activation/GPS beacon (wire kind 3).
type ActivationEvent struct {
	EventMeta
	Lat      float64
	Lng      float64
	Altitude float64
}

// WeatherEvent is an environmental sample (wire kind 2).
type WeatherEvent struct {
	EventMeta
	Temperature float64
	Humidity    float64
	Pressure    float64
}

// BirdEvent is a decoded bird detection (wire kind 1).
type BirdEvent struct {
	EventMeta
	Species         string
	ConfidenceLevel float64
}

func (e *ActivationEvent) Meta() EventMeta { return e.EventMeta }
func (e *WeatherEvent) Meta() EventMeta    { return e.EventMeta }
func (e *BirdEvent) Meta() EventMeta       { return e.EventMeta }

func (e *ActivationEvent) isEvent() {}
func (e *WeatherEvent) isEvent()    {}
func (e *BirdEvent) isEvent()       {}

// wireEvent mirrors the gateway bridge's JSON payload. The bridge has sent
// several field spellings over time (temperature/temp, humidity/humid,
// pressure/b_pressure); all are accepted.
type wireEvent struct {
	Type            int      `json:"type"`
	SessionID       string   `json:"session_id"`
	NodeID          string   `json:"node_id"`
	TimeStamp       string   `json:"time_stamp"`
	Lat             *float64 `json:"lat"`
	Long            *float64 `json:"long"`
	Altitude        *float64 `json:"altitude"`
	Temperature     *float64 `json:"temperature"`
	Temp            *float64 `json:"temp"`
	Humidity        *float64 `json:"humidity"`
	Humid           *float64 `json:"humid"`
	Pressure        *float64 `json:"pressure"`
	BPressure       *float64 `json:"b_pressure"`
	CommonName      string   `json:"common_name"`
	ConfidenceLevel *float64 `json:"confidence_level"`
}

// ParseEvent decodes one wire payload into its event variant. Events with a
// missing node id or timestamp, an unparseable timestamp, or an unknown
// kind are rejected as malformed before any state is touched.
func ParseEvent(raw []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, errors.NewMalformedEventError("invalid event payload", err)
	}

	if w.NodeID == "" {
		return nil, errors.NewMalformedEventError("missing node_id", nil)
	}
	if w.TimeStamp == "" {
		return nil, errors.NewMalformedEventError("missing time_stamp", nil)
	}

	ts, err := time.Parse(time.RFC3339, w.TimeStamp)
	if err != nil {
		return nil, errors.NewMalformedEventError("invalid time_stamp", err)
	}

	meta := EventMeta{
		SessionID: w.SessionID,
		DevEUI:    w.NodeID,
		Timestamp: ts,
	}

	switch w.Type {
	case KindActivation:
		return &ActivationEvent{
			EventMeta: meta,
			Lat:       deref(w.Lat),
			Lng:       deref(w.Long),
			Altitude:  deref(w.Altitude),
		}, nil
	case KindWeather:
		return &WeatherEvent{
			EventMeta:   meta,
			Temperature: firstOf(w.Temperature, w.Temp),
			Humidity:    firstOf(w.Humidity, w.Humid),
			Pressure:    firstOf(w.Pressure, w.BPressure),
		}, nil
	case KindBird:
		return &BirdEvent{
			EventMeta:       meta,
			Species:         w.CommonName,
			ConfidenceLevel: deref(w.ConfidenceLevel),
		}, nil
	default:
		return nil, errors.NewMalformedEventError(fmt.Sprintf("unknown event type: %d", w.Type), nil)
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func firstOf(values ...*float64) float64 {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}
