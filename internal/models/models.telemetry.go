// FilePath: internal/models/models.telemetry.go
package models

import "time"

// NodeActivation is one physical deployment of a sensor node within a
// session, carrying its GPS fix. At most one activation is considered
// current per (session, device) pair: the one with the greatest
// ActivationTimestamp. Unique key: (session_id, device_id,
// activation_timestamp).
type NodeActivation struct {
	ID                  string    `json:"id" db:"id"`
	SessionID           string    `json:"session_id" db:"session_id"`
	DeviceID            string    `json:"device_id" db:"device_id"`
	Altitude            float64   `json:"altitude" db:"altitude"`
	Lat                 float64   `json:"lat" db:"lat"`
	Lng                 float64   `json:"lng" db:"lng"`
	ActivationTimestamp time.Time `json:"activation_timestamp" db:"activation_timestamp"`
}

// WeatherReading is an environmental sample taken by an activated node.
// Unique key: (node_activation_id, timestamp).
type WeatherReading struct {
	ID               string    `json:"id" db:"id"`
	NodeActivationID string    `json:"node_activation_id" db:"node_activation_id"`
	Timestamp        time.Time `json:"timestamp" db:"timestamp"`
	Temperature      float64   `json:"temperature" db:"temperature"`
	Humidity         float64   `json:"humidity" db:"humidity"`
	Pressure         float64   `json:"pressure" db:"pressure"`
}

// BirdDetection is a decoded bird event, always attached to the weather
// reading temporally closest at-or-before its own timestamp within the
// same node activation (or the most recent reading overall when the
// detection predates all readings).
type BirdDetection struct {
	ID               string    `json:"id" db:"id"`
	WeatherReadingID string    `json:"weather_reading_id" db:"weather_reading_id"`
	NodeActivationID string    `json:"node_activation_id" db:"node_activation_id"`
	Timestamp        time.Time `json:"timestamp" db:"timestamp"`
	Species          string    `json:"species" db:"species"`
	ConfidenceLevel  float64   `json:"confidence_level" db:"confidence_level"`
}

// SessionData is the consolidated read-side view of one session: metadata
// plus its full telemetry history, each category ascending by timestamp.
type SessionData struct {
	Details *Session          `json:"details"`
	Nodes   []*NodeActivation `json:"nodes"`
	Weather []*WeatherReading `json:"weather"`
	Birds   []*BirdDetection  `json:"birds"`
}
