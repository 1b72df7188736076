// FilePath: internal/models/models.session.go
package models

import "time"

// Session is a named, time-bounded listening period owned by an account.
// It is open while ClosedAt is nil; telemetry from linked devices is only
// attributed to open sessions.
type Session struct {
	ID        string     `json:"id" db:"id"`
	AccountID string     `json:"account_id" db:"account_id"`
	Name      string     `json:"name" db:"name"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty" db:"closed_at"`
}

// IsOpen reports whether the session is still eligible for telemetry.
func (s *Session) IsOpen() bool {
	return s.ClosedAt == nil
}

// SessionDevice binds a device to a session for the session's duration.
// Device-originated telemetry that carries no session id is resolved
// through this link.
type SessionDevice struct {
	SessionID string `json:"session_id" db:"session_id"`
	DeviceID  string `json:"device_id" db:"device_id"`
}
