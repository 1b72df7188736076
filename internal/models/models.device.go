// FilePath: internal/models/models.device.go
package models

// Device is a physical field node, identified by its devEUI independent of
// any account or session. Registration is an idempotent upsert by devEUI.
type Device struct {
	ID     string `json:"id" db:"id"`
	DevEUI string `json:"dev_eui" db:"dev_eui"`
}

// AccountDevice links a device to an account. A device may be linked to
// several accounts but only once per account.
type AccountDevice struct {
	AccountID string `json:"account_id" db:"account_id"`
	DeviceID  string `json:"device_id" db:"device_id"`
}
