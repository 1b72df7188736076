// FilePath: internal/models/models.account.go
package models

import "time"

// Account is a registered user of the hub. Accounts are never hard-deleted.
type Account struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email" readxs:"owner,system,admin" writexs:"owner,system,admin"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	PasswordHash string    `json:"-" db:"password_hash" readxs:"system" writexs:"system"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
