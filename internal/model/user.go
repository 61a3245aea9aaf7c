package model

import (
	"time"
)

type User struct {
	ID           string     `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	IsAdmin      bool       `db:"is_admin" json:"isAdmin"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	DisabledAt   *time.Time `db:"disabled_at" json:"disabledAt,omitempty"`
}

// AuthInfo is the resolved identity of an authenticated request: the
// user plus the device binding of the session that carried the token.
type AuthInfo struct {
	User       *User
	SessionID  string
	DeviceID   string
	DeviceName string
}
