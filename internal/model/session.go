package model

import (
	"time"
)

// DeviceSession is an issued access token (stored hashed) bound to a
// user and the device that holds it.
type DeviceSession struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"userId"`
	DeviceID   string    `db:"device_id" json:"deviceId"`
	DeviceName string    `db:"device_name" json:"deviceName"`
	TokenHash  string    `db:"token_hash" json:"-"`
	ExpiresAt  time.Time `db:"expires_at" json:"expiresAt"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

type CreateDeviceSessionParams struct {
	UserID     string
	DeviceID   string
	DeviceName string
	TokenHash  string
	ExpiresAt  time.Time
}
