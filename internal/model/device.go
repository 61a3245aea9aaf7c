package model

import (
	"time"
)

// AuthorizedDevice is a durable record of a device granted access
// through quick connect. Rows are only removed by bulk revocation.
type AuthorizedDevice struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"userId"`
	DeviceID     string    `db:"device_id" json:"deviceId"`
	DeviceName   string    `db:"device_name" json:"deviceName"`
	AuthorizedAt time.Time `db:"authorized_at" json:"authorizedAt"`
}

type RecordAuthorizedDeviceParams struct {
	UserID     string
	DeviceID   string
	DeviceName string
}
