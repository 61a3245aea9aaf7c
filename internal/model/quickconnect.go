package model

import (
	"time"
)

// PairingRequest is a pending quick connect request. It lives only in
// the engine's in-memory registry and is never persisted.
type PairingRequest struct {
	Secret       string
	Code         string
	FriendlyName string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	Resolved     bool
	UserID       string
}

// InitiateResult is returned to the initiating device. The secret is
// disclosed exactly once, here.
type InitiateResult struct {
	Secret    string    `json:"secret"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PairingStatus is the polling view of a pending or resolved request.
// Authentication is set only once the request has been resolved, on the
// single poll that collects it.
type PairingStatus struct {
	Code           string        `json:"code"`
	Resolved       bool          `json:"resolved"`
	Authentication *SessionGrant `json:"authentication,omitempty"`
}

// SessionGrant is the credential handed to a device after a successful
// pairing collection or password login.
type SessionGrant struct {
	UserID      string    `json:"userId"`
	DeviceID    string    `json:"deviceId"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}
