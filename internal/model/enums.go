package model

// QuickConnectState is the availability of the quick connect feature.
// The feature always starts unavailable on process start.
type QuickConnectState string

const (
	// StateUnavailable means the feature is administratively disabled.
	StateUnavailable QuickConnectState = "unavailable"
	// StateAvailable means the feature is enabled but no acceptance
	// window is open; requests cannot be created yet.
	StateAvailable QuickConnectState = "available"
	// StateActive means an acceptance window is open and new pairing
	// requests may be created until the window expires.
	StateActive QuickConnectState = "active"
)

func (s QuickConnectState) IsValid() bool {
	switch s {
	case StateUnavailable, StateAvailable, StateActive:
		return true
	}
	return false
}
