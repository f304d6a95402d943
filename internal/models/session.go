package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SessionID = uuid.UUID

type SessionState string

const (
	// SessionStateDisconnected - no live connection; explicit connect required
	SessionStateDisconnected SessionState = "disconnected"
	// SessionStateConnecting - authentication in progress
	SessionStateConnecting SessionState = "connecting"
	// SessionStateConnected - authenticated and passing health checks
	SessionStateConnected SessionState = "connected"
	// SessionStateDegraded - health check failed, re-authentication in progress
	SessionStateDegraded SessionState = "degraded"
)

func ParseSessionState(s string) (SessionState, error) {
	switch s {
	case "disconnected":
		return SessionStateDisconnected, nil
	case "connecting":
		return SessionStateConnecting, nil
	case "connected":
		return SessionStateConnected, nil
	case "degraded":
		return SessionStateDegraded, nil
	default:
		return "", fmt.Errorf("invalid session state: %s", s)
	}
}

// SessionStatus is a read-only view of one pool entry.
type SessionStatus struct {
	ID       SessionID
	Endpoint Endpoint
	State    SessionState
	// LastError holds the most recent connect or health-check failure.
	// Cleared when the session returns to connected.
	LastError error
}

// HealthEvent is emitted by the supervisor on session state transitions.
// Terminal events mean the supervisor stopped retrying on its own and the
// operator has to intervene.
type HealthEvent struct {
	SessionID SessionID
	Hostname  string
	State     SessionState
	Err       error
	Terminal  bool
	Time      time.Time
}
