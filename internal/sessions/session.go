package sessions

import (
	"sync"

	"github.com/vmops/snapfleet/internal/models"
	"github.com/vmops/snapfleet/pkg/vmware"
)

// session is one pool entry. Two locks with distinct roles: opMu
// serializes connect, disconnect and health-check operations so no two
// of them ever run concurrently against the same session; stateMu
// guards the cheap state reads so GetClient never waits behind a slow
// remote call.
type session struct {
	id       models.SessionID
	endpoint models.Endpoint

	opMu sync.Mutex

	stateMu sync.RWMutex
	state   models.SessionState
	client  vmware.Client
	lastErr error

	// supervised is set once an explicit connect succeeded and cleared
	// on explicit disconnect. Only supervised sessions are reconnected
	// in the background.
	supervised bool

	// credentialFatal marks a session whose credential reference came
	// back invalid. No background retry until the operator re-enters
	// credentials.
	credentialFatal bool

	// terminalEmitted guards the one terminal health event per outage.
	terminalEmitted bool
}

func (s *session) setState(state models.SessionState, err error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.state = state
	s.lastErr = err
}

func (s *session) currentState() models.SessionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *session) setClient(c vmware.Client) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.client = c
}

func (s *session) currentClient() vmware.Client {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.client
}

func (s *session) status() models.SessionStatus {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return models.SessionStatus{
		ID:       s.id,
		Endpoint: s.endpoint,
		State:    s.state,
		LastError: func() error {
			if s.state == models.SessionStateConnected {
				return nil
			}
			return s.lastErr
		}(),
	}
}
