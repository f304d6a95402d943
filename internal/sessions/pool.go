package sessions

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vmops/snapfleet/internal/models"
	"github.com/vmops/snapfleet/pkg/credentials"
	srvErrors "github.com/vmops/snapfleet/pkg/errors"
	"github.com/vmops/snapfleet/pkg/vmware"
)

// Dialer opens an authenticated client to one endpoint. Swapped for a
// test double in tests; the default dials vSphere through govmomi.
type Dialer func(ctx context.Context, endpoint models.Endpoint, id models.SessionID, secret credentials.Secret) (vmware.Client, error)

func govmomiDialer(ctx context.Context, endpoint models.Endpoint, id models.SessionID, secret credentials.Secret) (vmware.Client, error) {
	return vmware.Connect(ctx, endpoint, id, secret.Username, secret.Password)
}

// Pool owns the set of endpoint sessions. Registration and connection
// are decoupled: registering an endpoint never dials, and an explicit
// connect failure is reported to the caller rather than retried
// silently. Background recovery of dropped sessions is the supervisor's
// job.
type Pool struct {
	mu       sync.RWMutex
	sessions map[models.SessionID]*session

	dialer   Dialer
	provider credentials.Provider
}

// Option configures a Pool.
type Option func(*Pool)

// WithDialer replaces the govmomi dialer.
func WithDialer(d Dialer) Option {
	return func(p *Pool) { p.dialer = d }
}

func NewPool(provider credentials.Provider, opts ...Option) *Pool {
	p := &Pool{
		sessions: make(map[models.SessionID]*session),
		dialer:   govmomiDialer,
		provider: provider,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Register adds an endpoint and returns its session id. The session
// starts disconnected.
func (p *Pool) Register(endpoint models.Endpoint) models.SessionID {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := &session{
		id:       uuid.New(),
		endpoint: endpoint,
		state:    models.SessionStateDisconnected,
	}
	p.sessions[s.id] = s

	zap.S().Named("sessions").Infow("registered endpoint", "hostname", endpoint.Hostname, "session", s.id)
	return s.id
}

// Connect performs authentication for one session. On success the
// session is connected and eligible for supervision; on failure it
// stays disconnected and the error is returned to the caller.
func (p *Pool) Connect(ctx context.Context, id models.SessionID) error {
	s, err := p.session(id)
	if err != nil {
		return err
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.setState(models.SessionStateConnecting, nil)

	client, err := p.dial(ctx, s)
	if err != nil {
		s.setState(models.SessionStateDisconnected, err)
		return err
	}

	s.setClient(client)
	s.stateMu.Lock()
	s.state = models.SessionStateConnected
	s.lastErr = nil
	s.supervised = true
	s.credentialFatal = false
	s.terminalEmitted = false
	s.stateMu.Unlock()

	zap.S().Named("sessions").Infow("session connected", "hostname", s.endpoint.Hostname, "session", s.id)
	return nil
}

// GetClient returns a usable client only while the session is
// connected. Callers must not hold the client beyond one logical
// operation: the supervisor may recycle it at any time.
func (p *Pool) GetClient(id models.SessionID) (vmware.Client, error) {
	s, err := p.session(id)
	if err != nil {
		return nil, err
	}

	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	if s.state != models.SessionStateConnected || s.client == nil {
		return nil, srvErrors.NewNotConnectedError(id)
	}
	return s.client, nil
}

// Disconnect tears the session down. Idempotent: disconnecting an
// already-dead session succeeds.
func (p *Pool) Disconnect(ctx context.Context, id models.SessionID) {
	s, err := p.session(id)
	if err != nil {
		return
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	client := s.currentClient()
	if client != nil {
		if err := client.Logout(ctx); err != nil {
			zap.S().Named("sessions").Debugw("logout failed", "hostname", s.endpoint.Hostname, "error", err)
		}
	}

	s.setClient(nil)
	s.stateMu.Lock()
	s.state = models.SessionStateDisconnected
	s.lastErr = nil
	s.supervised = false
	s.stateMu.Unlock()

	zap.S().Named("sessions").Infow("session disconnected", "hostname", s.endpoint.Hostname, "session", s.id)
}

// Remove disconnects and forgets a session.
func (p *Pool) Remove(ctx context.Context, id models.SessionID) {
	p.Disconnect(ctx, id)
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sessions, id)
}

// Sessions returns a status view of every pool entry.
func (p *Pool) Sessions() []models.SessionStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]models.SessionStatus, 0, len(p.sessions))
	for _, s := range p.sessions {
		out = append(out, s.status())
	}
	return out
}

// ConnectedSessions returns the ids of sessions currently connected.
func (p *Pool) ConnectedSessions() []models.SessionID {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []models.SessionID
	for id, s := range p.sessions {
		if s.currentState() == models.SessionStateConnected {
			out = append(out, id)
		}
	}
	return out
}

// all snapshots the session set for the supervisor's sweep.
func (p *Pool) all() []*session {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*session, 0, len(p.sessions))
	for _, s := range p.sessions {
		out = append(out, s)
	}
	return out
}

func (p *Pool) session(id models.SessionID) (*session, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s, ok := p.sessions[id]
	if !ok {
		return nil, srvErrors.NewSessionNotFoundError(id)
	}
	return s, nil
}

// dial resolves the session's credential reference and opens the
// connection. An invalid credential is an auth error: never retried by
// the caller.
func (p *Pool) dial(ctx context.Context, s *session) (vmware.Client, error) {
	secret, err := p.provider.Resolve(s.endpoint.CredentialRef)
	if err != nil {
		return nil, srvErrors.NewAuthError(s.endpoint.Hostname, err.Error())
	}
	return p.dialer(ctx, s.endpoint, s.id, secret)
}
