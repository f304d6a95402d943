package sessions

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vmops/snapfleet/internal/models"
	srvErrors "github.com/vmops/snapfleet/pkg/errors"
	"github.com/vmops/snapfleet/pkg/vmware"
)

const (
	DefaultHealthInterval = 5 * time.Minute
	DefaultMaxRetries     = 3
	DefaultBackoffBase    = 5 * time.Second
)

// SupervisorConfig carries the health-check knobs. The literals above
// are defaults, not contractual guarantees; deployments tune them.
type SupervisorConfig struct {
	Interval    time.Duration
	MaxRetries  int
	BackoffBase time.Duration
}

func (c SupervisorConfig) withDefaults() SupervisorConfig {
	if c.Interval <= 0 {
		c.Interval = DefaultHealthInterval
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = DefaultBackoffBase
	}
	return c
}

// Supervisor runs the periodic health checks and re-authenticates
// dropped sessions without operator intervention. State transitions are
// serialized per session: a check never runs concurrently with an
// explicit connect or another check on the same session.
//
// A retryable outage degrades the session, then a bounded backoff burst
// tries to re-authenticate. When the burst fails the session goes
// disconnected and exactly one terminal event is emitted, but the
// supervisor keeps trying on later sweeps. An invalid credential is the
// one fatal case: the session stays down until the operator re-enters
// credentials.
type Supervisor struct {
	pool   *Pool
	cfg    SupervisorConfig
	events chan models.HealthEvent
	log    *zap.SugaredLogger
}

func NewSupervisor(pool *Pool, cfg SupervisorConfig) *Supervisor {
	return &Supervisor{
		pool:   pool,
		cfg:    cfg.withDefaults(),
		events: make(chan models.HealthEvent, 128),
		log:    zap.S().Named("supervisor"),
	}
}

// Events is the health event stream. Sends never block: when no one
// drains the channel, old events are dropped in favor of a standing
// status the presentation layer can read from the pool.
func (s *Supervisor) Events() <-chan models.HealthEvent {
	return s.events
}

// Run blocks, sweeping every session each interval until ctx is done.
func (s *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.log.Infow("supervisor started", "interval", s.cfg.Interval)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("supervisor stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one health-check pass over every session. Sessions are
// checked in parallel so one endpoint's backoff burst never delays the
// others; Sweep returns when the whole pass has finished.
func (s *Supervisor) Sweep(ctx context.Context) {
	var wg sync.WaitGroup
	for _, sess := range s.pool.all() {
		wg.Add(1)
		go func(sess *session) {
			defer wg.Done()
			s.check(ctx, sess)
		}(sess)
	}
	wg.Wait()
}

func (s *Supervisor) check(ctx context.Context, sess *session) {
	// A connect or previous check is still running; skip this tick
	// rather than queue behind it.
	if !sess.opMu.TryLock() {
		return
	}
	defer sess.opMu.Unlock()

	sess.stateMu.RLock()
	state := sess.state
	supervised := sess.supervised
	fatal := sess.credentialFatal
	sess.stateMu.RUnlock()

	switch state {
	case models.SessionStateConnected:
		client := sess.currentClient()
		if client == nil {
			return
		}
		if err := client.HealthCheck(ctx); err != nil {
			// The endpoint answered; only the payload was bad. The
			// transport stays up, so the session is left alone.
			if srvErrors.IsMalformedResponseError(err) {
				s.log.Warnw("health check returned a malformed response", "hostname", sess.endpoint.Hostname, "error", err)
				return
			}
			s.log.Warnw("health check failed", "hostname", sess.endpoint.Hostname, "error", err)
			s.transition(sess, models.SessionStateDegraded, err, false)
			s.recycle(ctx, sess)
		}
	case models.SessionStateDisconnected:
		if !supervised || fatal {
			return
		}
		// Outage outlived the backoff burst; keep trying once per
		// sweep without emitting further terminal events.
		s.reconnectOnce(ctx, sess)
	}
}

// recycle drops the dead transport and re-authenticates with
// exponential backoff. Runs with the session's op lock held.
func (s *Supervisor) recycle(ctx context.Context, sess *session) {
	if old := sess.currentClient(); old != nil {
		_ = old.Logout(ctx)
		sess.setClient(nil)
	}

	var lastErr error
	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := s.cfg.BackoffBase << (attempt - 1)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
		}

		client, err := s.pool.dial(ctx, sess)
		if err == nil {
			s.restore(sess, client)
			return
		}
		lastErr = err

		if srvErrors.IsAuthError(err) {
			s.fail(sess, err, true)
			return
		}
		s.log.Warnw("re-authentication failed", "hostname", sess.endpoint.Hostname, "attempt", attempt+1, "error", err)
	}

	s.fail(sess, lastErr, false)
}

// reconnectOnce is a single background reconnection attempt for a
// session already past its terminal event.
func (s *Supervisor) reconnectOnce(ctx context.Context, sess *session) {
	client, err := s.pool.dial(ctx, sess)
	if err == nil {
		s.restore(sess, client)
		return
	}
	if srvErrors.IsAuthError(err) {
		s.fail(sess, err, true)
		return
	}
	sess.setState(models.SessionStateDisconnected, err)
}

// restore puts a freshly authenticated client back and announces
// recovery. GetClient callers see the same call pattern before and
// after the recycle.
func (s *Supervisor) restore(sess *session, client vmware.Client) {
	sess.setClient(client)
	sess.stateMu.Lock()
	sess.state = models.SessionStateConnected
	sess.lastErr = nil
	sess.credentialFatal = false
	sess.terminalEmitted = false
	sess.stateMu.Unlock()

	s.log.Infow("session recovered", "hostname", sess.endpoint.Hostname)
	s.emit(sess, models.SessionStateConnected, nil, false)
}

// fail marks the session disconnected. The terminal event fires at most
// once per outage; credentialFatal additionally stops background
// retries until the operator intervenes.
func (s *Supervisor) fail(sess *session, err error, credentialFatal bool) {
	sess.stateMu.Lock()
	sess.state = models.SessionStateDisconnected
	sess.lastErr = err
	if credentialFatal {
		sess.credentialFatal = true
	}
	alreadyEmitted := sess.terminalEmitted
	sess.terminalEmitted = true
	sess.stateMu.Unlock()

	s.log.Errorw("session lost", "hostname", sess.endpoint.Hostname, "error", err, "credential_fatal", credentialFatal)
	if !alreadyEmitted {
		s.emit(sess, models.SessionStateDisconnected, err, true)
	}
}

func (s *Supervisor) transition(sess *session, state models.SessionState, err error, terminal bool) {
	sess.setState(state, err)
	s.emit(sess, state, err, terminal)
}

func (s *Supervisor) emit(sess *session, state models.SessionState, err error, terminal bool) {
	ev := models.HealthEvent{
		SessionID: sess.id,
		Hostname:  sess.endpoint.Hostname,
		State:     state,
		Err:       err,
		Terminal:  terminal,
		Time:      time.Now(),
	}
	select {
	case s.events <- ev:
	default:
	}
}
