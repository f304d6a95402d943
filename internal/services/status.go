package services

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/vmops/snapfleet/internal/models"
	"github.com/vmops/snapfleet/internal/sessions"
)

// SessionHealth is one session's pool status together with the last
// health event the supervisor emitted for it. A terminal event stays
// visible as a standing indicator until the session recovers.
type SessionHealth struct {
	models.SessionStatus
	LastEvent *models.HealthEvent
}

// StatusService keeps the operator-facing view of session health. It
// drains the supervisor's event stream so the standing indicator is
// available even when no consumer watched the stream live.
type StatusService struct {
	pool *sessions.Pool
	log  *zap.SugaredLogger

	mu     sync.Mutex
	events map[models.SessionID]models.HealthEvent
}

func NewStatusService(pool *sessions.Pool) *StatusService {
	return &StatusService{
		pool:   pool,
		log:    zap.S().Named("status"),
		events: make(map[models.SessionID]models.HealthEvent),
	}
}

// Watch consumes health events until ctx is done.
func (s *StatusService) Watch(ctx context.Context, events <-chan models.HealthEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.record(ev)
		}
	}
}

func (s *StatusService) record(ev models.HealthEvent) {
	if ev.Terminal {
		s.log.Errorw("session needs attention", "hostname", ev.Hostname, "error", ev.Err)
	}
	s.mu.Lock()
	s.events[ev.SessionID] = ev
	s.mu.Unlock()
}

// Sessions returns every pool entry with its last health event.
func (s *StatusService) Sessions() []SessionHealth {
	statuses := s.pool.Sessions()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]SessionHealth, 0, len(statuses))
	for _, status := range statuses {
		health := SessionHealth{SessionStatus: status}
		if ev, ok := s.events[status.ID]; ok {
			ev := ev
			health.LastEvent = &ev
		}
		out = append(out, health)
	}
	return out
}
