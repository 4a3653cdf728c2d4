package cooldown

import (
	"omiweather/app/config"
	"sync"
	"time"

	"github.com/samber/do"
)

// Service remembers when a trigger was last confirmed for each session.
// Entries are overwritten by newer confirmations and pruned once older than the retention window,
// which config validation keeps at or above the trigger cooldown.
type Service struct {
	retention     time.Duration
	sweepInterval time.Duration

	mu        sync.Mutex
	last      map[string]time.Time
	lastSweep time.Time
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewTracker(cfg.Session.Retention, cfg.Session.SweepInterval, time.Now()), nil
}

func NewTracker(retention, sweepInterval time.Duration, now time.Time) *Service {
	return &Service{
		retention:     retention,
		sweepInterval: sweepInterval,
		last:          make(map[string]time.Time),
		lastSweep:     now,
	}
}

func (s *Service) Touch(sessionID string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) > s.sweepInterval {
		s.sweep(now)
	}

	s.last[sessionID] = now
}

// Since reports the time elapsed since the last confirmation, false if there was none.
func (s *Service) Since(sessionID string, now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.last[sessionID]
	if !ok {
		return 0, false
	}

	return now.Sub(t), true
}

func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.last)
}

// Prune drops confirmations older than the retention window.
func (s *Service) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.last)
	s.sweep(now)

	return before - len(s.last)
}

func (s *Service) sweep(now time.Time) {
	cutoff := now.Add(-s.retention)
	for id, t := range s.last {
		if t.Before(cutoff) {
			delete(s.last, id)
		}
	}
	s.lastSweep = now
}
