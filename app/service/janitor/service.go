package janitor

import (
	"context"
	"log/slog"
	"omiweather/app/config"
	"omiweather/app/service/cooldown"
	"omiweather/app/service/session"
	"time"

	"github.com/samber/do"
)

type SessionSweeper interface {
	SweepExpired(now time.Time) int
}

type CooldownPruner interface {
	Prune(now time.Time) int
}

// Service evicts idle state even when no webhook traffic arrives to trigger the opportunistic sweeps.
type Service struct {
	interval  time.Duration
	sessions  SessionSweeper
	cooldowns CooldownPruner
	now       func() time.Time
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(
		cfg.Session.SweepInterval,
		do.MustInvoke[*session.Store](di),
		do.MustInvoke[*cooldown.Service](di),
		time.Now,
	), nil
}

func NewService(interval time.Duration, sessions SessionSweeper, cooldowns CooldownPruner, now func() time.Time) *Service {
	return &Service{
		interval:  interval,
		sessions:  sessions,
		cooldowns: cooldowns,
		now:       now,
	}
}

func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunIteration()
		}
	}
}

func (s *Service) RunIteration() {
	start := s.now()

	sessions := s.sessions.SweepExpired(start)
	cooldowns := s.cooldowns.Prune(start)

	slog.Debug("Sweep finished",
		"sessions_removed", sessions,
		"cooldowns_removed", cooldowns,
		"duration", time.Since(start))
}
