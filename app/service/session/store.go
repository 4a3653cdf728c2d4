package session

import (
	"log/slog"
	"omiweather/app/config"
	"sync"
	"time"

	"github.com/samber/do"
)

// Store owns every session record. Records live in a slice, the map only holds slot indexes.
// A single mutex covers lookup, creation, mutation and the expiry sweep.
type Store struct {
	retention     time.Duration
	sweepInterval time.Duration

	mu        sync.Mutex
	index     map[string]int
	records   []Record
	lastSweep time.Time
}

func New(di *do.Injector) (*Store, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewStore(cfg.Session.Retention, cfg.Session.SweepInterval, time.Now()), nil
}

func NewStore(retention, sweepInterval time.Duration, now time.Time) *Store {
	return &Store{
		retention:     retention,
		sweepInterval: sweepInterval,
		index:         make(map[string]int),
		lastSweep:     now,
	}
}

// GetOrCreate returns a snapshot of the session record, creating it on first use.
// Either way the record's LastActivity becomes now.
func (s *Store) GetOrCreate(sessionID string, now time.Time) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.acquire(sessionID, now).clone()
}

// Update runs fn against the live record while holding the store lock and returns a snapshot
// of the result. fn must not block: it runs inside the critical section of every session.
func (s *Store) Update(sessionID string, now time.Time, fn func(*Record)) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.acquire(sessionID, now)
	fn(rec)

	return rec.clone()
}

// SweepExpired drops every record idle for longer than the retention window.
func (s *Store) SweepExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sweep(now)
}

// ActiveCount is informational only.
func (s *Store) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records)
}

func (s *Store) acquire(sessionID string, now time.Time) *Record {
	if now.Sub(s.lastSweep) > s.sweepInterval {
		s.sweep(now)
	}

	if i, ok := s.index[sessionID]; ok {
		rec := &s.records[i]
		rec.LastActivity = now
		return rec
	}

	s.records = append(s.records, newRecord(sessionID, now))
	s.index[sessionID] = len(s.records) - 1

	return &s.records[len(s.records)-1]
}

func (s *Store) sweep(now time.Time) int {
	cutoff := now.Add(-s.retention)

	kept := s.records[:0]
	for _, rec := range s.records {
		if rec.LastActivity.Before(cutoff) {
			delete(s.index, rec.SessionID)
			continue
		}

		s.index[rec.SessionID] = len(kept)
		kept = append(kept, rec)
	}

	removed := len(s.records) - len(kept)
	clear(s.records[len(kept):])
	s.records = kept
	s.lastSweep = now

	if removed > 0 {
		slog.Info("Expired sessions removed",
			"removed", removed,
			"active", len(kept))
	}

	return removed
}
