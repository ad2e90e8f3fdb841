package core

// janitor.go discards abandoned import sessions.
//
// Sessions live in memory with their full row set, so one that is opened and
// never finished or cancelled would hold that memory forever. The janitor
// runs on a ticker and drops every session idle for longer than the TTL.
// It stops when its context is cancelled.

import (
	"context"
	"log/slog"
	"time"
)

const (
	// DefaultSessionTTL is how long an untouched session is kept.
	DefaultSessionTTL = 30 * time.Minute

	// DefaultJanitorInterval is how often idle sessions are swept.
	DefaultJanitorInterval = time.Minute
)

// StartSessionJanitor sweeps idle sessions every interval until ctx is
// cancelled. It blocks; run it in its own goroutine.
func (s *Service) StartSessionJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	ttl := s.cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	slog.Info("session janitor started", "interval", interval, "ttl", ttl)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session janitor stopped")
			return
		case now := <-ticker.C:
			if n := s.SweepIdle(now.Add(-ttl)); n > 0 {
				slog.Info("idle sessions discarded", "count", n, "remaining", s.SessionCount())
			}
		}
	}
}

// SweepIdle discards sessions last updated before cutoff and returns how
// many were removed. Sessions busy in another call are skipped.
func (s *Service) SweepIdle(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		if !e.mu.TryLock() {
			continue
		}
		if e.session.UpdatedAt().Before(cutoff) {
			e.session.Cancel()
			delete(s.sessions, id)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}
