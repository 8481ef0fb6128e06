package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Sweeper periodically closes idle sessions.
type Sweeper struct {
	scheduler *gocron.Scheduler
}

// StartSweeper closes sessions idle longer than idle every interval.
func StartSweeper(m *Manager, interval, idle time.Duration) (*Sweeper, error) {
	s := gocron.NewScheduler(time.UTC)
	_, err := s.Every(interval).WaitForSchedule().Do(func() {
		if n := m.CloseIdle(idle); n > 0 {
			slog.Info("closed idle sessions", "count", n, "open", m.Len())
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule idle sweep: %w", err)
	}
	s.StartAsync()
	return &Sweeper{scheduler: s}, nil
}

// Stop halts the sweeper.
func (s *Sweeper) Stop() {
	s.scheduler.Stop()
}
