package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ParseCron parses a standard five-field cron expression
func ParseCron(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(expr)
}

// Schedule triggers periodic audits based on a cron expression
type Schedule struct {
	sched   cron.Schedule
	lastRun time.Time
	running bool
	mu      sync.Mutex
}

// NewSchedule creates a Schedule from a cron expression
func NewSchedule(expr string) (*Schedule, error) {
	sched, err := ParseCron(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return &Schedule{sched: sched}, nil
}

// Next returns the next scheduled audit time
func (s *Schedule) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	last := s.lastRun
	if last.IsZero() {
		last = time.Now()
	}
	return s.sched.Next(last)
}

// shouldRun reports whether an audit is due and none is in flight
func (s *Schedule) shouldRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false
	}

	last := s.lastRun
	if last.IsZero() {
		last = time.Now().Add(-24 * time.Hour)
	}
	return time.Now().After(s.sched.Next(last))
}

func (s *Schedule) markRunning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
}

func (s *Schedule) markComplete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.lastRun = time.Now()
}

// Start checks the schedule once a minute and invokes runFunc when an
// audit is due. Blocks until the context is cancelled.
func (s *Schedule) Start(ctx context.Context, runFunc func() error) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.shouldRun() {
				continue
			}
			s.markRunning()
			if err := runFunc(); err != nil {
				fmt.Printf("Scheduled audit failed: %v\n", err)
			}
			s.markComplete()
		}
	}
}
