package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"
)

// RunFunc is the job the scheduler triggers. Errors are logged at this
// boundary and never propagate further.
type RunFunc func(ctx context.Context) error

// Scheduler triggers the fetch pipeline once shortly after startup and then
// daily at a fixed wall-clock time. It is an explicitly owned background task:
// callers hold the handle and control its lifecycle, there is no package
// state.
type Scheduler struct {
	run          RunFunc
	hour, min    int
	startupDelay time.Duration
	stop         chan struct{}
	done         chan struct{}
}

// New creates a scheduler that runs the job daily at the given local
// wall-clock time ("HH:MM"), plus once after startupDelay.
func New(run RunFunc, at string, startupDelay time.Duration) (*Scheduler, error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule time %q: expected HH:MM", at)
	}
	return &Scheduler{
		run:          run,
		hour:         t.Hour(),
		min:          t.Minute(),
		startupDelay: startupDelay,
	}, nil
}

// Start launches the background loop. Calling Start on a running scheduler is
// a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(ctx)
}

// Stop halts the scheduler and waits for the loop to exit. A run already in
// progress finishes; no further runs are triggered.
func (s *Scheduler) Stop() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	s.stop = nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	startup := time.NewTimer(s.startupDelay)
	defer startup.Stop()
	select {
	case <-startup.C:
		s.runOnce(ctx, "initial")
	case <-s.stop:
		return
	case <-ctx.Done():
		return
	}

	for {
		wait := time.Until(nextRun(time.Now(), s.hour, s.min))
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			s.runOnce(ctx, "daily")
		case <-s.stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// runOnce is the terminal error boundary: a failed run is logged and must
// never crash the process or cancel the next scheduled run.
func (s *Scheduler) runOnce(ctx context.Context, kind string) {
	log.Printf("Starting %s news fetch", kind)
	if err := s.run(ctx); err != nil {
		log.Printf("Error during %s news fetch: %v", kind, err)
		return
	}
	log.Printf("Completed %s news fetch", kind)
}

// nextRun returns the next occurrence of hour:min strictly after now.
func nextRun(now time.Time, hour, min int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, min, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
