package service

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Sweeper periodically releases expired holds.  The client-side countdown
// is only a UI mirror; this job is the authoritative TTL enforcement, so a
// crashed or disconnected client can never hold a seat beyond its TTL plus
// one sweep interval.
type Sweeper struct {
	lm        *LockManager
	scheduler gocron.Scheduler
	interval  time.Duration
}

// StartSweeper schedules SweepExpired every interval and starts the
// scheduler.  Each run also checks the seat/ledger consistency invariant
// and logs any stuck seat it finds.
func StartSweeper(lm *LockManager, interval time.Duration) (*Sweeper, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	sw := &Sweeper{lm: lm, scheduler: s, interval: interval}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(sw.runOnce),
	)
	if err != nil {
		return nil, err
	}
	s.Start()
	log.Printf("expiry sweeper started (every %s)", interval)
	return sw, nil
}

// Stop shuts the scheduler down and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if err := s.scheduler.Shutdown(); err != nil {
		log.Printf("sweeper shutdown: %v", err)
	}
}

func (s *Sweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	n, err := s.lm.SweepExpired(ctx)
	if err != nil {
		log.Printf("sweeper: sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("sweeper: released %d expired reservation(s)", n)
	}

	stuck, err := s.lm.CheckConsistency(ctx)
	if err != nil {
		log.Printf("sweeper: consistency check failed: %v", err)
		return
	}
	if len(stuck) > 0 {
		// Fatal invariant violation: a LOCKED seat with no ACTIVE
		// reservation.  Alert and leave it alone; repairing here would
		// hide the bug that produced it.
		log.Printf("ERROR: invariant violation: %d seat(s) LOCKED without active reservation: %v", len(stuck), stuck)
	}
}
