package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/swapsight/swapsight/models"
)

// Scheduler fires a full refresh once a day at a fixed UTC hour: routes
// first, then slippage, per provider. Slippage derives its pair list from
// the route cache, so the ordering matters.
type Scheduler struct {
	runner    *Runner
	providers []models.Provider
	hourUTC   int

	mu        sync.Mutex
	isRunning bool
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// NewScheduler creates a daily scheduler over the runner.
func NewScheduler(runner *Runner, providers []models.Provider, hourUTC int) *Scheduler {
	return &Scheduler{
		runner:    runner,
		providers: providers,
		hourUTC:   hourUTC,
	}
}

// Start launches the background loop. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stopCh = make(chan struct{})
	s.stoppedCh = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.stoppedCh)
		for {
			wait := time.Until(s.nextFire(time.Now().UTC()))
			timer := time.NewTimer(wait)
			log.Info().
				Dur("wait", wait).
				Int("hour_utc", s.hourUTC).
				Msg("next scheduled refresh armed")

			select {
			case <-s.stopCh:
				timer.Stop()
				return
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				s.refreshAll(ctx)
			}
		}
	}()
}

// Stop halts the loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	close(s.stopCh)
	<-s.stoppedCh
}

// nextFire returns the next occurrence of the configured hour after now.
func (s *Scheduler) nextFire(now time.Time) time.Time {
	fire := time.Date(now.Year(), now.Month(), now.Day(), s.hourUTC, 0, 0, 0, time.UTC)
	if !fire.After(now) {
		fire = fire.Add(24 * time.Hour)
	}
	return fire
}

func (s *Scheduler) refreshAll(ctx context.Context) {
	for _, provider := range s.providers {
		if ctx.Err() != nil {
			return
		}
		stats, err := s.runner.RunRouteFetch(ctx, provider)
		if err != nil {
			if !errors.Is(err, ErrRunInProgress) {
				log.Error().Err(err).
					Str("provider", string(provider)).
					Msg("scheduled route fetch failed")
			}
			continue
		}
		log.Info().
			Str("provider", string(provider)).
			Int("success", stats.SuccessCount).
			Int("errors", stats.ErrorCount).
			Msg("scheduled route fetch finished")

		stats, err = s.runner.RunSlippageFetch(ctx, provider)
		if err != nil {
			if !errors.Is(err, ErrRunInProgress) {
				log.Error().Err(err).
					Str("provider", string(provider)).
					Msg("scheduled slippage fetch failed")
			}
			continue
		}
		log.Info().
			Str("provider", string(provider)).
			Int("success", stats.SuccessCount).
			Int("errors", stats.ErrorCount).
			Msg("scheduled slippage fetch finished")
	}
}
