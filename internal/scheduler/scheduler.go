// Package scheduler drives the serve loop: one forecast build per interval,
// optionally aligned to wall-clock boundaries.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked once per scheduled slot.
type TickFunc func(ctx context.Context, slot time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Interval      time.Duration
	AlignToBucket bool
	StartupDelay  time.Duration
	// RunOnStart triggers one build before waiting for the first slot.
	RunOnStart  bool
	TickTimeout time.Duration
}

// Scheduler runs ticks sequentially. A tick that overruns its slot causes
// the missed slots to be skipped rather than queued.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) (*Scheduler, error) {
	if opts.Interval <= 0 {
		return nil, errors.New("scheduler interval must be positive")
	}
	return &Scheduler{
		opts:   opts,
		logger: logger.With().Str("component", "scheduler").Logger(),
		now:    time.Now,
	}, nil
}

// Run blocks, invoking tick at each slot until ctx is cancelled. Tick
// errors are logged and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		if err := sleep(ctx, s.opts.StartupDelay); err != nil {
			return err
		}
	}

	if s.opts.RunOnStart {
		s.execute(ctx, tick, s.now().UTC())
	}

	next := s.nextTick(s.now().UTC())
	for {
		s.logger.Debug().Time("next_slot", next).Msg("waiting for next slot")
		if err := sleep(ctx, next.Sub(s.now())); err != nil {
			return err
		}

		s.execute(ctx, tick, s.slotStart(next))

		following := next.Add(s.opts.Interval)
		if now := s.now().UTC(); !following.After(now) {
			skipped := int(now.Sub(following)/s.opts.Interval) + 1
			s.logger.Warn().Int("skipped", skipped).Msg("build overran its slot")
			following = s.nextTick(now)
		}
		next = following
	}
}

func (s *Scheduler) execute(ctx context.Context, tick TickFunc, slot time.Time) {
	tickCtx := ctx
	if s.opts.TickTimeout > 0 {
		var cancel context.CancelFunc
		tickCtx, cancel = context.WithTimeout(ctx, s.opts.TickTimeout)
		defer cancel()
	}

	started := s.now()
	s.logger.Info().Time("slot", slot).Msg("executing scheduled build")
	if err := tick(tickCtx, slot); err != nil {
		s.logger.Error().Err(err).Time("slot", slot).Dur("elapsed", s.now().Sub(started)).Msg("scheduled build failed")
	}
}

func (s *Scheduler) nextTick(now time.Time) time.Time {
	if !s.opts.AlignToBucket {
		return now.Add(s.opts.Interval)
	}
	bucket := now.Truncate(s.opts.Interval)
	if !bucket.After(now) {
		bucket = bucket.Add(s.opts.Interval)
	}
	return bucket
}

func (s *Scheduler) slotStart(t time.Time) time.Time {
	if !s.opts.AlignToBucket {
		return t
	}
	return t.Truncate(s.opts.Interval)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
