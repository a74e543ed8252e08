package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewRejectsZeroInterval(t *testing.T) {
	if _, err := New(Options{}, zerolog.Nop()); err == nil {
		t.Fatal("expected error for zero interval")
	}
}

func TestNextTickAlignment(t *testing.T) {
	s, err := New(Options{Interval: time.Hour, AlignToBucket: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	now := time.Date(2025, 8, 7, 14, 20, 0, 0, time.UTC)
	if got, want := s.nextTick(now), time.Date(2025, 8, 7, 15, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("next tick %s, want %s", got, want)
	}
	onBoundary := time.Date(2025, 8, 7, 15, 0, 0, 0, time.UTC)
	if got := s.nextTick(onBoundary); !got.Equal(onBoundary.Add(time.Hour)) {
		t.Fatalf("boundary should advance a full interval, got %s", got)
	}

	free, _ := New(Options{Interval: time.Hour}, zerolog.Nop())
	if got := free.nextTick(now); !got.Equal(now.Add(time.Hour)) {
		t.Fatalf("unaligned tick %s", got)
	}
}

func TestRunInvokesTicksUntilCancelled(t *testing.T) {
	s, err := New(Options{Interval: 10 * time.Millisecond, RunOnStart: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(context.Context, time.Time) error {
			if calls.Add(1) >= 3 {
				cancel()
			}
			return errors.New("tick errors are logged, not fatal")
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	if calls.Load() < 3 {
		t.Fatalf("expected at least 3 ticks, got %d", calls.Load())
	}
}

func TestTickTimeoutBoundsContext(t *testing.T) {
	s, _ := New(Options{Interval: time.Hour, RunOnStart: true, TickTimeout: 5 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var deadline atomic.Bool
	go func() {
		_ = s.Run(ctx, func(tickCtx context.Context, _ time.Time) error {
			_, ok := tickCtx.Deadline()
			deadline.Store(ok)
			<-tickCtx.Done()
			cancel()
			return tickCtx.Err()
		})
	}()

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("tick context never expired")
	}
	if !deadline.Load() {
		t.Fatal("tick context should carry a deadline")
	}
}
