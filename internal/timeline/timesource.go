package timeline

import (
	"context"
	"sync"
	"time"
)

// TimeSource abstracts wall-clock capture and the self-paced wait so the
// scheduler is deterministic under test.
type TimeSource interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realTime struct{}

// RealTime returns the production time source.
func RealTime() TimeSource {
	return realTime{}
}

func (realTime) Now() time.Time {
	return time.Now()
}

func (realTime) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FakeTime is a deterministic time source for tests. Sleep advances the
// fake clock instantly and records the requested durations.
type FakeTime struct {
	mu    sync.Mutex
	now   time.Time
	Slept []time.Duration
}

// NewFakeTime creates a fake time source starting at a fixed instant.
func NewFakeTime() *FakeTime {
	return &FakeTime{now: time.Unix(1000, 0)}
}

// Now returns the current fake instant.
func (f *FakeTime) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the fake clock forward.
func (f *FakeTime) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Sleep advances the clock by d without blocking and records d.
func (f *FakeTime) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	f.Slept = append(f.Slept, d)
	return nil
}
