package status

import (
	"context"
	"time"
)

// Default reveal pacing.
const (
	DefaultStep2Delay = 400 * time.Millisecond
	DefaultStep3Delay = 600 * time.Millisecond
)

// Reveal is one field becoming visible. Step counts from 1.
type Reveal struct {
	Step  int
	Field Field
	Value bool
}

// Stager paces the reveal of an outcome's fields.
type Stager struct {
	LeadIn     time.Duration
	Step2Delay time.Duration
	Step3Delay time.Duration
}

// DefaultStager reveals field 1 at once, then waits 400ms and 600ms.
func DefaultStager() Stager {
	return Stager{Step2Delay: DefaultStep2Delay, Step3Delay: DefaultStep3Delay}
}

// Run calls onReveal once per field, in order, sleeping between calls. It
// returns ctx.Err() if ctx ends before the last reveal; fields already
// delivered stay delivered.
func (s Stager) Run(ctx context.Context, outcome Outcome, onReveal func(Reveal)) error {
	delays := []time.Duration{s.LeadIn, s.Step2Delay, s.Step3Delay}
	for i, f := range Fields {
		if err := sleep(ctx, delays[i]); err != nil {
			return err
		}
		onReveal(Reveal{Step: i + 1, Field: f, Value: outcome.Value(f)})
	}
	return nil
}

// Total is the time Run takes when uninterrupted.
func (s Stager) Total() time.Duration {
	return s.LeadIn + s.Step2Delay + s.Step3Delay
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
