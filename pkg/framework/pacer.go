package framework

import (
	"context"
	"time"
)

// Pacer paces a periodic task using absolute deadlines: each wake time is
// the previous deadline plus the period, and Wait sleeps only the residual.
// Jitter of an individual tick does not accumulate into long-run drift.
type Pacer struct {
	Period time.Duration

	deadline time.Time
}

// NewPacer creates a Pacer with the given period.
func NewPacer(period time.Duration) *Pacer {
	return &Pacer{Period: period}
}

// PacerAt creates a Pacer ticking at the given frequency in Hz.
func PacerAt(hz float64) *Pacer {
	if hz <= 0 {
		hz = 1
	}
	return NewPacer(time.Duration(float64(time.Second) / hz))
}

// Wait sleeps until the next deadline and advances it by one period.
// It returns early with ctx.Err() if the context is canceled. A deadline
// already in the past returns immediately without sleeping.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.deadline.IsZero() {
		p.deadline = time.Now().Add(p.Period)
	}
	residual := time.Until(p.deadline)
	p.deadline = p.deadline.Add(p.Period)
	if residual <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(residual)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset discards the accumulated deadline. Used after an idle stretch so
// the next Wait paces from now instead of burning through missed periods.
func (p *Pacer) Reset() {
	p.deadline = time.Time{}
}
