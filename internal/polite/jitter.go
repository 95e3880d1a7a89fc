package polite

import (
	"context"
	"math/rand/v2"
	"time"
)

// Profile names a jitter configuration.
type Profile string

const (
	ProfileCautious   Profile = "cautious"
	ProfileNormal     Profile = "normal"
	ProfileAggressive Profile = "aggressive"
)

// Jitter adds randomized spacing between adapter calls so bursts of
// comparison requests do not hammer a provider in lockstep.
type Jitter struct {
	Min time.Duration
	Max time.Duration
}

// NewJitter creates a jitter generator for the given profile.
func NewJitter(profile Profile) *Jitter {
	switch profile {
	case ProfileCautious:
		return &Jitter{Min: 1 * time.Second, Max: 3 * time.Second}
	case ProfileAggressive:
		return &Jitter{Min: 50 * time.Millisecond, Max: 200 * time.Millisecond}
	default: // normal
		return &Jitter{Min: 200 * time.Millisecond, Max: 800 * time.Millisecond}
	}
}

// Wait sleeps for a random duration within the configured range,
// returning early when ctx is cancelled.
func (j *Jitter) Wait(ctx context.Context) error {
	d := j.Min
	if j.Max > j.Min {
		d = j.Min + time.Duration(rand.Int64N(int64(j.Max-j.Min)))
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
