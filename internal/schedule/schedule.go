// Package schedule decides when claim passes run and how long to pause
// between claims.
package schedule

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	// DefaultExpression runs a pass every hour, measured from the end of the
	// previous pass.
	DefaultExpression = "@every 1h"

	// MinInterval is the shortest interval accepted for duration schedules.
	MinInterval = time.Second
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Parse accepts a five-field cron expression, a descriptor such as
// "@hourly" or "@every 30m", or a bare Go duration such as "90m".
func Parse(expr string) (cron.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("schedule cannot be empty")
	}

	if d, err := time.ParseDuration(expr); err == nil {
		if d < MinInterval {
			return nil, fmt.Errorf("schedule interval must be at least %s (got %s)", MinInterval, d)
		}
		return cron.Every(d), nil
	}

	s, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return s, nil
}

// Until returns how long to wait from now until the schedule's next tick.
func Until(s cron.Schedule, now time.Time) time.Duration {
	wait := s.Next(now).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// Clock abstracts time so the claim loop can be driven by tests.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock is the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
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

// Jitter is a half-open delay range [Min, Max).
type Jitter struct {
	Min time.Duration
	Max time.Duration
}

// Pick returns a random delay in the range. When Max <= Min it returns Min.
func (j Jitter) Pick(rng *rand.Rand) time.Duration {
	if j.Max <= j.Min {
		return j.Min
	}
	return j.Min + time.Duration(rng.Int63n(int64(j.Max-j.Min)))
}
