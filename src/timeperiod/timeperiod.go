// SPDX-License-Identifier: MIT
// Package timeperiod implements anchored and cyclic time windows and the
// roll-back/roll-forward queries statements use to bind an observation
// window to a point in time.
package timeperiod

import (
	"fmt"
	"time"
)

// Interval is a half-open window [Left, Right) in the location of the
// instant it was computed from.
type Interval struct {
	Left  time.Time
	Right time.Time
}

// Contains reports whether t falls inside the half-open interval.
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Left) && t.Before(iv.Right)
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%s, %s)", iv.Left.Format(time.RFC3339), iv.Right.Format(time.RFC3339))
}

// Period answers roll-back and roll-forward queries from a wall-clock
// instant. Implementations must be pure: evaluating a Period never mutates
// state and never blocks.
type Period interface {
	// Rollback returns the interval of this period that contains instant,
	// or, if none is currently open, the most recently elapsed one.
	Rollback(instant time.Time) Interval
	// Rollforward returns the next interval starting at or after instant.
	Rollforward(instant time.Time) Interval
	// Contains reports whether instant falls within an occurrence of
	// this period.
	Contains(instant time.Time) bool
	String() string
}

// Clock is a time-of-day anchor (HH:MM), used to bound a cyclic period to
// a window narrower than the full cycle.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" into a Clock.
func ParseClock(s string) (Clock, error) {
	var c Clock
	_, err := fmt.Sscanf(s, "%d:%d", &c.Hour, &c.Minute)
	if err != nil {
		return Clock{}, fmt.Errorf("timeperiod: invalid clock %q: %w", s, err)
	}
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
		return Clock{}, fmt.Errorf("timeperiod: clock %q out of range", s)
	}
	return c, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func atClock(day time.Time, c Clock) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, day.Location())
}
