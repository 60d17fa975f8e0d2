package timeperiod

import "time"

// Trailing is a rolling period: the Span immediately preceding whatever
// instant it is evaluated against, rather than a fixed calendar cycle.
// It backs the condition mini-language's "past duration" clause on task
// conditions, where "has succeeded task backup past 2h" means "within
// the two hours up to now" rather than any particular calendar window.
type Trailing struct {
	Span time.Duration
}

func (t Trailing) Rollback(instant time.Time) Interval {
	return Interval{Left: instant.Add(-t.Span), Right: instant}
}

// Rollforward returns the same window as Rollback, which ends at
// instant rather than starting at or after it.
func (t Trailing) Rollforward(instant time.Time) Interval {
	return t.Rollback(instant)
}

// Contains always reports true: the window is defined relative to the
// instant it's asked about, so there is no fixed occurrence to fall
// outside of.
func (t Trailing) Contains(instant time.Time) bool { return true }

func (t Trailing) String() string {
	return "trailing " + t.Span.String()
}
