package timeperiod

import "time"

// Range is a fixed, non-repeating interval: an explicit time range rather
// than a cyclic one. Rollback and Rollforward both always return the same
// bounds regardless of instant, since there is only ever one occurrence.
type Range struct {
	Left  time.Time
	Right time.Time
}

func (r Range) interval() Interval { return Interval{Left: r.Left, Right: r.Right} }

func (r Range) Rollback(instant time.Time) Interval    { return r.interval() }
func (r Range) Rollforward(instant time.Time) Interval { return r.interval() }
func (r Range) Contains(instant time.Time) bool        { return r.interval().Contains(instant) }
func (r Range) String() string {
	return r.interval().String()
}
