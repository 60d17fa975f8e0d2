package timeperiod

import (
	"time"

	"github.com/robfig/cron/v3"
)

// Unit names a fixed calendar cycle. Cyclic periods repeat at this
// granularity; Start/End optionally narrow each cycle to a sub-window.
type Unit int

const (
	Minutely Unit = iota
	Hourly
	Daily
	Weekly
	Monthly
	Yearly
)

func (u Unit) String() string {
	switch u {
	case Minutely:
		return "minutely"
	case Hourly:
		return "hourly"
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	case Yearly:
		return "yearly"
	default:
		return "unknown"
	}
}

// boundaryExpr is the standard 5-field cron expression marking the start
// of each cycle for a unit. This is internal plumbing only: no user input
// is ever parsed as a cron expression, consistent with the engine's
// natural-language grammar (daily/weekly/monthly/yearly/hourly/minutely
// plus starting/ending clocks).
var boundaryExpr = map[Unit]string{
	Minutely: "* * * * *",
	Hourly:   "0 * * * *",
	Daily:    "0 0 * * *",
	Weekly:   "0 0 * * 1",
	Monthly:  "0 0 1 * *",
	Yearly:   "0 0 1 1 *",
}

// margin is a safe lower bound guaranteed to precede the cycle boundary
// containing any instant within one cycle of "now".
var margin = map[Unit]time.Duration{
	Minutely: 3 * time.Minute,
	Hourly:   3 * time.Hour,
	Daily:    3 * 24 * time.Hour,
	Weekly:   15 * 24 * time.Hour,
	Monthly:  65 * 24 * time.Hour,
	Yearly:   800 * 24 * time.Hour,
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

func boundarySchedule(u Unit) cron.Schedule {
	sched, err := parser.Parse(boundaryExpr[u])
	if err != nil {
		// boundaryExpr entries are constants; a parse failure here
		// means the table itself is broken.
		panic("timeperiod: bad internal boundary expression for " + u.String() + ": " + err.Error())
	}
	return sched
}

// cycleStart returns the start of the cycle of unit u that contains
// instant, by walking the cron schedule forward from a safe lower bound
// until the next boundary would be after instant.
func cycleStart(u Unit, instant time.Time) time.Time {
	sched := boundarySchedule(u)
	cursor := instant.Add(-margin[u])
	boundary := cursor
	for {
		next := sched.Next(cursor)
		if next.After(instant) {
			return boundary
		}
		boundary = next
		cursor = next
	}
}

func cycleEnd(u Unit, cycleStart time.Time) time.Time {
	return boundarySchedule(u).Next(cycleStart)
}

// Cyclic is a fixed-cycle period (daily, weekly, monthly, yearly, hourly,
// minutely), optionally narrowed by a starting and/or ending clock anchor.
// Without anchors the window spans the whole cycle. With only Start, the
// window runs from Start to the end of the cycle. With only End, it runs
// from the start of the cycle to End. With both, it runs Start to End,
// and if End's clock is at or before Start's clock the window is treated
// as spanning into the next calendar day (an overnight span).
type Cyclic struct {
	Unit  Unit
	Start *Clock
	End   *Clock
}

func (c Cyclic) String() string {
	s := c.Unit.String()
	if c.Start != nil {
		s += " starting " + c.Start.String()
	}
	if c.End != nil {
		s += " ending " + c.End.String()
	}
	return s
}

// window computes the narrowed interval for the cycle beginning at cs.
func (c Cyclic) window(cs time.Time) Interval {
	left := cs
	right := cycleEnd(c.Unit, cs)
	if c.Start != nil {
		left = atClock(cs, *c.Start)
	}
	if c.End != nil {
		end := atClock(cs, *c.End)
		if c.Start != nil && !end.After(left) {
			// Overnight window: end clock is on the following day.
			end = atClock(cs.AddDate(0, 0, 1), *c.End)
		}
		right = end
	}
	return Interval{Left: left, Right: right}
}

// Rollback returns the window containing instant if one is open, else the
// most recently elapsed window ending at or before instant.
func (c Cyclic) Rollback(instant time.Time) Interval {
	cs := cycleStart(c.Unit, instant)
	for i := 0; i < 4; i++ {
		w := c.window(cs)
		if w.Contains(instant) || !w.Right.After(instant) {
			return w
		}
		// instant precedes this cycle's narrowed window (e.g. before the
		// "starting" clock): step back one cycle.
		cs = cycleStart(c.Unit, cs.Add(-time.Nanosecond))
	}
	return c.window(cs)
}

// Rollforward returns the next window starting at or after instant.
func (c Cyclic) Rollforward(instant time.Time) Interval {
	cs := cycleStart(c.Unit, instant)
	for i := 0; i < 4; i++ {
		w := c.window(cs)
		if !w.Left.Before(instant) {
			return w
		}
		cs = cycleEnd(c.Unit, cs)
	}
	return c.window(cs)
}

// Contains reports whether instant falls within an occurrence of this
// period, checking both the cycle containing instant and the previous
// one (for overnight windows that straddle the cycle boundary).
func (c Cyclic) Contains(instant time.Time) bool {
	cs := cycleStart(c.Unit, instant)
	if c.window(cs).Contains(instant) {
		return true
	}
	prev := cycleStart(c.Unit, cs.Add(-time.Nanosecond))
	return c.window(prev).Contains(instant)
}
