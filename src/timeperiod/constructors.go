package timeperiod

// Constructors for the fixed-cycle periods named in the condition
// mini-language grammar. Each accepts optional starting/ending clocks;
// pass nil for an unanchored (full-cycle) period.

func NewDaily(start, end *Clock) Cyclic    { return Cyclic{Unit: Daily, Start: start, End: end} }
func NewWeekly(start, end *Clock) Cyclic   { return Cyclic{Unit: Weekly, Start: start, End: end} }
func NewMonthly(start, end *Clock) Cyclic  { return Cyclic{Unit: Monthly, Start: start, End: end} }
func NewYearly(start, end *Clock) Cyclic   { return Cyclic{Unit: Yearly, Start: start, End: end} }
func NewHourly(start, end *Clock) Cyclic   { return Cyclic{Unit: Hourly, Start: start, End: end} }
func NewMinutely(start, end *Clock) Cyclic { return Cyclic{Unit: Minutely, Start: start, End: end} }

// TimeOfDay narrows a Daily cycle to a clock span — the "time of day
// between HH:MM and HH:MM" grammar variant is the same mechanism as an
// anchored Daily cycle.
func TimeOfDay(start, end Clock) Cyclic {
	return Cyclic{Unit: Daily, Start: &start, End: &end}
}
