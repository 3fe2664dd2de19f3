package domain

import "time"

// BaseTimes returns one base time per calendar day from start to end inclusive,
// each at the given UTC hour.
func BaseTimes(start, end time.Time, hour int) []time.Time {
	first := time.Date(start.Year(), start.Month(), start.Day(), hour, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), end.Day(), hour, 0, 0, 0, time.UTC)
	var out []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// LeadTimes returns the final steps of the accumulation windows, from start to
// final inclusive every disc hours.
func LeadTimes(start, final, disc int) []int {
	if disc <= 0 {
		return nil
	}
	var out []int
	for s := start; s <= final; s += disc {
		out = append(out, s)
	}
	return out
}
