package domain

import (
	"fmt"
	"time"
)

// dayLayout is the calendar-day key used to index day-partitioned samples.
const dayLayout = "20060102"

// Location is a WGS-84 point at which an observation was taken.
type Location struct {
	Lat float64 `json:"lat" msgpack:"lat"`
	Lon float64 `json:"lon" msgpack:"lon"`
}

// ExceedanceRecord pairs, per observation location, the number of ensemble
// members at or above a threshold with whether the observation itself was.
// Index i of both slices refers to the same location.
type ExceedanceRecord struct {
	MemberCount []int
	ObsFlag     []int
}

// Len returns the number of locations in the record.
func (r ExceedanceRecord) Len() int { return len(r.MemberCount) }

// Validate checks the pairing and range invariants for an ensemble of numMembers.
func (r ExceedanceRecord) Validate(numMembers int) error {
	if len(r.MemberCount) != len(r.ObsFlag) {
		return fmt.Errorf("%w: %d member counts vs %d observation flags",
			ErrInvalidRecord, len(r.MemberCount), len(r.ObsFlag))
	}
	for i, c := range r.MemberCount {
		if c < 0 || c > numMembers {
			return fmt.Errorf("%w: member count %d at index %d outside [0,%d]",
				ErrInvalidRecord, c, i, numMembers)
		}
	}
	for i, o := range r.ObsFlag {
		if o != 0 && o != 1 {
			return fmt.Errorf("%w: observation flag %d at index %d", ErrInvalidRecord, o, i)
		}
	}
	return nil
}

// VerificationSample is the flattened concatenation of exceedance records over
// a verification period for one (system, threshold, lead time).
type VerificationSample struct {
	MemberCount []int
	ObsFlag     []int
}

// Len returns the sample size.
func (s VerificationSample) Len() int { return len(s.MemberCount) }

// DayRecord is the exceedance record produced for a single base date.
type DayRecord struct {
	Date   time.Time
	Record ExceedanceRecord
}

// DaySamples keeps records grouped by calendar day so that bootstrap draws
// resample whole days and preserve within-day spatial correlation.
type DaySamples struct {
	days  []DayRecord
	index map[string]int
}

// NewDaySamples creates an empty day-indexed sample.
func NewDaySamples() *DaySamples {
	return &DaySamples{index: make(map[string]int)}
}

// Add appends the record for a day. Adding the same calendar day twice is an error.
func (d *DaySamples) Add(date time.Time, rec ExceedanceRecord) error {
	key := date.Format(dayLayout)
	if _, ok := d.index[key]; ok {
		return fmt.Errorf("%w: duplicate day %s", ErrInvalidRecord, key)
	}
	if len(rec.MemberCount) != len(rec.ObsFlag) {
		return fmt.Errorf("%w: day %s has mismatched lengths", ErrInvalidRecord, key)
	}
	d.index[key] = len(d.days)
	d.days = append(d.days, DayRecord{Date: date, Record: rec})
	return nil
}

// Len returns the number of days held.
func (d *DaySamples) Len() int { return len(d.days) }

// Day returns the i-th day in insertion order.
func (d *DaySamples) Day(i int) DayRecord { return d.days[i] }

// Index returns the position of a calendar day, if present.
func (d *DaySamples) Index(date time.Time) (int, bool) {
	i, ok := d.index[date.Format(dayLayout)]
	return i, ok
}

// Flatten concatenates every day in insertion order.
func (d *DaySamples) Flatten() VerificationSample {
	all := make([]int, len(d.days))
	for i := range all {
		all[i] = i
	}
	return d.Resample(all)
}

// Resample concatenates the records of the given day positions. A position
// listed twice contributes its records twice.
func (d *DaySamples) Resample(positions []int) VerificationSample {
	n := 0
	for _, p := range positions {
		n += d.days[p].Record.Len()
	}
	s := VerificationSample{
		MemberCount: make([]int, 0, n),
		ObsFlag:     make([]int, 0, n),
	}
	for _, p := range positions {
		rec := d.days[p].Record
		s.MemberCount = append(s.MemberCount, rec.MemberCount...)
		s.ObsFlag = append(s.ObsFlag, rec.ObsFlag...)
	}
	return s
}
