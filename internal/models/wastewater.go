package models

import (
	"encoding/json"
	"time"
)

// Source column names as they appear in the published surveillance files
const (
	ColumnFacility        = "wrrf_name"
	ColumnSampleDate      = "sample_date"
	ColumnPerCapitaLoad   = "Per capita load (N1 copies per day per population)"
	ColumnPositivityDate  = "DATE"
	ColumnPercentPositive = "PERCENT_POSITIVE"
)

// DateLayout is the only date format accepted at the UI boundary
const DateLayout = "2006-01-02"

// WastewaterRecord represents a single wastewater sample for one facility.
// The interpolated and raw tables share this schema.
type WastewaterRecord struct {
	FacilityName  string            `json:"facility_name" db:"wrrf_name"`
	SampleDate    time.Time         `json:"sample_date" db:"sample_date"`
	PerCapitaLoad *float64          `json:"per_capita_load" db:"per_capita_load"`
	Extra         map[string]string `json:"extra,omitempty" db:"-"`
}

// PositivityRecord represents the clinical test positivity for one day
type PositivityRecord struct {
	Date            time.Time `json:"date" db:"date"`
	PercentPositive *float64  `json:"percent_positive" db:"percent_positive"`
}

// DateRange is an inclusive calendar-date interval.
// An inverted range (Start after End) contains no dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange truncates both ends to calendar dates in UTC
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: TruncateDate(start), End: TruncateDate(end)}
}

// Contains reports whether start <= t <= end
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Valid reports whether the range contains at least one date
func (r DateRange) Valid() bool {
	return !r.Start.After(r.End)
}

// Days returns the number of calendar days covered, zero for an inverted range
func (r DateRange) Days() int {
	if !r.Valid() {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Intersect returns the overlap of two ranges. The result is inverted when
// the ranges do not overlap; callers must check Valid.
func (r DateRange) Intersect(other DateRange) DateRange {
	out := r
	if other.Start.After(out.Start) {
		out.Start = other.Start
	}
	if other.End.Before(out.End) {
		out.End = other.End
	}
	return out
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

type dateRangeJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// MarshalJSON renders both ends in DateLayout
func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(dateRangeJSON{
		Start: r.Start.Format(DateLayout),
		End:   r.End.Format(DateLayout),
	})
}

// ParseDate parses a UI date in DateLayout. There is no fallback format.
func ParseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, &DateParseError{Field: field, Value: value, Err: err}
	}
	return t, nil
}

// TruncateDate drops the time-of-day part and normalizes to UTC
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
