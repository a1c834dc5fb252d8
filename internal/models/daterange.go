package models

import (
	"time"

	apperr "github.com/johnayoung/go-ohlcv-fetcher/internal/errors"
)

// DateLayout is the calendar date format accepted from the user.
const DateLayout = "2006-01-02"

// DateRange is a pair of calendar dates, both inclusive, in UTC.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange truncates both times to UTC midnight.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: truncateDay(start), End: truncateDay(end)}
}

// ParseDateRange parses two YYYY-MM-DD dates and validates the result.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.ParseInLocation(DateLayout, start, time.UTC)
	if err != nil {
		return DateRange{}, apperr.Validation("start", "invalid date format, use YYYY-MM-DD")
	}
	e, err := time.ParseInLocation(DateLayout, end, time.UTC)
	if err != nil {
		return DateRange{}, apperr.Validation("end", "invalid date format, use YYYY-MM-DD")
	}

	r := DateRange{Start: s, End: e}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// Validate checks that both dates are set and start is not after end.
func (r DateRange) Validate() error {
	if r.Start.IsZero() {
		return apperr.Validation("start", "start date is required")
	}
	if r.End.IsZero() {
		return apperr.Validation("end", "end date is required")
	}
	if r.Start.After(r.End) {
		return apperr.Validation("end", "start date cannot be after end date")
	}
	return nil
}

// Bounds returns the first and last second covered by the range:
// Start at 00:00:00 and End at 23:59:59 UTC.
func (r DateRange) Bounds() (time.Time, time.Time) {
	start := truncateDay(r.Start)
	end := truncateDay(r.End).Add(24*time.Hour - time.Second)
	return start, end
}

// Days returns the number of calendar days in the range.
func (r DateRange) Days() int {
	if r.Start.After(r.End) {
		return 0
	}
	return int(truncateDay(r.End).Sub(truncateDay(r.Start))/(24*time.Hour)) + 1
}

// String formats the range as "YYYY-MM-DD..YYYY-MM-DD".
func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
