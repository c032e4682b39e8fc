package sentinel

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var (
	ErrInvalidDateRange    = errors.New("end date should be after start date")
	ErrIncompleteDateRange = errors.New("start and end dates are both required")
)

type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses two yyyy-MM-dd dates. It does not check ordering; call Validate.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(DateLayout, strings.TrimSpace(start))
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid start date %q, use YYYY-MM-DD: %w", start, err)
	}
	e, err := time.Parse(DateLayout, strings.TrimSpace(end))
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid end date %q, use YYYY-MM-DD: %w", end, err)
	}
	return DateRange{Start: s, End: e}, nil
}

func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return ErrIncompleteDateRange
	}
	if r.End.Before(r.Start) {
		return ErrInvalidDateRange
	}
	return nil
}

func (r DateRange) StartString() string { return r.Start.Format(DateLayout) }
func (r DateRange) EndString() string   { return r.End.Format(DateLayout) }

// Interval returns the request time range: start of the first day to end of the last.
func (r DateRange) Interval() (from, to string) {
	from = r.Start.Format(DateLayout) + "T00:00:00Z"
	to = r.End.Format(DateLayout) + "T23:59:59Z"
	return from, to
}
