/*
daterange.go - Named range tokens to concrete date intervals

PURPOSE:
  Every filtering view (dashboard, engagements, invoices, time logs)
  translates the same set of filter tokens into date bounds. This is
  the single implementation; callers pass an explicit reference date
  so results are deterministic and testable.

TOKENS:
  all      Unbounded (sentinel, no absolute min/max dates)
  current  Jan 1 - Dec 31 of the reference year
  last     Jan 1 - Dec 31 of the prior year
  month    First - last day of the reference month
  quarter  First - last day of the 3-month quarter
  week     Monday - Sunday of the ISO week
  last3    Rolling 3-month window ending at the reference date
  last6    Rolling 6-month window ending at the reference date
  last12   Rolling 12-month window ending at the reference date
  custom   Caller-supplied bounds, validated start <= end

ERROR POLICY:
  Unknown tokens fail with UnknownRangeTokenError. The previous ad hoc
  fallback to "all" masked typos in callers and made three views
  disagree about what a filter meant.

SEE ALSO:
  - time.go: Date and Period primitives
  - errors.go: Range error types
*/
package billing

import (
	"fmt"
	"time"
)

// =============================================================================
// RANGE TOKENS
// =============================================================================

type RangeToken string

const (
	RangeAll         RangeToken = "all"
	RangeCurrentYear RangeToken = "current"
	RangeLastYear    RangeToken = "last"
	RangeMonth       RangeToken = "month"
	RangeQuarter     RangeToken = "quarter"
	RangeWeek        RangeToken = "week"
	RangeLast3       RangeToken = "last3"
	RangeLast6       RangeToken = "last6"
	RangeLast12      RangeToken = "last12"
	RangeCustom      RangeToken = "custom"
)

// DateRange is a resolved filter: either unbounded (no filtering) or a
// closed period. Unbounded is a sentinel rather than absolute min/max
// dates so stores can skip the predicate entirely.
type DateRange struct {
	Period    Period
	Unbounded bool
}

// Contains reports whether a date passes the filter.
func (r DateRange) Contains(d Date) bool {
	if r.Unbounded {
		return true
	}
	return r.Period.Contains(d)
}

// Unfiltered is the "all time" sentinel.
func Unfiltered() DateRange { return DateRange{Unbounded: true} }

// =============================================================================
// RESOLUTION
// =============================================================================

// ResolveRange turns a token plus a reference date into concrete bounds.
// All ranges are closed (inclusive of both boundary dates) and resolved
// relative to ref, never wall-clock "today". RangeCustom requires
// explicit bounds; use ResolveCustomRange.
func ResolveRange(token RangeToken, ref Date) (DateRange, error) {
	switch token {
	case RangeAll:
		return Unfiltered(), nil

	case RangeCurrentYear:
		return bounded(StartOfYear(ref.Year()), EndOfYear(ref.Year())), nil

	case RangeLastYear:
		return bounded(StartOfYear(ref.Year()-1), EndOfYear(ref.Year()-1)), nil

	case RangeMonth:
		return bounded(StartOfMonth(ref.Year(), ref.Month()), EndOfMonth(ref.Year(), ref.Month())), nil

	case RangeQuarter:
		qStart := quarterStartMonth(ref.Month())
		return bounded(StartOfMonth(ref.Year(), qStart), EndOfMonth(ref.Year(), qStart+2)), nil

	case RangeWeek:
		start := startOfISOWeek(ref)
		return bounded(start, start.AddDays(6)), nil

	case RangeLast3:
		return rolling(ref, 3), nil

	case RangeLast6:
		return rolling(ref, 6), nil

	case RangeLast12:
		return rolling(ref, 12), nil

	case RangeCustom:
		// Custom has no implied bounds; callers must supply them.
		return DateRange{}, fmt.Errorf("%w: custom token requires explicit bounds", ErrInvalidRange)
	}

	return DateRange{}, &UnknownRangeTokenError{Token: string(token)}
}

// ResolveCustomRange validates caller-supplied bounds and passes them
// through unchanged.
func ResolveCustomRange(start, end Date) (DateRange, error) {
	if start.After(end) {
		return DateRange{}, &InvalidRangeError{Start: start, End: end}
	}
	return bounded(start, end), nil
}

func bounded(start, end Date) DateRange {
	return DateRange{Period: Period{Start: start, End: end}}
}

// rolling returns the N-month window ending at ref: the day after
// ref minus N months, through ref.
func rolling(ref Date, months int) DateRange {
	return bounded(ref.AddMonths(-months).AddDays(1), ref)
}

func quarterStartMonth(m time.Month) time.Month {
	return time.Month((int(m)-1)/3*3 + 1)
}

// startOfISOWeek returns the Monday of the week containing d.
func startOfISOWeek(d Date) Date {
	wd := int(d.Time.Weekday())
	if wd == 0 {
		wd = 7 // Sunday is day 7 in ISO weeks
	}
	return d.AddDays(-(wd - 1))
}
