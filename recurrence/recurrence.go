package recurrence

import (
	"fmt"
	"time"
)

// Interval types supported by schedule rules.
const (
	IntervalDaily   = "daily"
	IntervalWeekly  = "weekly"
	IntervalMonthly = "monthly"
	IntervalYearly  = "yearly"
)

// Rule describes a recurrence: every IntervalValue units of IntervalType,
// starting at StartDate. A nil EndDate means the rule never expires.
type Rule struct {
	IntervalType  string
	IntervalValue int
	StartDate     time.Time
	EndDate       *time.Time
}

// Validate checks the rule invariants.
func (r Rule) Validate() error {
	switch r.IntervalType {
	case IntervalDaily, IntervalWeekly, IntervalMonthly, IntervalYearly:
	default:
		return fmt.Errorf("unknown interval type %q", r.IntervalType)
	}
	if r.IntervalValue < 1 {
		return fmt.Errorf("interval value must be >= 1, got %d", r.IntervalValue)
	}
	if r.StartDate.IsZero() {
		return fmt.Errorf("start date is required")
	}
	if r.EndDate != nil && DateOnly(*r.EndDate).Before(DateOnly(r.StartDate)) {
		return fmt.Errorf("end date %s is before start date %s",
			r.EndDate.Format("2006-01-02"), r.StartDate.Format("2006-01-02"))
	}
	return nil
}

// DateOnly truncates t to midnight UTC. All occurrence math works on
// whole days; times of day on stored dates are ignored.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NextOccurrence returns the smallest occurrence date strictly after
// "after" that is reachable from the rule's start date, or false when
// the rule is exhausted (the candidate would fall past EndDate).
//
// When "after" precedes the start date the first occurrence is the
// start date itself, so a freshly created schedule fires on StartDate.
//
// Monthly and yearly steps keep the start date's day-of-month as the
// anchor and clamp to the last day of shorter months: a rule anchored
// on Jan 31 yields Feb 29 (leap year) and then Mar 31, never Mar 2.
func NextOccurrence(r Rule, after time.Time) (time.Time, bool) {
	start := DateOnly(r.StartDate)
	after = DateOnly(after)

	var next time.Time
	if after.Before(start) {
		next = start
	} else {
		next = occurrenceAfter(r, start, after)
	}

	if r.EndDate != nil && next.After(DateOnly(*r.EndDate)) {
		return time.Time{}, false
	}
	return next, true
}

// occurrenceAfter finds the first occurrence strictly after "after",
// where after >= start.
func occurrenceAfter(r Rule, start, after time.Time) time.Time {
	switch r.IntervalType {
	case IntervalDaily, IntervalWeekly:
		stepDays := r.IntervalValue
		if r.IntervalType == IntervalWeekly {
			stepDays *= 7
		}
		elapsed := int(after.Sub(start).Hours() / 24)
		k := elapsed/stepDays + 1
		return start.AddDate(0, 0, k*stepDays)

	case IntervalMonthly, IntervalYearly:
		stepMonths := r.IntervalValue
		if r.IntervalType == IntervalYearly {
			stepMonths *= 12
		}
		// Estimate the step count from calendar months elapsed, then
		// walk forward past any clamping artifacts. At most two extra
		// iterations are ever needed.
		elapsed := monthsBetween(start, after)
		k := elapsed / stepMonths
		if k < 0 {
			k = 0
		}
		for {
			candidate := addMonthsClamped(start, k*stepMonths)
			if candidate.After(after) {
				return candidate
			}
			k++
		}
	}
	// Unreachable for validated rules.
	return start
}

func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// addMonthsClamped adds months to anchor, clamping the anchor's day to
// the last day of the target month instead of letting it roll over.
func addMonthsClamped(anchor time.Time, months int) time.Time {
	y, m, d := anchor.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	if last := lastDayOfMonth(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

func lastDayOfMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
