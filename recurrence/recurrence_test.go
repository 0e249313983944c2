package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestValidate(t *testing.T) {
	end := date(2024, time.January, 1)

	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{
			name: "Valid Monthly",
			rule: Rule{IntervalType: IntervalMonthly, IntervalValue: 1, StartDate: date(2024, time.January, 1)},
		},
		{
			name:    "Unknown Interval Type",
			rule:    Rule{IntervalType: "fortnightly", IntervalValue: 1, StartDate: date(2024, time.January, 1)},
			wantErr: true,
		},
		{
			name:    "Zero Interval Value",
			rule:    Rule{IntervalType: IntervalDaily, IntervalValue: 0, StartDate: date(2024, time.January, 1)},
			wantErr: true,
		},
		{
			name:    "Missing Start Date",
			rule:    Rule{IntervalType: IntervalDaily, IntervalValue: 1},
			wantErr: true,
		},
		{
			name:    "End Before Start",
			rule:    Rule{IntervalType: IntervalDaily, IntervalValue: 1, StartDate: date(2024, time.February, 1), EndDate: &end},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNextOccurrence_FirstFiringIsStartDate(t *testing.T) {
	rule := Rule{IntervalType: IntervalMonthly, IntervalValue: 1, StartDate: date(2024, time.March, 15)}

	next, ok := NextOccurrence(rule, date(2024, time.January, 1))
	require.True(t, ok)
	assert.Equal(t, date(2024, time.March, 15), next)
}

func TestNextOccurrence_DailyAndWeekly(t *testing.T) {
	tests := []struct {
		name  string
		rule  Rule
		after time.Time
		want  time.Time
	}{
		{
			name:  "Daily Every 3 Days",
			rule:  Rule{IntervalType: IntervalDaily, IntervalValue: 3, StartDate: date(2024, time.January, 1)},
			after: date(2024, time.January, 1),
			want:  date(2024, time.January, 4),
		},
		{
			name:  "Daily Off-Grid Reference",
			rule:  Rule{IntervalType: IntervalDaily, IntervalValue: 3, StartDate: date(2024, time.January, 1)},
			after: date(2024, time.January, 5),
			want:  date(2024, time.January, 7),
		},
		{
			name:  "Biweekly",
			rule:  Rule{IntervalType: IntervalWeekly, IntervalValue: 2, StartDate: date(2024, time.January, 1)},
			after: date(2024, time.January, 15),
			want:  date(2024, time.January, 29),
		},
		{
			name:  "Weekly Crossing Month Boundary",
			rule:  Rule{IntervalType: IntervalWeekly, IntervalValue: 1, StartDate: date(2024, time.January, 29)},
			after: date(2024, time.January, 29),
			want:  date(2024, time.February, 5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, ok := NextOccurrence(tt.rule, tt.after)
			require.True(t, ok)
			assert.Equal(t, tt.want, next)
		})
	}
}

func TestNextOccurrence_MonthEndClamp(t *testing.T) {
	rule := Rule{IntervalType: IntervalMonthly, IntervalValue: 1, StartDate: date(2024, time.January, 31)}

	// 2024 is a leap year: Jan 31 -> Feb 29, not Mar 2.
	next, ok := NextOccurrence(rule, date(2024, time.January, 31))
	require.True(t, ok)
	assert.Equal(t, date(2024, time.February, 29), next)

	// The anchor day is preserved, so the clamp does not stick: Feb 29 -> Mar 31.
	next, ok = NextOccurrence(rule, next)
	require.True(t, ok)
	assert.Equal(t, date(2024, time.March, 31), next)

	// Non-leap February clamps to the 28th.
	next, ok = NextOccurrence(rule, date(2025, time.January, 31))
	require.True(t, ok)
	assert.Equal(t, date(2025, time.February, 28), next)
}

func TestNextOccurrence_YearlyLeapDay(t *testing.T) {
	rule := Rule{IntervalType: IntervalYearly, IntervalValue: 1, StartDate: date(2024, time.February, 29)}

	next, ok := NextOccurrence(rule, date(2024, time.February, 29))
	require.True(t, ok)
	assert.Equal(t, date(2025, time.February, 28), next)

	// Four years on, Feb 29 exists again.
	next, ok = NextOccurrence(rule, date(2027, time.December, 31))
	require.True(t, ok)
	assert.Equal(t, date(2028, time.February, 29), next)
}

func TestNextOccurrence_EndDateExhaustion(t *testing.T) {
	end := date(2024, time.February, 15)
	rule := Rule{IntervalType: IntervalMonthly, IntervalValue: 1, StartDate: date(2024, time.January, 1), EndDate: &end}

	next, ok := NextOccurrence(rule, date(2024, time.January, 1))
	require.True(t, ok)
	assert.Equal(t, date(2024, time.February, 1), next)

	// 2024-03-01 would exceed the end date.
	_, ok = NextOccurrence(rule, next)
	assert.False(t, ok)
}

func TestNextOccurrence_Monotonic(t *testing.T) {
	rules := []Rule{
		{IntervalType: IntervalDaily, IntervalValue: 1, StartDate: date(2023, time.June, 10)},
		{IntervalType: IntervalWeekly, IntervalValue: 3, StartDate: date(2023, time.June, 10)},
		{IntervalType: IntervalMonthly, IntervalValue: 2, StartDate: date(2023, time.January, 31)},
		{IntervalType: IntervalYearly, IntervalValue: 1, StartDate: date(2020, time.February, 29)},
	}

	for _, rule := range rules {
		cursor := rule.StartDate.AddDate(0, 0, -1)
		for i := 0; i < 50; i++ {
			next, ok := NextOccurrence(rule, cursor)
			require.True(t, ok)
			require.True(t, next.After(cursor),
				"rule %s/%d: %s is not after %s", rule.IntervalType, rule.IntervalValue, next, cursor)
			cursor = next
		}
	}
}

func TestNextOccurrence_IgnoresTimeOfDay(t *testing.T) {
	rule := Rule{IntervalType: IntervalDaily, IntervalValue: 1, StartDate: date(2024, time.May, 1)}

	next, ok := NextOccurrence(rule, time.Date(2024, time.May, 1, 18, 30, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, date(2024, time.May, 2), next)
}
