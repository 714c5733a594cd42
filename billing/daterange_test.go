package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/practice-engine/billing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================
// Note: d, hourlyEngagement, projectEngagement and tl are defined in
// aggregate_test.go.

func mustResolve(t *testing.T, token billing.RangeToken, ref billing.Date) billing.DateRange {
	t.Helper()
	r, err := billing.ResolveRange(token, ref)
	require.NoError(t, err)
	return r
}

// =============================================================================
// TOKEN RESOLUTION
// =============================================================================

func TestResolveRange_All_IsUnbounded(t *testing.T) {
	r := mustResolve(t, billing.RangeAll, d(2025, time.May, 20))

	assert.True(t, r.Unbounded)
	assert.True(t, r.Contains(d(1987, time.July, 1)))
	assert.True(t, r.Contains(d(2999, time.December, 31)))
}

func TestResolveRange_CurrentYear(t *testing.T) {
	r := mustResolve(t, billing.RangeCurrentYear, d(2025, time.May, 20))

	assert.True(t, r.Period.Start.Equal(d(2025, time.January, 1)))
	assert.True(t, r.Period.End.Equal(d(2025, time.December, 31)))
}

func TestResolveRange_LastYear(t *testing.T) {
	r := mustResolve(t, billing.RangeLastYear, d(2025, time.May, 20))

	assert.True(t, r.Period.Start.Equal(d(2024, time.January, 1)))
	assert.True(t, r.Period.End.Equal(d(2024, time.December, 31)))
}

func TestResolveRange_Month_HandlesShortMonths(t *testing.T) {
	r := mustResolve(t, billing.RangeMonth, d(2024, time.February, 10))

	assert.True(t, r.Period.Start.Equal(d(2024, time.February, 1)))
	assert.True(t, r.Period.End.Equal(d(2024, time.February, 29)), "2024 is a leap year")
}

func TestResolveRange_Quarter(t *testing.T) {
	// GIVEN: Reference date May 20, 2025 (Q2)
	// THEN: The quarter spans April 1 - June 30 inclusive
	r := mustResolve(t, billing.RangeQuarter, d(2025, time.May, 20))

	assert.True(t, r.Period.Start.Equal(d(2025, time.April, 1)))
	assert.True(t, r.Period.End.Equal(d(2025, time.June, 30)))
	assert.True(t, r.Contains(d(2025, time.April, 1)), "start boundary is inclusive")
	assert.True(t, r.Contains(d(2025, time.June, 30)), "end boundary is inclusive")
	assert.False(t, r.Contains(d(2025, time.July, 1)))
}

func TestResolveRange_Quarter_StableWithinQuarter(t *testing.T) {
	// Any reference date inside a quarter resolves to the same bounds.
	a := mustResolve(t, billing.RangeQuarter, d(2025, time.April, 1))
	b := mustResolve(t, billing.RangeQuarter, d(2025, time.June, 30))

	assert.True(t, a.Period.Start.Equal(b.Period.Start))
	assert.True(t, a.Period.End.Equal(b.Period.End))
}

func TestResolveRange_Week_MondayThroughSunday(t *testing.T) {
	// May 21, 2025 is a Wednesday.
	r := mustResolve(t, billing.RangeWeek, d(2025, time.May, 21))

	assert.True(t, r.Period.Start.Equal(d(2025, time.May, 19)), "Monday")
	assert.True(t, r.Period.End.Equal(d(2025, time.May, 25)), "Sunday")
}

func TestResolveRange_Week_SundayBelongsToPrecedingWeek(t *testing.T) {
	// May 25, 2025 is a Sunday; ISO weeks end on Sunday.
	r := mustResolve(t, billing.RangeWeek, d(2025, time.May, 25))

	assert.True(t, r.Period.Start.Equal(d(2025, time.May, 19)))
	assert.True(t, r.Period.End.Equal(d(2025, time.May, 25)))
}

func TestResolveRange_RollingWindows(t *testing.T) {
	ref := d(2025, time.May, 20)

	r3 := mustResolve(t, billing.RangeLast3, ref)
	assert.True(t, r3.Period.Start.Equal(d(2025, time.February, 21)))
	assert.True(t, r3.Period.End.Equal(ref))

	r12 := mustResolve(t, billing.RangeLast12, ref)
	assert.True(t, r12.Period.Start.Equal(d(2024, time.May, 21)))
	assert.True(t, r12.Period.End.Equal(ref))
}

func TestResolveRange_ResolutionIsIdempotent(t *testing.T) {
	// Resolving twice with the same reference produces identical bounds;
	// nothing reads the wall clock.
	ref := d(2025, time.November, 3)
	for _, token := range []billing.RangeToken{
		billing.RangeCurrentYear, billing.RangeLastYear, billing.RangeMonth,
		billing.RangeQuarter, billing.RangeWeek, billing.RangeLast3,
		billing.RangeLast6, billing.RangeLast12,
	} {
		a := mustResolve(t, token, ref)
		b := mustResolve(t, token, ref)
		assert.Equal(t, a, b, "token %s", token)
	}
}

// =============================================================================
// ERROR PATHS
// =============================================================================

func TestResolveRange_UnknownToken_FailsLoudly(t *testing.T) {
	// Unknown tokens must never silently widen to "all time".
	_, err := billing.ResolveRange("lastt3", d(2025, time.May, 20))

	require.Error(t, err)
	assert.ErrorIs(t, err, billing.ErrUnknownRangeToken)
	var tokenErr *billing.UnknownRangeTokenError
	require.ErrorAs(t, err, &tokenErr)
	assert.Equal(t, "lastt3", tokenErr.Token)
}

func TestResolveRange_CustomToken_RequiresExplicitBounds(t *testing.T) {
	_, err := billing.ResolveRange(billing.RangeCustom, d(2025, time.May, 20))

	assert.ErrorIs(t, err, billing.ErrInvalidRange)
}

func TestResolveCustomRange_StartAfterEnd_Rejected(t *testing.T) {
	_, err := billing.ResolveCustomRange(d(2025, time.June, 1), d(2025, time.May, 1))

	require.Error(t, err)
	assert.ErrorIs(t, err, billing.ErrInvalidRange)
}

func TestResolveCustomRange_SingleDay_Valid(t *testing.T) {
	r, err := billing.ResolveCustomRange(d(2025, time.May, 1), d(2025, time.May, 1))

	require.NoError(t, err)
	assert.True(t, r.Contains(d(2025, time.May, 1)))
	assert.False(t, r.Contains(d(2025, time.May, 2)))
}
