package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/practice-engine/billing"
	"github.com/warp/practice-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func d(year int, month time.Month, day int) billing.Date {
	return billing.NewDate(year, month, day)
}

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func seedClient(t *testing.T, store *sqlite.Store, id string) billing.Client {
	c := billing.Client{
		ID:   billing.ClientID(id),
		Name: "Acme Corp",
		Contact: billing.BillingContact{
			Name:  "Jamie Chen",
			Email: "jamie@acme.example",
			City:  "Lisbon",
		},
	}
	require.NoError(t, store.SaveClient(context.Background(), c))
	return c
}

func seedEngagement(t *testing.T, store *sqlite.Store, id, clientID string, start, end billing.Date) billing.Engagement {
	rate := dec(100)
	e := billing.Engagement{
		ID:          billing.EngagementID(id),
		ClientID:    billing.ClientID(clientID),
		ProjectName: "Platform Migration",
		StartDate:   start,
		EndDate:     end,
		Mode:        billing.ModeHourly,
		HourlyRate:  &rate,
	}
	require.NoError(t, store.SaveEngagement(context.Background(), e))
	return e
}

func seedTimeLog(t *testing.T, store *sqlite.Store, id, engagementID string, date billing.Date, hours float64) billing.TimeLog {
	log := billing.TimeLog{
		ID:           billing.TimeLogID(id),
		EngagementID: billing.EngagementID(engagementID),
		Date:         date,
		Hours:        dec(hours),
	}
	require.NoError(t, store.SaveTimeLog(context.Background(), log))
	return log
}

func testInvoice(id, number, clientID, engagementID string, period billing.Period, issued billing.Date) billing.Invoice {
	return billing.Invoice{
		ID:           billing.InvoiceID(id),
		ClientID:     billing.ClientID(clientID),
		EngagementID: billing.EngagementID(engagementID),
		Number:       number,
		IssueDate:    issued,
		DueDate:      issued.AddDays(30),
		NetTermsDays: 30,
		Period:       period,
		Status:       billing.InvoicePending,
		LineItems: []billing.LineItem{
			{TimeLogID: "log-1", Date: period.Start, Hours: dec(3), UnitRate: dec(100), Amount: dec(300)},
			{TimeLogID: "log-2", Date: period.End, Hours: dec(4), UnitRate: dec(100), Amount: dec(400)},
		},
	}
}

// =============================================================================
// CLIENT AND ENGAGEMENT ROUNDTRIPS
// =============================================================================

func TestClient_SaveGetRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedClient(t, store, "client-1")

	got, err := store.GetClient(ctx, "client-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Acme Corp", got.Name)
	assert.Equal(t, "jamie@acme.example", got.Contact.Email)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestClient_GetMissing_ReturnsNil(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetClient(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClient_DeleteBlockedByActiveEngagement(t *testing.T) {
	// GIVEN: A client with an engagement active as of now
	// THEN: Deletion fails; it succeeds once the engagement is completed

	store := newTestStore(t)
	ctx := context.Background()
	seedClient(t, store, "client-1")
	seedEngagement(t, store, "eng-1", "client-1", d(2025, time.January, 1), d(2025, time.December, 31))

	err := store.DeleteClient(ctx, "client-1", d(2025, time.June, 1))
	assert.ErrorIs(t, err, billing.ErrClientHasActiveEngagements)

	got, err := store.GetClient(ctx, "client-1")
	require.NoError(t, err)
	assert.NotNil(t, got, "blocked delete leaves the client in place")

	// After the engagement's end the same delete goes through.
	err = store.DeleteClient(ctx, "client-1", d(2026, time.June, 1))
	assert.NoError(t, err)
}

func TestClient_DeleteTakesCompletedRecordsAlong(t *testing.T) {
	// GIVEN: A client whose only engagement is completed, with a time
	//        log and an invoice under it
	// WHEN: Deleting the client after the engagement's end
	// THEN: The client and its whole subtree are gone

	store := newTestStore(t)
	ctx := context.Background()
	seedClient(t, store, "client-1")
	seedEngagement(t, store, "eng-1", "client-1", d(2025, time.January, 1), d(2025, time.June, 30))
	seedTimeLog(t, store, "log-1", "eng-1", d(2025, time.May, 5), 3)

	period := billing.Period{Start: d(2025, time.May, 1), End: d(2025, time.May, 31)}
	inv := testInvoice("inv-1", "INV-2025-0001", "client-1", "eng-1", period, d(2025, time.June, 2))
	require.NoError(t, store.SaveInvoice(ctx, inv))

	require.NoError(t, store.DeleteClient(ctx, "client-1", d(2026, time.June, 1)))

	client, err := store.GetClient(ctx, "client-1")
	require.NoError(t, err)
	assert.Nil(t, client)

	engagement, err := store.GetEngagement(ctx, "eng-1")
	require.NoError(t, err)
	assert.Nil(t, engagement)

	log, err := store.GetTimeLog(ctx, "log-1")
	require.NoError(t, err)
	assert.Nil(t, log)

	invoice, err := store.GetInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Nil(t, invoice)
}

func TestEngagement_RoundtripPreservesRates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedClient(t, store, "client-1")

	rate := dec(137.50)
	e := billing.Engagement{
		ID:          "eng-1",
		ClientID:    "client-1",
		ProjectName: "Data Pipeline",
		StartDate:   d(2025, time.March, 1),
		EndDate:     d(2025, time.September, 30),
		Mode:        billing.ModeHourly,
		HourlyRate:  &rate,
	}
	require.NoError(t, store.SaveEngagement(ctx, e))

	got, err := store.GetEngagement(ctx, "eng-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.HourlyRate)
	assert.True(t, got.HourlyRate.Equal(dec(137.50)), "decimal survives the string roundtrip")
	assert.Nil(t, got.TotalCost)
}

func TestEngagement_SaveValidatesModeRates(t *testing.T) {
	store := newTestStore(t)
	seedClient(t, store, "client-1")

	e := billing.Engagement{
		ID:          "eng-1",
		ClientID:    "client-1",
		ProjectName: "Broken",
		StartDate:   d(2025, time.March, 1),
		EndDate:     d(2025, time.September, 30),
		Mode:        billing.ModeHourly, // no rate
	}

	err := store.SaveEngagement(context.Background(), e)
	assert.ErrorIs(t, err, billing.ErrMissingRate)
}

func TestEngagement_DeleteBlockedByRecords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedClient(t, store, "client-1")
	seedEngagement(t, store, "eng-1", "client-1", d(2025, time.January, 1), d(2025, time.December, 31))
	seedTimeLog(t, store, "log-1", "eng-1", d(2025, time.May, 5), 3)

	err := store.DeleteEngagement(ctx, "eng-1")
	assert.ErrorIs(t, err, billing.ErrEngagementHasRecords)

	require.NoError(t, store.DeleteTimeLog(ctx, "log-1"))
	assert.NoError(t, store.DeleteEngagement(ctx, "eng-1"))
}

// =============================================================================
// TIME LOGS
// =============================================================================

func TestTimeLog_EngagementImmutableOnUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedClient(t, store, "client-1")
	seedEngagement(t, store, "eng-1", "client-1", d(2025, time.January, 1), d(2025, time.December, 31))
	seedEngagement(t, store, "eng-2", "client-1", d(2025, time.January, 1), d(2025, time.December, 31))
	log := seedTimeLog(t, store, "log-1", "eng-1", d(2025, time.May, 5), 3)

	// Attempt to move the log to another engagement.
	log.EngagementID = "eng-2"
	log.Hours = dec(4)
	require.NoError(t, store.SaveTimeLog(ctx, log))

	got, err := store.GetTimeLog(ctx, "log-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, billing.EngagementID("eng-1"), got.EngagementID, "engagement reference is immutable")
	assert.True(t, got.Hours.Equal(dec(4)), "hours do update")
}

func TestTimeLog_SaveRejectsOutOfRangeHours(t *testing.T) {
	store := newTestStore(t)
	seedClient(t, store, "client-1")
	seedEngagement(t, store, "eng-1", "client-1", d(2025, time.January, 1), d(2025, time.December, 31))

	log := billing.TimeLog{ID: "log-1", EngagementID: "eng-1", Date: d(2025, time.May, 5), Hours: dec(9)}
	err := store.SaveTimeLog(context.Background(), log)

	assert.ErrorIs(t, err, billing.ErrHoursOutOfRange)
}

func TestTimeLog_ListFiltersByEngagementAndRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedClient(t, store, "client-1")
	seedEngagement(t, store, "eng-1", "client-1", d(2025, time.January, 1), d(2025, time.December, 31))
	seedEngagement(t, store, "eng-2", "client-1", d(2025, time.January, 1), d(2025, time.December, 31))
	seedTimeLog(t, store, "log-1", "eng-1", d(2025, time.May, 5), 3)
	seedTimeLog(t, store, "log-2", "eng-1", d(2025, time.June, 5), 4)
	seedTimeLog(t, store, "log-3", "eng-2", d(2025, time.May, 6), 5)

	engID := billing.EngagementID("eng-1")
	dateRange, err := billing.ResolveCustomRange(d(2025, time.May, 1), d(2025, time.May, 31))
	require.NoError(t, err)

	logs, err := store.ListTimeLogs(ctx, billing.TimeLogFilter{EngagementID: &engID, Range: &dateRange})
	require.NoError(t, err)

	require.Len(t, logs, 1)
	assert.Equal(t, billing.TimeLogID("log-1"), logs[0].ID)
}

// =============================================================================
// INVOICES
// =============================================================================

func TestInvoice_SaveRecomputesTotalsFromLineItems(t *testing.T) {
	// GIVEN: An invoice whose caller-supplied totals are wrong
	// THEN: The store persists totals derived from the line items

	store := newTestStore(t)
	ctx := context.Background()
	seedClient(t, store, "client-1")
	seedEngagement(t, store, "eng-1", "client-1", d(2025, time.January, 1), d(2025, time.December, 31))

	period := billing.Period{Start: d(2025, time.May, 1), End: d(2025, time.May, 31)}
	inv := testInvoice("inv-1", "INV-2025-0001", "client-1", "eng-1", period, d(2025, time.June, 2))
	inv.TotalHours = dec(999)
	inv.TotalAmount = dec(999999)

	require.NoError(t, store.SaveInvoice(ctx, inv))

	got, err := store.GetInvoice(ctx, "inv-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.TotalHours.Equal(dec(7)), "got %s", got.TotalHours)
	assert.True(t, got.TotalAmount.Equal(dec(700)), "got %s", got.TotalAmount)
	require.Len(t, got.LineItems, 2)
	assert.Equal(t, billing.TimeLogID("log-1"), got.LineItems[0].TimeLogID, "order preserved")
}

func TestInvoice_DuplicatePeriodForEngagement_Conflicts(t *testing.T) {
	// The unique index backstops the in-process guard: a second invoice
	// for the same (engagement, period) is a conflict, not an overwrite.
	store := newTestStore(t)
	ctx := context.Background()
	seedClient(t, store, "client-1")
	seedEngagement(t, store, "eng-1", "client-1", d(2025, time.January, 1), d(2025, time.December, 31))

	period := billing.Period{Start: d(2025, time.May, 1), End: d(2025, time.May, 31)}
	first := testInvoice("inv-1", "INV-2025-0001", "client-1", "eng-1", period, d(2025, time.June, 2))
	require.NoError(t, store.SaveInvoice(ctx, first))

	second := testInvoice("inv-2", "INV-2025-0002", "client-1", "eng-1", period, d(2025, time.June, 3))
	err := store.SaveInvoice(ctx, second)

	require.Error(t, err)
	assert.ErrorIs(t, err, billing.ErrConcurrentAggregation)
}

func TestInvoice_DuplicateNumber_RetryableConflict(t *testing.T) {
	// Two generations for different engagements can read the same
	// sequence value; the loser gets a retryable error, not a plain
	// failure.
	store := newTestStore(t)
	ctx := context.Background()
	seedClient(t, store, "client-1")
	seedEngagement(t, store, "eng-1", "client-1", d(2025, time.January, 1), d(2025, time.December, 31))
	seedEngagement(t, store, "eng-2", "client-1", d(2025, time.January, 1), d(2025, time.December, 31))

	period := billing.Period{Start: d(2025, time.May, 1), End: d(2025, time.May, 31)}
	first := testInvoice("inv-1", "INV-2025-0001", "client-1", "eng-1", period, d(2025, time.June, 2))
	require.NoError(t, store.SaveInvoice(ctx, first))

	second := testInvoice("inv-2", "INV-2025-0001", "client-1", "eng-2", period, d(2025, time.June, 2))
	err := store.SaveInvoice(ctx, second)

	require.Error(t, err)
	assert.ErrorIs(t, err, billing.ErrDuplicateInvoiceNumber)
	assert.True(t, billing.IsRetryable(err))
}

func TestInvoice_StatusUpdatePersists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedClient(t, store, "client-1")
	seedEngagement(t, store, "eng-1", "client-1", d(2025, time.January, 1), d(2025, time.December, 31))

	period := billing.Period{Start: d(2025, time.May, 1), End: d(2025, time.May, 31)}
	inv := testInvoice("inv-1", "INV-2025-0001", "client-1", "eng-1", period, d(2025, time.June, 2))
	require.NoError(t, store.SaveInvoice(ctx, inv))

	at := time.Date(2025, time.June, 10, 14, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpdateInvoiceStatus(ctx, "inv-1", billing.InvoicePaid, at))

	got, err := store.GetInvoice(ctx, "inv-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, billing.InvoicePaid, got.Status)
	assert.Equal(t, at, got.LastStatusChangeAt.UTC())
}

func TestInvoice_DeleteLeavesTimeLogs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedClient(t, store, "client-1")
	seedEngagement(t, store, "eng-1", "client-1", d(2025, time.January, 1), d(2025, time.December, 31))
	seedTimeLog(t, store, "log-1", "eng-1", d(2025, time.May, 5), 3)

	period := billing.Period{Start: d(2025, time.May, 1), End: d(2025, time.May, 31)}
	inv := testInvoice("inv-1", "INV-2025-0001", "client-1", "eng-1", period, d(2025, time.June, 2))
	require.NoError(t, store.SaveInvoice(ctx, inv))

	require.NoError(t, store.DeleteInvoice(ctx, "inv-1"))

	gone, err := store.GetInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Nil(t, gone)

	log, err := store.GetTimeLog(ctx, "log-1")
	require.NoError(t, err)
	assert.NotNil(t, log, "line items back-reference logs non-owningly")
}

func TestNextInvoiceNumber_SequentialPerYear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedClient(t, store, "client-1")
	seedEngagement(t, store, "eng-1", "client-1", d(2025, time.January, 1), d(2025, time.December, 31))

	number, err := store.NextInvoiceNumber(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-0001", number)

	period := billing.Period{Start: d(2025, time.May, 1), End: d(2025, time.May, 31)}
	inv := testInvoice("inv-1", number, "client-1", "eng-1", period, d(2025, time.June, 2))
	require.NoError(t, store.SaveInvoice(ctx, inv))

	number, err = store.NextInvoiceNumber(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-0002", number)

	// A different year starts its own sequence.
	number, err = store.NextInvoiceNumber(ctx, 2026)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-0001", number)
}

// =============================================================================
// AGGREGATION GUARD
// =============================================================================

func TestAcquireAggregation_SerializesPerKey(t *testing.T) {
	store := newTestStore(t)
	period := billing.Period{Start: d(2025, time.May, 1), End: d(2025, time.May, 31)}

	release, err := store.AcquireAggregation("eng-1", period)
	require.NoError(t, err)

	// Same key while held: conflict.
	_, err = store.AcquireAggregation("eng-1", period)
	assert.ErrorIs(t, err, billing.ErrConcurrentAggregation)

	// Different engagement or period: independent keys.
	otherRelease, err := store.AcquireAggregation("eng-2", period)
	require.NoError(t, err)
	otherRelease()

	junePeriod := billing.Period{Start: d(2025, time.June, 1), End: d(2025, time.June, 30)}
	juneRelease, err := store.AcquireAggregation("eng-1", junePeriod)
	require.NoError(t, err)
	juneRelease()

	// Released keys can be re-acquired.
	release()
	again, err := store.AcquireAggregation("eng-1", period)
	require.NoError(t, err)
	again()
}
