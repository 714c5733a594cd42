package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/warp/practice-engine/billing"
)

func TestParseBillingMode(t *testing.T) {
	mode, err := billing.ParseBillingMode("hourly")
	assert.NoError(t, err)
	assert.Equal(t, billing.ModeHourly, mode)

	mode, err = billing.ParseBillingMode("project")
	assert.NoError(t, err)
	assert.Equal(t, billing.ModeProject, mode)

	_, err = billing.ParseBillingMode("retainer")
	assert.ErrorIs(t, err, billing.ErrUnknownBillingMode)

	_, err = billing.ParseBillingMode("")
	assert.ErrorIs(t, err, billing.ErrUnknownBillingMode)
}

func TestEngagementValidate_ModeRateConsistency(t *testing.T) {
	start, end := d(2025, time.January, 1), d(2025, time.December, 31)

	assert.NoError(t, hourlyEngagement("eng-1", 100, start, end).Validate())
	assert.NoError(t, projectEngagement("eng-1", 12000, start, end).Validate())

	hourly := hourlyEngagement("eng-1", 100, start, end)
	hourly.HourlyRate = nil
	assert.ErrorIs(t, hourly.Validate(), billing.ErrMissingRate)

	project := projectEngagement("eng-1", 12000, start, end)
	project.TotalCost = nil
	assert.ErrorIs(t, project.Validate(), billing.ErrMissingRate)
}

func TestEngagementValidate_UnknownMode_Rejected(t *testing.T) {
	// A mode outside {hourly, project} must fail validation, never slip
	// through and get billed as hourly.
	e := hourlyEngagement("eng-1", 100, d(2025, time.January, 1), d(2025, time.December, 31))
	e.Mode = "retainer"

	assert.ErrorIs(t, e.Validate(), billing.ErrUnknownBillingMode)
}

func TestEngagementValidate_BackwardsDates_Rejected(t *testing.T) {
	e := hourlyEngagement("eng-1", 100, d(2025, time.December, 31), d(2025, time.January, 1))

	assert.ErrorIs(t, e.Validate(), billing.ErrInvalidRange)
}
