package billing

// =============================================================================
// ENGAGEMENT STATUS - Always derived, never stored
// =============================================================================

// EngagementStatus is an engagement's lifecycle position relative to a
// reference date. The passage of time alone changes it, so it must be
// recomputed on every read; any persisted status column is at best a
// cache and never authoritative.
type EngagementStatus string

const (
	StatusUpcoming  EngagementStatus = "upcoming"
	StatusActive    EngagementStatus = "active"
	StatusCompleted EngagementStatus = "completed"
)

// ResolveStatus derives the status from the engagement dates and now.
// First match wins: now < start -> upcoming; now > end -> completed;
// otherwise active. Boundary dates are inclusive of active.
func ResolveStatus(start, end, now Date) EngagementStatus {
	if now.Before(start) {
		return StatusUpcoming
	}
	if now.After(end) {
		return StatusCompleted
	}
	return StatusActive
}

// Status derives the engagement's status as of now.
func (e Engagement) Status(now Date) EngagementStatus {
	return ResolveStatus(e.StartDate, e.EndDate, now)
}
