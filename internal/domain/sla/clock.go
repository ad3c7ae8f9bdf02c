// Package sla computes the time budget of an approval request: the due
// timestamp from the policy-configured hours, and the expiry timestamp an
// additional grace window beyond it.
package sla

import "time"

// DefaultExpiryGrace is the window beyond dueAt before a request expires
const DefaultExpiryGrace = 24 * time.Hour

// Window holds the derived deadlines of one SLA cycle
type Window struct {
	DueAt     time.Time
	ExpiresAt time.Time
}

// Compute derives the SLA window from a start instant (creation or
// resubmission) and the rule's SLA hours. A non-positive grace falls back to
// DefaultExpiryGrace. DueAt <= ExpiresAt always holds.
func Compute(start time.Time, slaHours int, grace time.Duration) Window {
	if grace <= 0 {
		grace = DefaultExpiryGrace
	}

	due := start.Add(time.Duration(slaHours) * time.Hour)
	return Window{
		DueAt:     due,
		ExpiresAt: due.Add(grace),
	}
}

// Overdue reports whether the decision deadline has passed
func (w Window) Overdue(now time.Time) bool {
	return now.After(w.DueAt)
}

// Expired reports whether the expiry deadline has passed
func (w Window) Expired(now time.Time) bool {
	return now.After(w.ExpiresAt)
}
