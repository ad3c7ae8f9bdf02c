package entity

import "time"

// TimelineEntry is one record of the append-only audit trail attached to a
// request. Seq is the per-request insertion order and breaks ordering ties
// between entries with equal timestamps.
type TimelineEntry struct {
	ID        int64     `json:"id,omitempty"`
	RequestID string    `json:"request_id"`
	Seq       int       `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Rationale string    `json:"rationale,omitempty"`
	Severity  string    `json:"severity"`
}
