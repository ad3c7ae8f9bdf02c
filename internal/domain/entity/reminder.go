package entity

import "time"

// ReminderLog is one reminder send attempt. Entries are append-only; the
// status advances QUEUED -> SENT -> DELIVERED|FAILED as the provider reports.
type ReminderLog struct {
	ID         int64     `json:"id"`
	RequestID  string    `json:"request_id"`
	Channel    string    `json:"channel"`
	TargetRole string    `json:"target_role"`
	Status     string    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
