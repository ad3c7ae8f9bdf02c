package entity

import "time"

// ChangeRequest is an approver's structured ask for more documents or edits.
// At most one exists per request at a time; it is created when an approver
// requests changes and cleared exactly at the successful resubmission.
type ChangeRequest struct {
	RequiredDocs  []string  `json:"required_docs,omitempty"`
	RequiredEdits []string  `json:"required_edits,omitempty"`
	ApproverNote  string    `json:"approver_note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
