package entity

import (
	"time"
)

// ApprovalRequest is the canonical record of a spend event requiring sign-off.
// Amounts are stored in minor units (e.g. cents) to avoid floating rounding.
type ApprovalRequest struct {
	ID     string `json:"id"`
	OrgID  string `json:"org_id"`
	Module string `json:"module"`
	Title  string `json:"title"`

	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	Vendor      string `json:"vendor,omitempty"`
	Category    string `json:"category,omitempty"`

	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	DueAt     time.Time `json:"due_at"`
	ExpiresAt time.Time `json:"expires_at"`

	TriggeredRuleID string      `json:"triggered_rule_id,omitempty"`
	Route           []RouteStep `json:"route,omitempty"`
	SLAHours        int         `json:"sla_hours"`

	RequiredAttachments []string     `json:"required_attachments,omitempty"`
	Attachments         []Attachment `json:"attachments,omitempty"`
	Note                string       `json:"note,omitempty"`
	NoteRequired        bool         `json:"note_required"`

	DelegateAllowed bool        `json:"delegate_allowed"`
	Delegation      *Delegation `json:"delegation,omitempty"`

	CommentsVisible bool `json:"comments_visible"`

	// ChangeRequest is present only while the request is in NEEDS_CHANGES
	ChangeRequest *ChangeRequest `json:"change_request,omitempty"`

	// Timeline is the append-only audit trail, ordered by timestamp then seq
	Timeline []TimelineEntry `json:"timeline,omitempty"`

	// Version guards optimistic concurrency on mutations
	Version int64 `json:"version"`
}

// RouteStep is one step of the routing chain decided at creation time.
// Delegation never changes the step's nominal role.
type RouteStep struct {
	Step           int    `json:"step"`
	Role           string `json:"role"`
	TargetSLAHours int    `json:"target_sla_hours,omitempty"`
}

// Attachment is an uploaded document reference. The engine never reads the
// document content; it matches names against requirements.
type Attachment struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Delegation records a redirect of the current routing step's decision
// authority to an alternate approver.
type Delegation struct {
	DelegateID string `json:"delegate_id"`
	Reason     string `json:"reason"`
}
