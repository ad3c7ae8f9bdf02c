package policy

import (
	"fmt"
	"strings"

	"github.com/corporatepay/approval-engine/internal/domain/entity"
)

const (
	// NoteMinLen is the minimum length of a mandatory submission note
	NoteMinLen = 10

	// DelegationReasonMinLen is the minimum length of a delegation reason
	DelegationReasonMinLen = 10
)

// ReadyCheck is the result of submit gating: Ready with no reasons, or
// blocked with every reason enumerated so callers can explain the block.
type ReadyCheck struct {
	Ready   bool     `json:"ready"`
	Reasons []string `json:"reasons,omitempty"`
}

// CheckReady evaluates the submit gate for a request. Blocked if any required
// attachment is missing, the mandatory note is under the minimum length, or
// delegation is enabled but incomplete.
func CheckReady(req *entity.ApprovalRequest) ReadyCheck {
	reasons := make([]string, 0)

	for _, name := range MissingDocs(req.RequiredAttachments, req.Attachments) {
		reasons = append(reasons, fmt.Sprintf("missing required attachment: %s", name))
	}

	if req.NoteRequired && len(strings.TrimSpace(req.Note)) < NoteMinLen {
		reasons = append(reasons, fmt.Sprintf("note is required with at least %d characters", NoteMinLen))
	}

	if req.Delegation != nil {
		reasons = append(reasons, checkDelegation(req)...)
	}

	return ReadyCheck{Ready: len(reasons) == 0, Reasons: reasons}
}

// CheckResubmitReady evaluates the change-request gate: all required docs
// present via the substring matching rule. The rule's other requirements were
// already satisfied at first submission.
func CheckResubmitReady(req *entity.ApprovalRequest) ReadyCheck {
	if req.ChangeRequest == nil {
		return ReadyCheck{Ready: true}
	}

	missing := MissingDocs(req.ChangeRequest.RequiredDocs, req.Attachments)
	reasons := make([]string, 0, len(missing))
	for _, name := range missing {
		reasons = append(reasons, fmt.Sprintf("missing required document: %s", name))
	}

	return ReadyCheck{Ready: len(reasons) == 0, Reasons: reasons}
}
