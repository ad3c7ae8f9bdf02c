package policy

import (
	"fmt"
	"strings"

	"github.com/corporatepay/approval-engine/internal/domain/entity"
)

// checkDelegation validates a delegation selection against the request's
// matched rule state. Returns blocking reasons, empty when valid.
func checkDelegation(req *entity.ApprovalRequest) []string {
	reasons := make([]string, 0)

	if !req.DelegateAllowed {
		reasons = append(reasons, "delegation is not permitted by the matched rule")
		return reasons
	}

	d := req.Delegation
	if d.DelegateID == "" {
		reasons = append(reasons, "delegation enabled but no delegate selected")
	}
	if len(strings.TrimSpace(d.Reason)) < DelegationReasonMinLen {
		reasons = append(reasons, fmt.Sprintf("delegation reason must be at least %d characters", DelegationReasonMinLen))
	}

	return reasons
}

// ValidateDelegation validates a delegation against the rule that triggered
// the request: the rule must allow delegation, the delegate must be on the
// rule's allow-list, and the reason must meet the minimum length.
func ValidateDelegation(rule *ApprovalRule, d *entity.Delegation) []string {
	reasons := make([]string, 0)

	if rule == nil || !rule.DelegateAllowed {
		reasons = append(reasons, "delegation is not permitted by the matched rule")
		return reasons
	}

	if d == nil || d.DelegateID == "" {
		reasons = append(reasons, "delegation enabled but no delegate selected")
	} else if !containsFold(rule.AllowedDelegates, d.DelegateID) {
		reasons = append(reasons, fmt.Sprintf("delegate %s is not on the rule's allow-list", d.DelegateID))
	}

	if d == nil || len(strings.TrimSpace(d.Reason)) < DelegationReasonMinLen {
		reasons = append(reasons, fmt.Sprintf("delegation reason must be at least %d characters", DelegationReasonMinLen))
	}

	return reasons
}
