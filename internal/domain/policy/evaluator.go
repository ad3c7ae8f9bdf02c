package policy

// SpendContext is a prospective spend evaluated against organization policy
type SpendContext struct {
	OrgID       string `json:"org_id"`
	Module      string `json:"module"`
	Category    string `json:"category,omitempty"`
	Vendor      string `json:"vendor,omitempty"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	Title       string `json:"title"`
}

// Evaluator decides whether a spend requires approval and under which rule
type Evaluator struct {
	config *OrganizationPolicyConfig
}

// NewEvaluator creates a policy rule evaluator for an organization
func NewEvaluator(config *OrganizationPolicyConfig) *Evaluator {
	return &Evaluator{config: config}
}

// Evaluate returns the first applicable rule, or nil when no approval is
// required. Rules are never combined: single-rule matching in config order.
func (e *Evaluator) Evaluate(spend SpendContext) *ApprovalRule {
	for i := range e.config.Rules {
		if ruleMatches(&e.config.Rules[i], spend) {
			return &e.config.Rules[i]
		}
	}
	return nil
}

// Config returns the organization policy config the evaluator operates on
func (e *Evaluator) Config() *OrganizationPolicyConfig {
	return e.config
}

func ruleMatches(rule *ApprovalRule, spend SpendContext) bool {
	if spend.AmountMinor < rule.MinAmountMinor {
		return false
	}
	if len(rule.Modules) > 0 && !containsFold(rule.Modules, spend.Module) {
		return false
	}
	if len(rule.Vendors) > 0 && !containsFold(rule.Vendors, spend.Vendor) {
		return false
	}
	return true
}
