package policy

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/corporatepay/approval-engine/internal/domain/entity"
)

// OrganizationPolicyConfig is the explicit per-organization policy state:
// the ordered approval rules and the reminder channel permissions.
type OrganizationPolicyConfig struct {
	OrgID        string          `json:"org_id"`
	Rules        []ApprovalRule  `json:"rules"`
	ChannelRules map[string]bool `json:"channel_rules"`
}

// ApprovalRule describes when approval is required and what it demands.
type ApprovalRule struct {
	ID                  string             `json:"id"`
	Trigger             string             `json:"trigger"`
	MinAmountMinor      int64              `json:"min_amount_minor"`
	Modules             []string           `json:"modules,omitempty"`
	Vendors             []string           `json:"vendors,omitempty"`
	RequiredAttachments []string           `json:"required_attachments,omitempty"`
	NoteRequired        bool               `json:"note_required"`
	HoldSupported       bool               `json:"hold_supported"`
	SLAHours            int                `json:"sla_hours"`
	Route               []entity.RouteStep `json:"route"`
	DelegateAllowed     bool               `json:"delegate_allowed"`
	AllowedDelegates    []string           `json:"allowed_delegates,omitempty"`
}

// LoadConfig reads an organization policy config from a JSON file
func LoadConfig(path string) (*OrganizationPolicyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy config: %w", err)
	}

	var cfg OrganizationPolicyConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse policy config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy config: %w", err)
	}

	return &cfg, nil
}

// Validate checks structural requirements of the policy config
func (c *OrganizationPolicyConfig) Validate() error {
	seen := make(map[string]bool, len(c.Rules))
	for i, rule := range c.Rules {
		if rule.ID == "" {
			return fmt.Errorf("rule %d: missing id", i)
		}
		if seen[rule.ID] {
			return fmt.Errorf("rule %s: duplicate id", rule.ID)
		}
		seen[rule.ID] = true

		if rule.SLAHours <= 0 {
			return fmt.Errorf("rule %s: sla_hours must be positive", rule.ID)
		}
		if len(rule.Route) == 0 {
			return fmt.Errorf("rule %s: route must have at least one step", rule.ID)
		}
		if rule.DelegateAllowed && len(rule.AllowedDelegates) == 0 {
			return fmt.Errorf("rule %s: delegate_allowed requires a non-empty allow-list", rule.ID)
		}
	}
	return nil
}

// ChannelAllowed reports whether the organization permits the reminder channel
func (c *OrganizationPolicyConfig) ChannelAllowed(channel string) bool {
	return c.ChannelRules[channel]
}

// RuleByID returns the rule with the given id, or nil
func (c *OrganizationPolicyConfig) RuleByID(id string) *ApprovalRule {
	for i := range c.Rules {
		if c.Rules[i].ID == id {
			return &c.Rules[i]
		}
	}
	return nil
}
