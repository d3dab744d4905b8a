package config

import (
	"fmt"
	"os"

	"github.com/account-monitor/internal/models"
	"github.com/account-monitor/internal/types"
	"gopkg.in/yaml.v3"
)

// AccountMatch lists the fields an account must carry to match a rule.
// Unset fields match anything.
type AccountMatch struct {
	Number            *string                  `yaml:"number,omitempty"`
	IsPrimary         *bool                    `yaml:"isPrimary,omitempty"`
	IsBilling         *bool                    `yaml:"isBilling,omitempty"`
	Type              *types.AccountType       `yaml:"type,omitempty"`
	ClientAccountType *types.ClientAccountType `yaml:"clientAccountType,omitempty"`
	Status            *types.AccountStatus     `yaml:"status,omitempty"`
}

// Matches reports whether every set field equals the account's
func (m AccountMatch) Matches(acct models.Account) bool {
	if m.Number != nil && *m.Number != acct.Number {
		return false
	}
	if m.IsPrimary != nil && *m.IsPrimary != acct.IsPrimary {
		return false
	}
	if m.IsBilling != nil && *m.IsBilling != acct.IsBilling {
		return false
	}
	if m.Type != nil && *m.Type != acct.Type {
		return false
	}
	if m.ClientAccountType != nil && *m.ClientAccountType != acct.ClientAccountType {
		return false
	}
	if m.Status != nil && *m.Status != acct.Status {
		return false
	}
	return true
}

// AccountRule names the accounts its match selects
type AccountRule struct {
	Name  string       `yaml:"name"`
	Match AccountMatch `yaml:"match"`
}

// AccountRules selects which discovered accounts are synced, and under which alias
type AccountRules struct {
	Accounts []AccountRule `yaml:"accounts"`
}

// DefaultAccountRules syncs the primary account as "Primary"
func DefaultAccountRules() *AccountRules {
	primary := true
	return &AccountRules{
		Accounts: []AccountRule{
			{Name: "Primary", Match: AccountMatch{IsPrimary: &primary}},
		},
	}
}

// LoadAccountRules reads the rules file, falling back to the defaults when it
// does not exist
func LoadAccountRules(path string) (*AccountRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultAccountRules(), nil
		}
		return nil, fmt.Errorf("failed to read account rules: %w", err)
	}
	return ParseAccountRules(data)
}

// ParseAccountRules decodes a YAML rules document
func ParseAccountRules(data []byte) (*AccountRules, error) {
	var rules AccountRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse account rules: %w", err)
	}
	if len(rules.Accounts) == 0 {
		return nil, fmt.Errorf("account rules must list at least one account")
	}
	return &rules, nil
}

// Select returns the alias of the first rule matching acct. The alias is empty
// when the rule has no name, in which case the account number is used.
func (r *AccountRules) Select(acct models.Account) (string, bool) {
	for _, rule := range r.Accounts {
		if rule.Match.Matches(acct) {
			return rule.Name, true
		}
	}
	return "", false
}
