// Package models holds the value records kept by the account store.
package models

import "github.com/account-monitor/internal/types"

// Account is a brokerage account as discovered from the broker
type Account struct {
	Number            string                  `json:"number" yaml:"number"`
	Type              types.AccountType       `json:"type" yaml:"type"`
	ClientAccountType types.ClientAccountType `json:"clientAccountType" yaml:"clientAccountType"`
	Status            types.AccountStatus     `json:"status" yaml:"status"`
	IsPrimary         bool                    `json:"isPrimary" yaml:"isPrimary"`
	IsBilling         bool                    `json:"isBilling" yaml:"isBilling"`
	DisplayAlias      string                  `json:"displayAlias" yaml:"displayAlias"`
}

// SameClassification reports whether two accounts carry the same identity and
// classification, ignoring the alias
func (a Account) SameClassification(other Account) bool {
	return a.Number == other.Number &&
		a.Type == other.Type &&
		a.ClientAccountType == other.ClientAccountType &&
		a.Status == other.Status &&
		a.IsPrimary == other.IsPrimary &&
		a.IsBilling == other.IsBilling
}
