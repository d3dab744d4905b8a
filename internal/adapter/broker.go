package adapter

import (
	"context"
	"fmt"

	"github.com/account-monitor/internal/auth"
	"github.com/account-monitor/internal/models"
)

// Broker is the brokerage API the sync worker pulls from. Every method may
// fail with errors.ErrNotAuthenticated when the access token is rejected.
type Broker interface {
	// ListAccounts returns every account visible to the credential
	ListAccounts(ctx context.Context) ([]models.Account, error)

	// GetBalances returns current and start-of-day balances, one entry per currency
	GetBalances(ctx context.Context, number string) (*Balances, error)

	// GetPositions returns the current positions of the account
	GetPositions(ctx context.Context, number string) ([]models.PositionSnapshot, error)

	// Authenticate exchanges a refresh token for a full credential
	Authenticate(ctx context.Context, refreshToken string) (auth.Credential, error)
}

// Balances is one balance reading of an account in every currency
type Balances struct {
	PerCurrency           []models.BalanceSnapshot
	StartOfDayPerCurrency []models.BalanceSnapshot
}

// AdapterError wraps errors with the failing operation
type AdapterError struct {
	Op      string // Operation that failed (e.g., "ListAccounts", "GetBalances")
	Err     error
	Details map[string]interface{}
}

func (e *AdapterError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("broker error [%s]: %v (details: %+v)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("broker error [%s]: %v", e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// NewAdapterError creates a new AdapterError
func NewAdapterError(op string, err error, details map[string]interface{}) *AdapterError {
	return &AdapterError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}
