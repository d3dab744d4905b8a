package storage

import (
	"context"
	"testing"
	"time"

	"github.com/account-monitor/internal/models"
	"github.com/account-monitor/internal/types"
	"github.com/shopspring/decimal"
)

// testContext creates a context with timeout for tests
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

const testDate = models.Date("2024-03-01")

func testAccount(number string) models.Account {
	return models.Account{
		Number:            number,
		Type:              types.AccountTypeMargin,
		ClientAccountType: types.ClientIndividual,
		Status:            types.StatusActive,
		IsPrimary:         true,
		IsBilling:         true,
	}
}

func testBalance(cash int64) models.BalanceSnapshot {
	return models.BalanceSnapshot{
		Currency:          types.CurrencyCAD,
		Cash:              decimal.NewFromInt(cash),
		MarketValue:       decimal.NewFromInt(cash * 2),
		TotalEquity:       decimal.NewFromInt(cash * 3),
		BuyingPower:       decimal.NewFromInt(cash * 4),
		MaintenanceExcess: decimal.NewFromInt(cash * 5),
	}
}

func testPosition(symbol string, qty int64) models.PositionSnapshot {
	return models.PositionSnapshot{
		Symbol:             symbol,
		OpenQuantity:       decimal.NewFromInt(qty),
		ClosedQuantity:     decimal.Zero,
		CurrentMarketValue: decimal.NewFromInt(qty * 10),
		CurrentPrice:       decimal.NewFromInt(10),
		AverageEntryPrice:  decimal.RequireFromString("9.5"),
		ClosedPnL:          decimal.Zero,
		DayPnL:             decimal.NewFromInt(qty),
		OpenPnL:            decimal.RequireFromString("0.5").Mul(decimal.NewFromInt(qty)),
		TotalCost:          decimal.RequireFromString("9.5").Mul(decimal.NewFromInt(qty)),
	}
}

// newTestStore returns a store holding account "123" under alias "Primary"
func newTestStore(t *testing.T) *AccountStore {
	t.Helper()
	store := NewAccountStore()
	if err := store.InsertAccount("Primary", testAccount("123")); err != nil {
		t.Fatalf("InsertAccount() error = %v", err)
	}
	return store
}
