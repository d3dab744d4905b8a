package service

import (
	"testing"
	"time"

	apperrors "github.com/account-monitor/internal/errors"
	"github.com/account-monitor/internal/models"
	"github.com/account-monitor/internal/storage"
	"github.com/account-monitor/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDay = models.Date("2024-03-01")

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)

func balanceWithCash(cash int64) models.BalanceSnapshot {
	return models.BalanceSnapshot{
		Currency:          types.CurrencyCAD,
		Cash:              decimal.NewFromInt(cash),
		MarketValue:       decimal.NewFromInt(cash * 10),
		TotalEquity:       decimal.NewFromInt(cash * 11),
		BuyingPower:       decimal.NewFromInt(cash),
		MaintenanceExcess: decimal.NewFromInt(cash),
	}
}

func positionWithValue(symbol string, marketValue, dayPnL, openPnL, totalCost int64) models.PositionSnapshot {
	return models.PositionSnapshot{
		Symbol:             symbol,
		OpenQuantity:       decimal.NewFromInt(10),
		CurrentMarketValue: decimal.NewFromInt(marketValue),
		CurrentPrice:       decimal.NewFromInt(marketValue / 10),
		AverageEntryPrice:  decimal.NewFromInt(totalCost / 10),
		DayPnL:             decimal.NewFromInt(dayPnL),
		OpenPnL:            decimal.NewFromInt(openPnL),
		TotalCost:          decimal.NewFromInt(totalCost),
	}
}

// newTestService returns a service over account "123" (alias "Primary")
// holding balances at 09:00, 09:05 and 09:12 and VFV.TO positions at 09:00
// and 09:10 of testDay
func newTestService(t *testing.T) *QueryService {
	t.Helper()

	store := storage.NewSharedStore(nil)
	require.NoError(t, store.InsertAccount("Primary", models.Account{
		Number:            "123",
		Type:              types.AccountTypeTFSA,
		ClientAccountType: types.ClientIndividual,
		Status:            types.StatusActive,
		IsPrimary:         true,
	}))

	require.NoError(t, store.InsertBalance("123", testDay, models.Clock(9, 0, 0), balanceWithCash(100), balanceWithCash(90)))
	require.NoError(t, store.InsertBalance("123", testDay, models.Clock(9, 5, 0), balanceWithCash(105), balanceWithCash(1)))
	require.NoError(t, store.InsertBalance("123", testDay, models.Clock(9, 12, 0), balanceWithCash(112), balanceWithCash(1)))

	require.NoError(t, store.InsertPosition("123", testDay, models.Clock(9, 0, 0), positionWithValue("VFV.TO", 1050, 50, -20, 1000)))
	require.NoError(t, store.InsertPosition("123", testDay, models.Clock(9, 10, 0), positionWithValue("VFV.TO", 1100, 100, -50, 1000)))

	return NewQueryService(store).withClock(func() time.Time { return testNow })
}

func TestQueryService_ListAccountsAndInfo(t *testing.T) {
	svc := newTestService(t)

	aliases, err := svc.ListAccounts()
	require.NoError(t, err)
	assert.Equal(t, []string{"Primary"}, aliases)

	byAlias, err := svc.AccountInfo("Primary")
	require.NoError(t, err)
	byNumber, err := svc.AccountInfo("123")
	require.NoError(t, err)
	assert.Equal(t, byAlias, byNumber)
	assert.Equal(t, "Primary", byNumber.DisplayAlias)

	_, err = svc.AccountInfo("nope")
	assert.ErrorIs(t, err, apperrors.ErrUnknownIdentifier)

	_, err = svc.AccountInfo(" ")
	assert.Equal(t, apperrors.CategoryValidation, apperrors.Categorize(err).Category)
}

func TestQueryService_ListAccountsEmpty(t *testing.T) {
	svc := NewQueryService(storage.NewSharedStore(nil))

	_, err := svc.ListAccounts()
	assert.ErrorIs(t, err, apperrors.ErrNoAccountsSynced)
}

func TestQueryService_Balances(t *testing.T) {
	svc := newTestService(t)

	sod, err := svc.StartOfDayBalance("Primary", "")
	require.NoError(t, err)
	assert.Equal(t, testDay, sod.Date)
	assert.Equal(t, "Primary", sod.Account)
	assert.True(t, decimal.NewFromInt(90).Equal(sod.Cash))

	latest, err := svc.LatestBalance("123", "2024-03-01")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(112).Equal(latest.Cash))
	assert.Equal(t, models.Clock(9, 12, 0), latest.TimeRetrieved)
}

func TestQueryService_ClosestBalance(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		at       string
		expected int64
	}{
		{"08:00", 100},
		{"09:07", 105},
		{"09:08:30", 112},
		{"09:20", 112},
	}

	for _, tt := range tests {
		t.Run(tt.at, func(t *testing.T) {
			got, err := svc.ClosestBalance("Primary", "2024-03-01", tt.at)
			require.NoError(t, err)
			assert.True(t, decimal.NewFromInt(tt.expected).Equal(got.Cash), "cash = %s", got.Cash)
		})
	}
}

func TestQueryService_BalanceErrors(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name     string
		date     string
		at       string
		sentinel error
		category apperrors.ErrorCategory
	}{
		{name: "bad date", date: "03/01/2024", at: "09:00", category: apperrors.CategoryValidation},
		{name: "bad time", date: "2024-03-01", at: "9am", category: apperrors.CategoryValidation},
		{name: "no data for day", date: "2024-02-29", at: "09:00", sentinel: apperrors.ErrNoBalanceForDay, category: apperrors.CategoryNoData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ClosestBalance("Primary", tt.date, tt.at)
			require.Error(t, err)
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
			assert.Equal(t, tt.category, apperrors.Categorize(err).Category)
		})
	}
}

func TestQueryService_Positions(t *testing.T) {
	svc := newTestService(t)

	symbols, err := svc.ListPositionSymbols("Primary")
	require.NoError(t, err)
	assert.Equal(t, []string{"VFV.TO"}, symbols)

	latest, err := svc.LatestPosition("Primary", "VFV.TO", "")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1100).Equal(latest.CurrentMarketValue))

	closest, err := svc.ClosestPosition("123", "VFV.TO", "2024-03-01", "09:04")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1050).Equal(closest.CurrentMarketValue))

	_, err = svc.LatestPosition("Primary", "XEQT.TO", "")
	assert.ErrorIs(t, err, apperrors.ErrNoSymbolSynced)

	_, err = svc.LatestPosition("Primary", "VFV.TO", "2024-02-01")
	assert.ErrorIs(t, err, apperrors.ErrNoPositionForDay)

	_, err = svc.LatestPosition("Primary", "", "")
	assert.Equal(t, apperrors.CategoryValidation, apperrors.Categorize(err).Category)
}

func TestQueryService_Statusbar(t *testing.T) {
	svc := newTestService(t)

	out, err := svc.Statusbar("Primary", "%bal.cash_(%bal.cashPNL%)_VFV:%dollar%VFV.TO.currentMarketValue_%VFV.TO.dayPNL%")
	require.NoError(t, err)
	// cash went from 90 to 112; VFV.TO market value 1100 with 100 day P&L
	assert.Equal(t, "112.00 (24.44%) VFV:$1100.00 10.00%", out)
}

func TestQueryService_StatusbarErrors(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Statusbar("unknown", "%bal.cash")
	assert.ErrorIs(t, err, apperrors.ErrUnknownIdentifier)

	empty := NewQueryService(storage.NewSharedStore(nil)).withClock(func() time.Time { return testNow })
	_, err = empty.Statusbar("Primary", "%bal.cash")
	assert.ErrorIs(t, err, apperrors.ErrUnknownIdentifier)
}

func TestQueryService_StatusbarWithoutPositions(t *testing.T) {
	store := storage.NewSharedStore(nil)
	require.NoError(t, store.InsertAccount("", models.Account{Number: "999"}))
	require.NoError(t, store.InsertBalance("999", testDay, models.Clock(10, 0, 0), balanceWithCash(10), balanceWithCash(10)))

	svc := NewQueryService(store).withClock(func() time.Time { return testNow })
	out, err := svc.Statusbar("999", "%bal.totalEquity_%bal.totalEquityPNL")
	require.NoError(t, err)
	assert.Equal(t, "110.00 0.00", out)
}
