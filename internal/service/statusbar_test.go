package service

import (
	"testing"

	"github.com/account-monitor/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRenderStatusbar(t *testing.T) {
	data := StatusbarData{
		StartOfDay: balanceWithCash(200),
		Latest:     balanceWithCash(150),
		Positions: []models.PositionSnapshot{
			positionWithValue("XEQT.TO", 2500, -100, 250, 2000),
			{Symbol: "CASH.TO"},
		},
	}

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"start of day", "%sod.cash", "200.00"},
		{"longest key wins", "%bal.cashPNL", "-25.00"},
		{"balance and pnl side by side", "%bal.marketValue/%bal.marketValuePNL", "1500.00/-25.00"},
		{"maintenance excess", "%sod.maintenanceExcess", "200.00"},
		{"escapes", "A_B%slashC%dollar", "A B/C$"},
		{"sod market value", "%XEQT.TO.sodMarketValue", "2600.00"},
		{"signed and absolute day pnl", "%XEQT.TO.dayPNL_%XEQT.TO.dayPNLABS", "-3.85 3.85"},
		{"open pnl", "%XEQT.TO.openPNL", "12.50"},
		{"total cost", "%XEQT.TO.totalCost", "2000.00"},
		{"zero cost basis", "%CASH.TO.openPNL_%CASH.TO.dayPNLABS", "0.00 0.00"},
		{"unknown symbol untouched", "%AAPL.currentPrice", "%AAPL.currentPrice"},
		{"plain text", "hello", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RenderStatusbar(tt.template, data))
		})
	}
}

func TestPercent(t *testing.T) {
	assert.True(t, decimal.Zero.Equal(percent(decimal.NewFromInt(5), decimal.Zero)))
	assert.Equal(t, "50.00", amount(percent(decimal.NewFromInt(1), decimal.NewFromInt(2))))
}
