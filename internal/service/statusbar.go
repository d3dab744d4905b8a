package service

import (
	"sort"
	"strings"

	"github.com/account-monitor/internal/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// StatusbarData is what a statusbar template is rendered from
type StatusbarData struct {
	StartOfDay models.BalanceSnapshot
	Latest     models.BalanceSnapshot
	Positions  []models.PositionSnapshot
}

// RenderStatusbar substitutes the keys below into template, longest key
// first, and then applies the character escapes.
//
//	%sod.<field>          start-of-day balance
//	%bal.<field>          latest balance
//	%bal.<field>PNL       percent change of the latest balance from start of day
//	%<SYMBOL>.<field>     latest position of SYMBOL
//	_                     space
//	%dollar               $
//	%slash                /
//
// Balance fields are cash, marketValue, totalEquity and maintenanceExcess.
// Position fields are openQuantity, closedQuantity, currentMarketValue,
// sodMarketValue, currentPrice, averageEntryPrice, openPNL, closedPNL,
// dayPNL, their absolute values openPNLABS, closedPNLABS and dayPNLABS, and
// totalCost. Amounts are rendered with two decimals.
func RenderStatusbar(template string, data StatusbarData) string {
	pairs := balancePairs(data.StartOfDay, data.Latest)
	for _, p := range data.Positions {
		pairs = append(pairs, positionPairs(p)...)
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return len(pairs[i].key) > len(pairs[j].key)
	})

	args := make([]string, 0, len(pairs)*2)
	for _, p := range pairs {
		args = append(args, p.key, p.value)
	}
	rendered := strings.NewReplacer(args...).Replace(template)

	return strings.NewReplacer("_", " ", "%dollar", "$", "%slash", "/").Replace(rendered)
}

type replacement struct {
	key   string
	value string
}

func balancePairs(sod, latest models.BalanceSnapshot) []replacement {
	fields := []struct {
		name        string
		sod, latest decimal.Decimal
	}{
		{"cash", sod.Cash, latest.Cash},
		{"marketValue", sod.MarketValue, latest.MarketValue},
		{"totalEquity", sod.TotalEquity, latest.TotalEquity},
		{"maintenanceExcess", sod.MaintenanceExcess, latest.MaintenanceExcess},
	}

	pairs := make([]replacement, 0, len(fields)*3)
	for _, f := range fields {
		pairs = append(pairs,
			replacement{"%sod." + f.name, amount(f.sod)},
			replacement{"%bal." + f.name, amount(f.latest)},
			replacement{"%bal." + f.name + "PNL", amount(percent(f.latest.Sub(f.sod), f.sod))},
		)
	}
	return pairs
}

func positionPairs(p models.PositionSnapshot) []replacement {
	prefix := "%" + p.Symbol + "."
	sodMarketValue := p.CurrentMarketValue.Sub(p.DayPnL)
	openPNL := percent(p.OpenPnL, p.TotalCost)
	closedPNL := percent(p.ClosedPnL, p.TotalCost)
	dayPNL := percent(p.DayPnL, sodMarketValue)

	return []replacement{
		{prefix + "openQuantity", amount(p.OpenQuantity)},
		{prefix + "closedQuantity", amount(p.ClosedQuantity)},
		{prefix + "currentMarketValue", amount(p.CurrentMarketValue)},
		{prefix + "sodMarketValue", amount(sodMarketValue)},
		{prefix + "currentPrice", amount(p.CurrentPrice)},
		{prefix + "averageEntryPrice", amount(p.AverageEntryPrice)},
		{prefix + "openPNL", amount(openPNL)},
		{prefix + "closedPNL", amount(closedPNL)},
		{prefix + "dayPNL", amount(dayPNL)},
		{prefix + "openPNLABS", amount(openPNL.Abs())},
		{prefix + "closedPNLABS", amount(closedPNL.Abs())},
		{prefix + "dayPNLABS", amount(dayPNL.Abs())},
		{prefix + "totalCost", amount(p.TotalCost)},
	}
}

// percent returns part/whole*100, or zero when whole is zero
func percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

func amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
