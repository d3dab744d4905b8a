package models

import (
	"github.com/account-monitor/internal/types"
	"github.com/shopspring/decimal"
)

// BalanceSnapshot is one balance reading of an account in a single currency
type BalanceSnapshot struct {
	Currency          types.Currency  `json:"currency" yaml:"currency"`
	Cash              decimal.Decimal `json:"cash" yaml:"cash"`
	MarketValue       decimal.Decimal `json:"marketValue" yaml:"marketValue"`
	TotalEquity       decimal.Decimal `json:"totalEquity" yaml:"totalEquity"`
	BuyingPower       decimal.Decimal `json:"buyingPower" yaml:"buyingPower"`
	MaintenanceExcess decimal.Decimal `json:"maintenanceExcess" yaml:"maintenanceExcess"`
	TimeRetrieved     TimeOfDay       `json:"timeRetrieved" yaml:"timeRetrieved"`
}

// At returns a copy of the snapshot stamped with the given retrieval time
func (b BalanceSnapshot) At(t TimeOfDay) BalanceSnapshot {
	b.TimeRetrieved = t
	return b
}

// Equal compares every field, including the retrieval time
func (b BalanceSnapshot) Equal(other BalanceSnapshot) bool {
	return b.Currency == other.Currency &&
		b.Cash.Equal(other.Cash) &&
		b.MarketValue.Equal(other.MarketValue) &&
		b.TotalEquity.Equal(other.TotalEquity) &&
		b.BuyingPower.Equal(other.BuyingPower) &&
		b.MaintenanceExcess.Equal(other.MaintenanceExcess) &&
		b.TimeRetrieved == other.TimeRetrieved
}

// PositionSnapshot is one reading of a held symbol
type PositionSnapshot struct {
	Symbol             string          `json:"symbol" yaml:"symbol"`
	OpenQuantity       decimal.Decimal `json:"openQuantity" yaml:"openQuantity"`
	ClosedQuantity     decimal.Decimal `json:"closedQuantity" yaml:"closedQuantity"`
	CurrentMarketValue decimal.Decimal `json:"currentMarketValue" yaml:"currentMarketValue"`
	CurrentPrice       decimal.Decimal `json:"currentPrice" yaml:"currentPrice"`
	AverageEntryPrice  decimal.Decimal `json:"averageEntryPrice" yaml:"averageEntryPrice"`
	ClosedPnL          decimal.Decimal `json:"closedPnl" yaml:"closedPnl"`
	DayPnL             decimal.Decimal `json:"dayPnl" yaml:"dayPnl"`
	OpenPnL            decimal.Decimal `json:"openPnl" yaml:"openPnl"`
	TotalCost          decimal.Decimal `json:"totalCost" yaml:"totalCost"`
	TimeRetrieved      TimeOfDay       `json:"timeRetrieved" yaml:"timeRetrieved"`
}

// At returns a copy of the snapshot stamped with the given retrieval time
func (p PositionSnapshot) At(t TimeOfDay) PositionSnapshot {
	p.TimeRetrieved = t
	return p
}

// Equal compares every field, including the retrieval time
func (p PositionSnapshot) Equal(other PositionSnapshot) bool {
	return p.Symbol == other.Symbol &&
		p.OpenQuantity.Equal(other.OpenQuantity) &&
		p.ClosedQuantity.Equal(other.ClosedQuantity) &&
		p.CurrentMarketValue.Equal(other.CurrentMarketValue) &&
		p.CurrentPrice.Equal(other.CurrentPrice) &&
		p.AverageEntryPrice.Equal(other.AverageEntryPrice) &&
		p.ClosedPnL.Equal(other.ClosedPnL) &&
		p.DayPnL.Equal(other.DayPnL) &&
		p.OpenPnL.Equal(other.OpenPnL) &&
		p.TotalCost.Equal(other.TotalCost) &&
		p.TimeRetrieved == other.TimeRetrieved
}
