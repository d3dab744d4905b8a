package storage

import (
	"fmt"

	"github.com/account-monitor/internal/models"
)

// StoreState is the serializable form of an AccountStore. Aliases travel in
// each account's DisplayAlias.
type StoreState struct {
	Version   int                                                `json:"version" yaml:"version"`
	Accounts  []models.Account                                   `json:"accounts" yaml:"accounts"`
	Balances  map[string]map[models.Date]*BalanceDay             `json:"balances" yaml:"balances"`
	Positions map[string]map[string]map[models.Date]*PositionDay `json:"positions" yaml:"positions"`
}

const stateVersion = 1

// State exposes the store's contents for encoding. The result shares memory
// with the store and must only be read while the store is not being written.
func (s *AccountStore) State() *StoreState {
	accounts := make([]models.Account, 0, len(s.accounts))
	for _, number := range s.AccountNumbers() {
		accounts = append(accounts, *s.accounts[number])
	}
	return &StoreState{
		Version:   stateVersion,
		Accounts:  accounts,
		Balances:  s.balances,
		Positions: s.positions,
	}
}

// RestoreAccountStore rebuilds a store from decoded state, re-checking the
// account invariants and restoring time order within each day
func RestoreAccountStore(state *StoreState) (*AccountStore, error) {
	store := NewAccountStore()
	if state == nil {
		return store, nil
	}
	if state.Version > stateVersion {
		return nil, fmt.Errorf("store state version %d is newer than supported version %d", state.Version, stateVersion)
	}

	for _, acct := range state.Accounts {
		if err := store.InsertAccount(acct.DisplayAlias, acct); err != nil {
			return nil, fmt.Errorf("invalid account %s in store state: %w", acct.Number, err)
		}
	}

	for number, days := range state.Balances {
		if _, ok := store.accounts[number]; !ok {
			return nil, fmt.Errorf("balances recorded for unknown account %s", number)
		}
		restored := make(map[models.Date]*BalanceDay, len(days))
		for date, day := range days {
			if day == nil {
				continue
			}
			day.Date = date
			day.sort()
			restored[date] = day
		}
		store.balances[number] = restored
	}

	for number, symbols := range state.Positions {
		if _, ok := store.accounts[number]; !ok {
			return nil, fmt.Errorf("positions recorded for unknown account %s", number)
		}
		restored := make(map[string]map[models.Date]*PositionDay, len(symbols))
		for symbol, days := range symbols {
			restoredDays := make(map[models.Date]*PositionDay, len(days))
			for date, day := range days {
				if day == nil || day.Empty() {
					continue
				}
				day.Date = date
				day.sort()
				restoredDays[date] = day
			}
			restored[symbol] = restoredDays
		}
		store.positions[number] = restored
	}

	return store, nil
}

// Stats summarizes the store contents
type Stats struct {
	Accounts          int `json:"accounts"`
	BalanceDays       int `json:"balanceDays"`
	BalanceSnapshots  int `json:"balanceSnapshots"`
	PositionSymbols   int `json:"positionSymbols"`
	PositionSnapshots int `json:"positionSnapshots"`
}

// Stats counts accounts, days and snapshots
func (s *AccountStore) Stats() Stats {
	stats := Stats{Accounts: len(s.accounts)}
	for _, days := range s.balances {
		stats.BalanceDays += len(days)
		for _, day := range days {
			stats.BalanceSnapshots += len(day.Intraday)
		}
	}
	for _, symbols := range s.positions {
		stats.PositionSymbols += len(symbols)
		for _, days := range symbols {
			for _, day := range days {
				stats.PositionSnapshots += len(day.Snapshots)
			}
		}
	}
	return stats
}
