package storage

import (
	"sort"

	apperrors "github.com/account-monitor/internal/errors"
	"github.com/account-monitor/internal/models"
)

// AccountStore is the time-series record of every synced account. It is not
// safe for concurrent use; share it through a SharedStore.
type AccountStore struct {
	accounts  map[string]*models.Account                         // number -> account
	aliases   map[string]string                                  // alias -> number
	balances  map[string]map[models.Date]*BalanceDay             // number -> date -> day
	positions map[string]map[string]map[models.Date]*PositionDay // number -> symbol -> date -> day
}

// NewAccountStore creates an empty store
func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts:  make(map[string]*models.Account),
		aliases:   make(map[string]string),
		balances:  make(map[string]map[models.Date]*BalanceDay),
		positions: make(map[string]map[string]map[models.Date]*PositionDay),
	}
}

// InsertAccount binds acct to alias. An empty alias defaults to the account
// number. Re-inserting the same pair is a no-op, and a pair whose alias and
// number match an existing entry refreshes its classification.
func (s *AccountStore) InsertAccount(alias string, acct models.Account) error {
	if alias == "" {
		alias = acct.Number
	}
	acct.DisplayAlias = alias

	if bound, ok := s.aliases[alias]; ok && bound != acct.Number {
		return apperrors.NewDuplicateAliasError(alias, bound)
	}

	if existing, ok := s.accounts[acct.Number]; ok {
		if existing.DisplayAlias != alias {
			return apperrors.NewDuplicateAccountError(acct.Number, existing.DisplayAlias)
		}
		if !existing.SameClassification(acct) {
			*existing = acct
		}
		return nil
	}

	s.accounts[acct.Number] = &acct
	s.aliases[alias] = acct.Number
	return nil
}

// InsertBalance records snapshot taken at the given date and time. The first
// insert of a day also records startOfDay as that day's anchor; later inserts
// ignore it.
func (s *AccountStore) InsertBalance(number string, date models.Date, at models.TimeOfDay, snapshot, startOfDay models.BalanceSnapshot) error {
	if _, ok := s.accounts[number]; !ok {
		return apperrors.NewUnknownAccountError(number)
	}
	snapshot = snapshot.At(at)

	days, ok := s.balances[number]
	if !ok {
		days = make(map[models.Date]*BalanceDay)
		s.balances[number] = days
	}

	day, ok := days[date]
	if !ok {
		day = NewBalanceDay(date, startOfDay.At(at))
		day.Insert(snapshot)
		days[date] = day
		return nil
	}

	if !day.Insert(snapshot) {
		return apperrors.NewDuplicateBalanceError(number, string(date), at.String())
	}
	return nil
}

// InsertPosition records snapshot taken at the given date and time
func (s *AccountStore) InsertPosition(number string, date models.Date, at models.TimeOfDay, snapshot models.PositionSnapshot) error {
	if _, ok := s.accounts[number]; !ok {
		return apperrors.NewUnknownAccountError(number)
	}
	snapshot = snapshot.At(at)

	symbols, ok := s.positions[number]
	if !ok {
		symbols = make(map[string]map[models.Date]*PositionDay)
		s.positions[number] = symbols
	}

	days, ok := symbols[snapshot.Symbol]
	if !ok {
		days = make(map[models.Date]*PositionDay)
		symbols[snapshot.Symbol] = days
	}

	day, ok := days[date]
	if !ok {
		day = NewPositionDay(date)
		days[date] = day
	}

	if !day.Insert(snapshot) {
		return apperrors.NewDuplicatePositionError(snapshot.Symbol, at.String())
	}
	return nil
}

// Resolve maps an alias or account number to the account number. Aliases take
// precedence.
func (s *AccountStore) Resolve(identifier string) (string, error) {
	if number, ok := s.aliases[identifier]; ok {
		return number, nil
	}
	if _, ok := s.accounts[identifier]; ok {
		return identifier, nil
	}
	return "", apperrors.NewUnknownIdentifierError(identifier)
}

// ListAccounts returns the sorted aliases of every account
func (s *AccountStore) ListAccounts() ([]string, error) {
	if len(s.aliases) == 0 {
		return nil, apperrors.ErrNoAccountsSynced
	}
	aliases := make([]string, 0, len(s.aliases))
	for alias := range s.aliases {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases, nil
}

// AccountNumbers returns the sorted numbers of every account
func (s *AccountStore) AccountNumbers() []string {
	numbers := make([]string, 0, len(s.accounts))
	for number := range s.accounts {
		numbers = append(numbers, number)
	}
	sort.Strings(numbers)
	return numbers
}

// AccountInfo returns a copy of the account known by identifier
func (s *AccountStore) AccountInfo(identifier string) (models.Account, error) {
	number, err := s.Resolve(identifier)
	if err != nil {
		return models.Account{}, err
	}
	return *s.accounts[number], nil
}

func (s *AccountStore) balanceDay(identifier string, date models.Date) (*BalanceDay, error) {
	number, err := s.Resolve(identifier)
	if err != nil {
		return nil, err
	}
	days, ok := s.balances[number]
	if !ok || len(days) == 0 {
		return nil, apperrors.ErrNoBalanceSynced
	}
	day, ok := days[date]
	if !ok {
		return nil, apperrors.NewNoBalanceForDayError(string(date))
	}
	return day, nil
}

// LatestBalance returns the last reading of the day
func (s *AccountStore) LatestBalance(identifier string, date models.Date) (models.BalanceSnapshot, error) {
	day, err := s.balanceDay(identifier, date)
	if err != nil {
		return models.BalanceSnapshot{}, err
	}
	return day.MostRecent(), nil
}

// StartOfDayBalance returns the anchor of the day
func (s *AccountStore) StartOfDayBalance(identifier string, date models.Date) (models.BalanceSnapshot, error) {
	day, err := s.balanceDay(identifier, date)
	if err != nil {
		return models.BalanceSnapshot{}, err
	}
	return day.StartOfDay, nil
}

// ClosestBalance returns the reading of the day nearest to at
func (s *AccountStore) ClosestBalance(identifier string, date models.Date, at models.TimeOfDay) (models.BalanceSnapshot, error) {
	day, err := s.balanceDay(identifier, date)
	if err != nil {
		return models.BalanceSnapshot{}, err
	}
	return day.ClosestTo(at), nil
}

func (s *AccountStore) symbolDays(identifier string) (map[string]map[models.Date]*PositionDay, error) {
	number, err := s.Resolve(identifier)
	if err != nil {
		return nil, err
	}
	symbols, ok := s.positions[number]
	if !ok || len(symbols) == 0 {
		return nil, apperrors.ErrNoPositionsSynced
	}
	return symbols, nil
}

func (s *AccountStore) positionDay(identifier, symbol string, date models.Date) (*PositionDay, error) {
	symbols, err := s.symbolDays(identifier)
	if err != nil {
		return nil, err
	}
	days, ok := symbols[symbol]
	if !ok {
		return nil, apperrors.NewNoSymbolSyncedError(symbol)
	}
	day, ok := days[date]
	if !ok || day.Empty() {
		return nil, apperrors.NewNoPositionForDayError(symbol, string(date))
	}
	return day, nil
}

// ListPositionSymbols returns the sorted symbols ever recorded for the account
func (s *AccountStore) ListPositionSymbols(identifier string) ([]string, error) {
	symbols, err := s.symbolDays(identifier)
	if err != nil {
		return nil, err
	}
	list := make([]string, 0, len(symbols))
	for symbol := range symbols {
		list = append(list, symbol)
	}
	sort.Strings(list)
	return list, nil
}

// LatestPosition returns the last reading of symbol on date
func (s *AccountStore) LatestPosition(identifier, symbol string, date models.Date) (models.PositionSnapshot, error) {
	day, err := s.positionDay(identifier, symbol, date)
	if err != nil {
		return models.PositionSnapshot{}, err
	}
	return day.MostRecent(), nil
}

// FirstPosition returns the earliest reading of symbol on date
func (s *AccountStore) FirstPosition(identifier, symbol string, date models.Date) (models.PositionSnapshot, error) {
	day, err := s.positionDay(identifier, symbol, date)
	if err != nil {
		return models.PositionSnapshot{}, err
	}
	return day.First(), nil
}

// ClosestPosition returns the reading of symbol on date nearest to at
func (s *AccountStore) ClosestPosition(identifier, symbol string, date models.Date, at models.TimeOfDay) (models.PositionSnapshot, error) {
	day, err := s.positionDay(identifier, symbol, date)
	if err != nil {
		return models.PositionSnapshot{}, err
	}
	return day.ClosestTo(at), nil
}
