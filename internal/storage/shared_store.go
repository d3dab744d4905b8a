package storage

import (
	"sync"

	"github.com/account-monitor/internal/models"
)

// SharedStore is the handle through which the sync worker and the query layer
// share one AccountStore. Reads run concurrently; each insert holds the write
// lock only for the duration of that insert.
type SharedStore struct {
	mu    sync.RWMutex
	store *AccountStore
}

// NewSharedStore wraps store. A nil store starts empty.
func NewSharedStore(store *AccountStore) *SharedStore {
	if store == nil {
		store = NewAccountStore()
	}
	return &SharedStore{store: store}
}

// Read runs fn with the read lock held. fn must not retain the store.
func (s *SharedStore) Read(fn func(store *AccountStore) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.store)
}

func (s *SharedStore) write(fn func(store *AccountStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.store)
}

// Replace swaps in a freshly loaded store
func (s *SharedStore) Replace(store *AccountStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = store
}

// InsertAccount binds acct to alias
func (s *SharedStore) InsertAccount(alias string, acct models.Account) error {
	return s.write(func(store *AccountStore) error {
		return store.InsertAccount(alias, acct)
	})
}

// InsertBalance records a balance reading
func (s *SharedStore) InsertBalance(number string, date models.Date, at models.TimeOfDay, snapshot, startOfDay models.BalanceSnapshot) error {
	return s.write(func(store *AccountStore) error {
		return store.InsertBalance(number, date, at, snapshot, startOfDay)
	})
}

// InsertPosition records a position reading
func (s *SharedStore) InsertPosition(number string, date models.Date, at models.TimeOfDay, snapshot models.PositionSnapshot) error {
	return s.write(func(store *AccountStore) error {
		return store.InsertPosition(number, date, at, snapshot)
	})
}

// AccountNumbers lists every known account number
func (s *SharedStore) AccountNumbers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.AccountNumbers()
}

// Resolve maps an alias or number to the account number
func (s *SharedStore) Resolve(identifier string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Resolve(identifier)
}

// ListAccounts returns the sorted aliases
func (s *SharedStore) ListAccounts() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.ListAccounts()
}

// AccountInfo returns the account known by identifier
func (s *SharedStore) AccountInfo(identifier string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.AccountInfo(identifier)
}

// LatestBalance returns the last balance reading of date
func (s *SharedStore) LatestBalance(identifier string, date models.Date) (models.BalanceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.LatestBalance(identifier, date)
}

// StartOfDayBalance returns the anchor of date
func (s *SharedStore) StartOfDayBalance(identifier string, date models.Date) (models.BalanceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.StartOfDayBalance(identifier, date)
}

// ClosestBalance returns the balance reading of date nearest to at
func (s *SharedStore) ClosestBalance(identifier string, date models.Date, at models.TimeOfDay) (models.BalanceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.ClosestBalance(identifier, date, at)
}

// ListPositionSymbols returns the sorted symbols of the account
func (s *SharedStore) ListPositionSymbols(identifier string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.ListPositionSymbols(identifier)
}

// LatestPosition returns the last reading of symbol on date
func (s *SharedStore) LatestPosition(identifier, symbol string, date models.Date) (models.PositionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.LatestPosition(identifier, symbol, date)
}

// FirstPosition returns the earliest reading of symbol on date
func (s *SharedStore) FirstPosition(identifier, symbol string, date models.Date) (models.PositionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.FirstPosition(identifier, symbol, date)
}

// ClosestPosition returns the reading of symbol on date nearest to at
func (s *SharedStore) ClosestPosition(identifier, symbol string, date models.Date, at models.TimeOfDay) (models.PositionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.ClosestPosition(identifier, symbol, date, at)
}

// Stats summarizes the store contents
func (s *SharedStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Stats()
}
