package service

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/account-monitor/internal/errors"
	"github.com/account-monitor/internal/models"
	"github.com/account-monitor/internal/storage"
)

// QueryService answers account, balance and position queries against the
// shared store. Empty dates default to today in local time.
type QueryService struct {
	store *storage.SharedStore
	now   func() time.Time
}

// NewQueryService creates a new query service
func NewQueryService(store *storage.SharedStore) *QueryService {
	return &QueryService{store: store, now: time.Now}
}

// withClock overrides the clock used to resolve "today"
func (s *QueryService) withClock(now func() time.Time) *QueryService {
	s.now = now
	return s
}

// BalanceResult is a balance snapshot with the account and day it belongs to
type BalanceResult struct {
	Account string      `json:"account"`
	Date    models.Date `json:"date"`
	models.BalanceSnapshot
}

// PositionResult is a position snapshot with the account and day it belongs to
type PositionResult struct {
	Account string      `json:"account"`
	Date    models.Date `json:"date"`
	models.PositionSnapshot
}

// Stats summarizes what the store holds
func (s *QueryService) Stats() storage.Stats {
	return s.store.Stats()
}

// ListAccounts returns the aliases of every synced account
func (s *QueryService) ListAccounts() ([]string, error) {
	return s.store.ListAccounts()
}

// AccountInfo returns the account identified by alias or number
func (s *QueryService) AccountInfo(identifier string) (models.Account, error) {
	if err := validateIdentifier(identifier); err != nil {
		return models.Account{}, err
	}
	return s.store.AccountInfo(identifier)
}

// StartOfDayBalance returns the anchor balance of date
func (s *QueryService) StartOfDayBalance(identifier, date string) (*BalanceResult, error) {
	day, err := s.parseQuery(identifier, date)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.store.StartOfDayBalance(identifier, day)
	if err != nil {
		return nil, err
	}
	return &BalanceResult{Account: identifier, Date: day, BalanceSnapshot: snapshot}, nil
}

// LatestBalance returns the last balance recorded on date
func (s *QueryService) LatestBalance(identifier, date string) (*BalanceResult, error) {
	day, err := s.parseQuery(identifier, date)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.store.LatestBalance(identifier, day)
	if err != nil {
		return nil, err
	}
	return &BalanceResult{Account: identifier, Date: day, BalanceSnapshot: snapshot}, nil
}

// ClosestBalance returns the balance recorded on date nearest to at
func (s *QueryService) ClosestBalance(identifier, date, at string) (*BalanceResult, error) {
	day, err := s.parseQuery(identifier, date)
	if err != nil {
		return nil, err
	}
	tod, err := parseTime(at)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.store.ClosestBalance(identifier, day, tod)
	if err != nil {
		return nil, err
	}
	return &BalanceResult{Account: identifier, Date: day, BalanceSnapshot: snapshot}, nil
}

// ListPositionSymbols returns every symbol ever recorded for the account
func (s *QueryService) ListPositionSymbols(identifier string) ([]string, error) {
	if err := validateIdentifier(identifier); err != nil {
		return nil, err
	}
	return s.store.ListPositionSymbols(identifier)
}

// LatestPosition returns the last reading of symbol on date
func (s *QueryService) LatestPosition(identifier, symbol, date string) (*PositionResult, error) {
	day, err := s.parsePositionQuery(identifier, symbol, date)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.store.LatestPosition(identifier, symbol, day)
	if err != nil {
		return nil, err
	}
	return &PositionResult{Account: identifier, Date: day, PositionSnapshot: snapshot}, nil
}

// ClosestPosition returns the reading of symbol on date nearest to at
func (s *QueryService) ClosestPosition(identifier, symbol, date, at string) (*PositionResult, error) {
	day, err := s.parsePositionQuery(identifier, symbol, date)
	if err != nil {
		return nil, err
	}
	tod, err := parseTime(at)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.store.ClosestPosition(identifier, symbol, day, tod)
	if err != nil {
		return nil, err
	}
	return &PositionResult{Account: identifier, Date: day, PositionSnapshot: snapshot}, nil
}

// Statusbar renders template with today's balances and positions of the
// account. See RenderStatusbar for the substitution keys.
func (s *QueryService) Statusbar(identifier, template string) (string, error) {
	if err := validateIdentifier(identifier); err != nil {
		return "", err
	}
	today := s.today()

	var data StatusbarData
	err := s.store.Read(func(store *storage.AccountStore) error {
		var err error
		if data.StartOfDay, err = store.StartOfDayBalance(identifier, today); err != nil {
			return err
		}
		if data.Latest, err = store.LatestBalance(identifier, today); err != nil {
			return err
		}

		symbols, err := store.ListPositionSymbols(identifier)
		if err != nil {
			if apperrors.Categorize(err).Category == apperrors.CategoryNoData {
				return nil
			}
			return err
		}
		for _, symbol := range symbols {
			if !strings.Contains(template, "%"+symbol) {
				continue
			}
			position, err := store.LatestPosition(identifier, symbol, today)
			if err != nil {
				// Symbols no longer held have no reading today
				continue
			}
			data.Positions = append(data.Positions, position)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return RenderStatusbar(template, data), nil
}

func (s *QueryService) today() models.Date {
	return models.DateOf(s.now())
}

func (s *QueryService) parseQuery(identifier, date string) (models.Date, error) {
	if err := validateIdentifier(identifier); err != nil {
		return "", err
	}
	if date == "" {
		return s.today(), nil
	}
	day, err := models.ParseDate(date)
	if err != nil {
		return "", apperrors.NewInvalidParameterError("date", fmt.Sprintf("%q is not a YYYY-MM-DD date", date))
	}
	return day, nil
}

func (s *QueryService) parsePositionQuery(identifier, symbol, date string) (models.Date, error) {
	if strings.TrimSpace(symbol) == "" {
		return "", apperrors.NewInvalidParameterError("symbol", "symbol is required")
	}
	return s.parseQuery(identifier, date)
}

func parseTime(at string) (models.TimeOfDay, error) {
	tod, err := models.ParseTimeOfDay(at)
	if err != nil {
		return 0, apperrors.NewInvalidParameterError("time", fmt.Sprintf("%q is not an HH:MM or HH:MM:SS time", at))
	}
	return tod, nil
}

func validateIdentifier(identifier string) error {
	if strings.TrimSpace(identifier) == "" {
		return apperrors.NewInvalidParameterError("account", "account identifier is required")
	}
	return nil
}
