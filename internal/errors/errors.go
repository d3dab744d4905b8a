package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/account-monitor/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategorySystem represents system errors (5xx)
	CategorySystem ErrorCategory = "system"
	// CategoryProvider represents broker API errors
	CategoryProvider ErrorCategory = "provider"
	// CategoryDatabase represents persistence errors
	CategoryDatabase ErrorCategory = "database"
	// CategoryValidation represents validation errors
	CategoryValidation ErrorCategory = "validation"
	// CategoryAuthorization represents authorization errors
	CategoryAuthorization ErrorCategory = "authorization"
	// CategoryNotFound represents unknown identities
	CategoryNotFound ErrorCategory = "not_found"
	// CategoryNoData represents known accounts with nothing recorded yet
	CategoryNoData ErrorCategory = "no_data"
	// CategoryConflict represents duplicate inserts
	CategoryConflict ErrorCategory = "conflict"
	// CategoryRateLimit represents rate limit errors
	CategoryRateLimit ErrorCategory = "rate_limit"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// Is matches any CategorizedError carrying the same code, so errors built by
// the constructors below satisfy errors.Is against the package sentinels
func (e *CategorizedError) Is(target error) bool {
	t, ok := target.(*CategorizedError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// ToServiceError converts to a ServiceError
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

func newError(category ErrorCategory, status int, code, message string) *CategorizedError {
	return &CategorizedError{
		Category:   category,
		StatusCode: status,
		Code:       code,
		Message:    message,
	}
}

// Sentinels for errors.Is matching.
var (
	ErrUnknownIdentifier = newError(CategoryNotFound, http.StatusNotFound, "UNKNOWN_IDENTIFIER", "unknown account identifier")
	ErrUnknownAccount    = newError(CategoryNotFound, http.StatusNotFound, "UNKNOWN_ACCOUNT", "unknown account number")

	ErrDuplicateAlias    = newError(CategoryConflict, http.StatusConflict, "DUPLICATE_ALIAS", "alias is bound to a different account")
	ErrDuplicateAccount  = newError(CategoryConflict, http.StatusConflict, "DUPLICATE_ACCOUNT", "account is registered under a different alias")
	ErrDuplicateBalance  = newError(CategoryConflict, http.StatusConflict, "DUPLICATE_BALANCE", "balance snapshot already recorded")
	ErrDuplicatePosition = newError(CategoryConflict, http.StatusConflict, "DUPLICATE_POSITION", "position snapshot already recorded")

	ErrNoAccountsSynced  = newError(CategoryNoData, http.StatusNotFound, "NO_ACCOUNTS_SYNCED", "no accounts have been synced")
	ErrNoBalanceSynced   = newError(CategoryNoData, http.StatusNotFound, "NO_BALANCE_SYNCED", "no balance has been synced for this account")
	ErrNoBalanceForDay   = newError(CategoryNoData, http.StatusNotFound, "NO_BALANCE_FOR_DAY", "no balance recorded for this day")
	ErrNoPositionsSynced = newError(CategoryNoData, http.StatusNotFound, "NO_POSITIONS_SYNCED", "no positions have been synced for this account")
	ErrNoSymbolSynced    = newError(CategoryNoData, http.StatusNotFound, "NO_SYMBOL_SYNCED", "symbol has never been synced for this account")
	ErrNoPositionForDay  = newError(CategoryNoData, http.StatusNotFound, "NO_POSITION_FOR_DAY", "no position recorded for this day")

	ErrNotAuthenticated = newError(CategoryAuthorization, http.StatusUnauthorized, "NOT_AUTHENTICATED", "broker rejected the access token")
	ErrPersistence      = newError(CategoryDatabase, http.StatusInternalServerError, "PERSISTENCE_ERROR", "failed to persist the account store")
)

func withDetails(base *CategorizedError, message string, details map[string]interface{}) *CategorizedError {
	return &CategorizedError{
		Category:   base.Category,
		StatusCode: base.StatusCode,
		Code:       base.Code,
		Message:    message,
		Details:    details,
	}
}

// Identity Errors

// NewUnknownIdentifierError creates an unknown identifier error
func NewUnknownIdentifierError(identifier string) *CategorizedError {
	return withDetails(ErrUnknownIdentifier,
		fmt.Sprintf("no account is known by alias or number %q", identifier),
		map[string]interface{}{"identifier": identifier})
}

// NewUnknownAccountError creates an unknown account error
func NewUnknownAccountError(number string) *CategorizedError {
	return withDetails(ErrUnknownAccount,
		fmt.Sprintf("account %s is not in the store", number),
		map[string]interface{}{"number": number})
}

// Duplicate Insert Errors

// NewDuplicateAliasError creates a duplicate alias error
func NewDuplicateAliasError(alias, boundNumber string) *CategorizedError {
	return withDetails(ErrDuplicateAlias,
		fmt.Sprintf("alias %q is already bound to account %s", alias, boundNumber),
		map[string]interface{}{"alias": alias, "number": boundNumber})
}

// NewDuplicateAccountError creates a duplicate account error
func NewDuplicateAccountError(number, boundAlias string) *CategorizedError {
	return withDetails(ErrDuplicateAccount,
		fmt.Sprintf("account %s is already registered as %q", number, boundAlias),
		map[string]interface{}{"number": number, "alias": boundAlias})
}

// NewDuplicateBalanceError creates a duplicate balance error
func NewDuplicateBalanceError(number string, date string, at string) *CategorizedError {
	return withDetails(ErrDuplicateBalance,
		fmt.Sprintf("balance for %s on %s at %s already recorded", number, date, at),
		map[string]interface{}{"number": number, "date": date, "time": at})
}

// NewDuplicatePositionError creates a duplicate position error
func NewDuplicatePositionError(symbol string, at string) *CategorizedError {
	return withDetails(ErrDuplicatePosition,
		fmt.Sprintf("position %s at %s already recorded", symbol, at),
		map[string]interface{}{"symbol": symbol, "time": at})
}

// No Data Errors

// NewNoBalanceForDayError creates a missing balance day error
func NewNoBalanceForDayError(date string) *CategorizedError {
	return withDetails(ErrNoBalanceForDay,
		fmt.Sprintf("no balance recorded on %s", date),
		map[string]interface{}{"date": date})
}

// NewNoSymbolSyncedError creates a never-synced symbol error
func NewNoSymbolSyncedError(symbol string) *CategorizedError {
	return withDetails(ErrNoSymbolSynced,
		fmt.Sprintf("symbol %s has never been synced", symbol),
		map[string]interface{}{"symbol": symbol})
}

// NewNoPositionForDayError creates a missing position day error
func NewNoPositionForDayError(symbol, date string) *CategorizedError {
	return withDetails(ErrNoPositionForDay,
		fmt.Sprintf("no %s position recorded on %s", symbol, date),
		map[string]interface{}{"symbol": symbol, "date": date})
}

// User Input Errors (4xx)

// NewInvalidParameterError creates an invalid parameter error
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_PARAMETER",
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(retryAfter int) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryRateLimit,
		StatusCode: http.StatusTooManyRequests,
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "rate limit exceeded",
		Details: map[string]interface{}{
			"retryAfter": retryAfter,
		},
	}
}

// System Errors (5xx)

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Cause:      cause,
	}
}

// NewPersistenceError wraps a failed store flush or load
func NewPersistenceError(operation string, cause error) *CategorizedError {
	e := withDetails(ErrPersistence,
		fmt.Sprintf("persistence error during %s", operation),
		map[string]interface{}{"operation": operation})
	e.Cause = cause
	return e
}

// Broker API Errors

// NewNotAuthenticatedError creates a not authenticated error for the given call
func NewNotAuthenticatedError(operation string) *CategorizedError {
	return withDetails(ErrNotAuthenticated,
		fmt.Sprintf("not authenticated during %s", operation),
		map[string]interface{}{"operation": operation})
}

// NewProviderError creates a broker API error
func NewProviderError(provider string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryProvider,
		StatusCode: http.StatusBadGateway,
		Code:       "PROVIDER_ERROR",
		Message:    fmt.Sprintf("data provider error: %s", provider),
		Cause:      cause,
		Details: map[string]interface{}{
			"provider": provider,
		},
	}
}

// NewProviderStatusError creates a broker API error for an unexpected HTTP status
func NewProviderStatusError(provider string, status int, body string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryProvider,
		StatusCode: http.StatusBadGateway,
		Code:       "PROVIDER_ERROR",
		Message:    fmt.Sprintf("data provider %s returned status %d", provider, status),
		Details: map[string]interface{}{
			"provider": provider,
			"status":   status,
			"body":     body,
		},
	}
}

// Categorize categorizes an existing error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr
	}

	var svcErr *types.ServiceError
	if stderrors.As(err, &svcErr) {
		return categorizeServiceError(svcErr)
	}

	// Default to internal error
	return NewInternalError("unexpected error", err)
}

// categorizeServiceError categorizes a ServiceError
func categorizeServiceError(err *types.ServiceError) *CategorizedError {
	for _, sentinel := range []*CategorizedError{
		ErrUnknownIdentifier, ErrUnknownAccount,
		ErrDuplicateAlias, ErrDuplicateAccount, ErrDuplicateBalance, ErrDuplicatePosition,
		ErrNoAccountsSynced, ErrNoBalanceSynced, ErrNoBalanceForDay,
		ErrNoPositionsSynced, ErrNoSymbolSynced, ErrNoPositionForDay,
		ErrNotAuthenticated, ErrPersistence,
	} {
		if sentinel.Code == err.Code {
			return withDetails(sentinel, err.Message, err.Details)
		}
	}
	if err.Code == "INVALID_PARAMETER" {
		return &CategorizedError{
			Category:   CategoryValidation,
			StatusCode: http.StatusBadRequest,
			Code:       err.Code,
			Message:    err.Message,
			Details:    err.Details,
		}
	}
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       err.Code,
		Message:    err.Message,
		Details:    err.Details,
	}
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsDuplicate reports whether err is one of the duplicate insert errors
func IsDuplicate(err error) bool {
	catErr := Categorize(err)
	return catErr != nil && catErr.Category == CategoryConflict
}

// IsUserError determines if an error is a user error (4xx)
func IsUserError(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	return catErr.StatusCode >= 400 && catErr.StatusCode < 500
}

// IsSystemError determines if an error is a system error (5xx)
func IsSystemError(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	return catErr.StatusCode >= 500
}
