package api

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/account-monitor/internal/adapter"
	"github.com/account-monitor/internal/models"
	"github.com/account-monitor/internal/service"
	"github.com/account-monitor/internal/storage"
	"github.com/account-monitor/internal/types"
	"github.com/account-monitor/internal/worker"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pastDay = models.Date("2024-03-01")

func testConfig() *ServerConfig {
	return &ServerConfig{
		Host:           "127.0.0.1",
		Port:           "0",
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}
}

func cashBalance(cash int64) models.BalanceSnapshot {
	return models.BalanceSnapshot{
		Currency:    types.CurrencyCAD,
		Cash:        decimal.NewFromInt(cash),
		MarketValue: decimal.NewFromInt(cash * 2),
		TotalEquity: decimal.NewFromInt(cash * 3),
	}
}

func position(symbol string, marketValue int64) models.PositionSnapshot {
	return models.PositionSnapshot{
		Symbol:             symbol,
		OpenQuantity:       decimal.NewFromInt(10),
		CurrentMarketValue: decimal.NewFromInt(marketValue),
		TotalCost:          decimal.NewFromInt(1000),
	}
}

// seededStore holds account "123" (alias "Primary") with readings on pastDay
// and today
func seededStore(t *testing.T) *storage.SharedStore {
	t.Helper()
	today := models.DateOf(time.Now())

	store := storage.NewSharedStore(nil)
	require.NoError(t, store.InsertAccount("Primary", models.Account{Number: "123", Type: types.AccountTypeTFSA, IsPrimary: true}))

	require.NoError(t, store.InsertBalance("123", pastDay, models.Clock(9, 0, 0), cashBalance(100), cashBalance(90)))
	require.NoError(t, store.InsertBalance("123", pastDay, models.Clock(9, 5, 0), cashBalance(105), cashBalance(90)))
	require.NoError(t, store.InsertBalance("123", today, models.Clock(10, 0, 0), cashBalance(50), cashBalance(40)))

	require.NoError(t, store.InsertPosition("123", pastDay, models.Clock(9, 0, 0), position("VFV.TO", 1050)))
	require.NoError(t, store.InsertPosition("123", pastDay, models.Clock(9, 30, 0), position("VFV.TO", 1070)))
	require.NoError(t, store.InsertPosition("123", today, models.Clock(10, 0, 0), position("VFV.TO", 1100)))
	return store
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(testConfig(), service.NewQueryService(seededStore(t)), nil, nil, nil)
}

func doRequest(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Error.Code
}

func TestServer_AccountRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/raw/account/list")
	require.Equal(t, http.StatusOK, rec.Code)
	var list AccountListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, []string{"Primary"}, list.Accounts)

	for _, id := range []string{"Primary", "123"} {
		rec = doRequest(s, http.MethodGet, "/raw/account/"+id)
		require.Equal(t, http.StatusOK, rec.Code, id)
		var acct models.Account
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &acct))
		assert.Equal(t, "123", acct.Number)
		assert.Equal(t, "Primary", acct.DisplayAlias)
	}

	rec = doRequest(s, http.MethodGet, "/raw/account/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "UNKNOWN_IDENTIFIER", errorCode(t, rec))
}

func TestServer_BalanceRoutes(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		target string
		cash   string
	}{
		{"/raw/balance/Primary/sod", "40"},
		{"/raw/balance/Primary/latest", "50"},
		{"/raw/balance/123/2024-03-01/sod", "90"},
		{"/raw/balance/123/2024-03-01/latest", "105"},
		{"/raw/balance/Primary/2024-03-01/09:01", "100"},
		{"/raw/balance/Primary/2024-03-01/09:04:00", "105"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := doRequest(s, http.MethodGet, tt.target)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			body := decodeBody(t, rec)
			assert.Equal(t, tt.cash, body["cash"])
		})
	}
}

func TestServer_BalanceErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		target string
		status int
		code   string
	}{
		{"/raw/balance/Primary/2024-02-30/latest", http.StatusBadRequest, "INVALID_PARAMETER"},
		{"/raw/balance/Primary/2024-03-01/noon", http.StatusBadRequest, "INVALID_PARAMETER"},
		{"/raw/balance/Primary/2024-02-01/latest", http.StatusNotFound, "NO_BALANCE_FOR_DAY"},
		{"/raw/balance/ghost/latest", http.StatusNotFound, "UNKNOWN_IDENTIFIER"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := doRequest(s, http.MethodGet, tt.target)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestServer_PositionRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/raw/position/Primary/list")
	require.Equal(t, http.StatusOK, rec.Code)
	var list PositionListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, []string{"VFV.TO"}, list.Symbols)

	tests := []struct {
		target string
		value  string
	}{
		{"/raw/position/Primary/VFV.TO/latest", "1100"},
		{"/raw/position/123/VFV.TO/2024-03-01/latest", "1070"},
		{"/raw/position/Primary/VFV.TO/2024-03-01/09:10", "1050"},
		{"/raw/position/Primary/VFV.TO/2024-03-01/09:20", "1070"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := doRequest(s, http.MethodGet, tt.target)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			body := decodeBody(t, rec)
			assert.Equal(t, tt.value, body["currentMarketValue"])
			assert.Equal(t, "VFV.TO", body["symbol"])
		})
	}

	rec = doRequest(s, http.MethodGet, "/raw/position/Primary/XEQT.TO/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NO_SYMBOL_SYNCED", errorCode(t, rec))
}

func TestServer_Statusbar(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/statusbar/Primary/%25bal.cash_(%25bal.cashPNL%25)_%25dollar%25VFV.TO.currentMarketValue")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	// cash 40 at start of day, 50 now
	assert.Equal(t, "50.00 (25.00%) $1100.00", rec.Body.String())

	rec = doRequest(s, http.MethodGet, "/statusbar/ghost/%25bal.cash")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Statusbar_NoBalanceToday(t *testing.T) {
	store := storage.NewSharedStore(nil)
	require.NoError(t, store.InsertAccount("Primary", models.Account{Number: "123"}))
	require.NoError(t, store.InsertBalance("123", pastDay, models.Clock(9, 0, 0), cashBalance(1), cashBalance(1)))
	s := NewServer(testConfig(), service.NewQueryService(store), nil, nil, nil)

	rec := doRequest(s, http.MethodGet, "/statusbar/Primary/%25bal.cash")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NO_BALANCE_FOR_DAY", errorCode(t, rec))
}

func TestServer_EmptyStore(t *testing.T) {
	s := NewServer(testConfig(), service.NewQueryService(storage.NewSharedStore(nil)), nil, nil, nil)

	rec := doRequest(s, http.MethodGet, "/raw/account/list")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NO_ACCOUNTS_SYNCED", errorCode(t, rec))
}

func TestServer_UnknownRoute(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/raw/nothing/here")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ErrCodeNotFound, errorCode(t, rec))
}

type staticSyncStatus struct{ status worker.SyncWorkerStatus }

func (s staticSyncStatus) GetStatus() *worker.SyncWorkerStatus {
	status := s.status
	return &status
}

type staticBrokerHealth struct{ health adapter.ProviderHealth }

func (s staticBrokerHealth) Health() adapter.ProviderHealth { return s.health }

func TestServer_Health(t *testing.T) {
	querySvc := service.NewQueryService(seededStore(t))

	tests := []struct {
		name    string
		state   worker.State
		healthy bool
		status  string
	}{
		{"healthy", worker.StateSleeping, true, "healthy"},
		{"worker stopped", worker.StateStopped, true, "degraded"},
		{"broker failing", worker.StateSyncing, false, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(testConfig(), querySvc,
				staticSyncStatus{worker.SyncWorkerStatus{State: tt.state, Running: true}},
				staticBrokerHealth{adapter.ProviderHealth{IsHealthy: tt.healthy}},
				nil)

			rec := doRequest(s, http.MethodGet, "/health")
			require.Equal(t, http.StatusOK, rec.Code)

			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, "account-monitor", resp.Service)
			assert.Equal(t, 1, resp.Store.Accounts)
			require.NotNil(t, resp.Sync)
			assert.Equal(t, tt.state, resp.Sync.State)
			require.NotNil(t, resp.Broker)
		})
	}
}

func TestServer_HealthWithoutProviders(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.NotContains(t, body, "sync")
	assert.NotContains(t, body, "broker")
}

func TestServer_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRPS = 1
	cfg.RateLimitBurst = 2
	s := NewServer(cfg, service.NewQueryService(seededStore(t)), nil, nil, nil)

	for i := 0; i < 2; i++ {
		rec := doRequest(s, http.MethodGet, "/raw/account/list")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doRequest(s, http.MethodGet, "/raw/account/list")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, ErrCodeRateLimitExceeded, errorCode(t, rec))

	// another client has its own budget
	req := httptest.NewRequest(http.MethodGet, "/raw/account/list", nil)
	req.RemoteAddr = "198.51.100.7:4242"
	other := httptest.NewRecorder()
	s.Handler().ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestServer_RequestID(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/raw/account/list")
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/raw/account/list", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
}

func TestServer_CORSPreflight(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodOptions, "/raw/account/list")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_Compression(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/raw/account/list", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	gz, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	plain, err := io.ReadAll(gz)
	require.NoError(t, err)

	var list AccountListResponse
	require.NoError(t, json.Unmarshal(plain, &list))
	assert.Equal(t, []string{"Primary"}, list.Accounts)
}

// brokenService fails or panics on ListAccounts; every other call panics
// through the nil embedded interface
type brokenService struct {
	QueryServiceInterface
	err error
}

func (b brokenService) ListAccounts() ([]string, error) {
	if b.err == nil {
		panic("store corrupted")
	}
	return nil, b.err
}

func TestServer_InternalErrorHidesCause(t *testing.T) {
	s := NewServer(testConfig(), brokenService{err: io.ErrUnexpectedEOF}, nil, nil, nil)

	rec := doRequest(s, http.MethodGet, "/raw/account/list")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ErrCodeInternalError, errorCode(t, rec))
	assert.NotContains(t, rec.Body.String(), io.ErrUnexpectedEOF.Error())
}

func TestServer_RecoversFromPanic(t *testing.T) {
	s := NewServer(testConfig(), brokenService{}, nil, nil, nil)

	rec := doRequest(s, http.MethodGet, "/raw/account/list")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ErrCodeInternalError, errorCode(t, rec))
}
