package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/account-monitor/internal/auth"
	apperrors "github.com/account-monitor/internal/errors"
	"github.com/account-monitor/internal/logging"
	"github.com/account-monitor/internal/models"
	"github.com/account-monitor/internal/types"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	providerName = "questrade"

	liveLoginURL     = "https://login.questrade.com/oauth2/token"
	practiceLoginURL = "https://practicelogin.questrade.com/oauth2/token"

	maxErrorBody = 512
)

// QuestradeConfig configures the Questrade client
type QuestradeConfig struct {
	Practice     bool
	LoginURL     string // overrides the live/practice login endpoint
	RateLimitRPS float64
	Timeout      time.Duration
}

// QuestradeClient talks to the Questrade REST API. The access token and API
// server are read from the credential holder on every request, so a renewal
// takes effect immediately.
type QuestradeClient struct {
	creds    *auth.Holder
	client   *http.Client
	limiter  *rate.Limiter
	loginURL string
	practice bool
	health   *healthTracker
	logger   *logging.Logger
}

// NewQuestradeClient creates a new Questrade API client
func NewQuestradeClient(creds *auth.Holder, cfg QuestradeConfig, logger *logging.Logger) (*QuestradeClient, error) {
	if creds == nil {
		return nil, fmt.Errorf("credential holder cannot be nil")
	}
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Nop()
	}

	loginURL := cfg.LoginURL
	if loginURL == "" {
		loginURL = liveLoginURL
		if cfg.Practice {
			loginURL = practiceLoginURL
		}
	}

	return &QuestradeClient{
		creds:    creds,
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), 1),
		loginURL: loginURL,
		practice: cfg.Practice,
		health:   newHealthTracker(),
		logger:   logger.WithField("component", "questrade"),
	}, nil
}

// Health returns request statistics for the broker API
func (c *QuestradeClient) Health() ProviderHealth {
	cred, _ := c.creds.Current()
	return c.health.Snapshot(cred.APIServer)
}

// Wire formats

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	APIServer    string `json:"api_server"`
}

type accountsResponse struct {
	Accounts []accountJSON `json:"accounts"`
}

type accountJSON struct {
	Type              types.AccountType       `json:"type"`
	Number            string                  `json:"number"`
	Status            types.AccountStatus     `json:"status"`
	IsPrimary         bool                    `json:"isPrimary"`
	IsBilling         bool                    `json:"isBilling"`
	ClientAccountType types.ClientAccountType `json:"clientAccountType"`
}

type balancesResponse struct {
	PerCurrencyBalances    []balanceJSON `json:"perCurrencyBalances"`
	SodPerCurrencyBalances []balanceJSON `json:"sodPerCurrencyBalances"`
}

type balanceJSON struct {
	Currency          types.Currency  `json:"currency"`
	Cash              decimal.Decimal `json:"cash"`
	MarketValue       decimal.Decimal `json:"marketValue"`
	TotalEquity       decimal.Decimal `json:"totalEquity"`
	BuyingPower       decimal.Decimal `json:"buyingPower"`
	MaintenanceExcess decimal.Decimal `json:"maintenanceExcess"`
}

type positionsResponse struct {
	Positions []positionJSON `json:"positions"`
}

type positionJSON struct {
	Symbol             string          `json:"symbol"`
	OpenQuantity       decimal.Decimal `json:"openQuantity"`
	ClosedQuantity     decimal.Decimal `json:"closedQuantity"`
	CurrentMarketValue decimal.Decimal `json:"currentMarketValue"`
	CurrentPrice       decimal.Decimal `json:"currentPrice"`
	AverageEntryPrice  decimal.Decimal `json:"averageEntryPrice"`
	ClosedPnl          decimal.Decimal `json:"closedPnl"`
	DayPnl             decimal.Decimal `json:"dayPnl"`
	OpenPnl            decimal.Decimal `json:"openPnl"`
	TotalCost          decimal.Decimal `json:"totalCost"`
}

func (b balanceJSON) snapshot() models.BalanceSnapshot {
	return models.BalanceSnapshot{
		Currency:          b.Currency,
		Cash:              b.Cash,
		MarketValue:       b.MarketValue,
		TotalEquity:       b.TotalEquity,
		BuyingPower:       b.BuyingPower,
		MaintenanceExcess: b.MaintenanceExcess,
	}
}

func (p positionJSON) snapshot() models.PositionSnapshot {
	return models.PositionSnapshot{
		Symbol:             p.Symbol,
		OpenQuantity:       p.OpenQuantity,
		ClosedQuantity:     p.ClosedQuantity,
		CurrentMarketValue: p.CurrentMarketValue,
		CurrentPrice:       p.CurrentPrice,
		AverageEntryPrice:  p.AverageEntryPrice,
		ClosedPnL:          p.ClosedPnl,
		DayPnL:             p.DayPnl,
		OpenPnL:            p.OpenPnl,
		TotalCost:          p.TotalCost,
	}
}

// Authenticate exchanges refreshToken for a new token set. The broker
// invalidates refreshToken once this succeeds.
func (c *QuestradeClient) Authenticate(ctx context.Context, refreshToken string) (auth.Credential, error) {
	query := url.Values{}
	query.Set("grant_type", "refresh_token")
	query.Set("refresh_token", refreshToken)

	var resp tokenResponse
	if err := c.get(ctx, "Authenticate", c.loginURL+"?"+query.Encode(), "", &resp); err != nil {
		return auth.Credential{}, err
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" || resp.APIServer == "" {
		return auth.Credential{}, apperrors.NewProviderError(providerName,
			NewAdapterError("Authenticate", fmt.Errorf("incomplete token response"), nil))
	}

	expiresAt := time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	c.logger.WithField("expiresAt", expiresAt.Format(time.RFC3339)).Info("Obtained new access token")

	return auth.Full(resp.RefreshToken, resp.AccessToken, resp.APIServer, expiresAt, c.practice), nil
}

// ListAccounts returns every account visible to the credential
func (c *QuestradeClient) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var resp accountsResponse
	if err := c.getAPI(ctx, "ListAccounts", "v1/accounts", &resp); err != nil {
		return nil, err
	}

	accounts := make([]models.Account, 0, len(resp.Accounts))
	for _, a := range resp.Accounts {
		accounts = append(accounts, models.Account{
			Number:            a.Number,
			Type:              a.Type,
			ClientAccountType: a.ClientAccountType,
			Status:            a.Status,
			IsPrimary:         a.IsPrimary,
			IsBilling:         a.IsBilling,
		})
	}
	return accounts, nil
}

// GetBalances returns current and start-of-day balances for the account
func (c *QuestradeClient) GetBalances(ctx context.Context, number string) (*Balances, error) {
	var resp balancesResponse
	if err := c.getAPI(ctx, "GetBalances", "v1/accounts/"+url.PathEscape(number)+"/balances", &resp); err != nil {
		return nil, err
	}

	balances := &Balances{
		PerCurrency:           make([]models.BalanceSnapshot, 0, len(resp.PerCurrencyBalances)),
		StartOfDayPerCurrency: make([]models.BalanceSnapshot, 0, len(resp.SodPerCurrencyBalances)),
	}
	for _, b := range resp.PerCurrencyBalances {
		balances.PerCurrency = append(balances.PerCurrency, b.snapshot())
	}
	for _, b := range resp.SodPerCurrencyBalances {
		balances.StartOfDayPerCurrency = append(balances.StartOfDayPerCurrency, b.snapshot())
	}
	return balances, nil
}

// GetPositions returns the current positions of the account
func (c *QuestradeClient) GetPositions(ctx context.Context, number string) ([]models.PositionSnapshot, error) {
	var resp positionsResponse
	if err := c.getAPI(ctx, "GetPositions", "v1/accounts/"+url.PathEscape(number)+"/positions", &resp); err != nil {
		return nil, err
	}

	positions := make([]models.PositionSnapshot, 0, len(resp.Positions))
	for _, p := range resp.Positions {
		positions = append(positions, p.snapshot())
	}
	return positions, nil
}

// getAPI issues an authenticated request against the account's API server
func (c *QuestradeClient) getAPI(ctx context.Context, op, path string, out interface{}) error {
	cred, _ := c.creds.Current()
	if cred.Kind != auth.KindFull {
		return apperrors.NewNotAuthenticatedError(op)
	}

	base := cred.APIServer
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return c.get(ctx, op, base+path, cred.AccessToken, out)
}

func (c *QuestradeClient) get(ctx context.Context, op, endpoint, accessToken string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		// Wait fails early when the next token is due after the deadline
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		} else if _, ok := ctx.Deadline(); ok {
			err = fmt.Errorf("%w: rate limit wait would pass the deadline", context.DeadlineExceeded)
		}
		return NewAdapterError(op, err, nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return NewAdapterError(op, fmt.Errorf("failed to create request: %w", redact(err)), nil)
	}
	req.Header.Set("Accept", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		err = redact(err)
		c.health.RecordFailure(err)
		return NewAdapterError(op, err, nil)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.health.RecordFailure(err)
		return NewAdapterError(op, fmt.Errorf("failed to read response: %w", err), nil)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.health.RecordFailure(fmt.Errorf("HTTP %d", resp.StatusCode))
		return apperrors.NewNotAuthenticatedError(op)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		c.health.RecordFailure(fmt.Errorf("HTTP %d", resp.StatusCode))
		return apperrors.NewProviderStatusError(providerName, resp.StatusCode, truncate(string(body), maxErrorBody))
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.health.RecordFailure(err)
		return NewAdapterError(op, fmt.Errorf("failed to parse response: %w", err), nil)
	}

	c.health.RecordSuccess(time.Since(start))
	c.logger.WithFields(map[string]interface{}{
		"op":       op,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("Broker request completed")
	return nil
}

// redact drops the query string from the URL quoted in a *url.Error. The
// login query carries the refresh token.
func redact(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}

	clean := urlErr.URL
	if i := strings.IndexByte(clean, '?'); i >= 0 {
		clean = clean[:i]
	}
	return &url.Error{Op: urlErr.Op, URL: clean, Err: urlErr.Err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
