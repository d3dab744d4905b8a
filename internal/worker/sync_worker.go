package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/account-monitor/internal/adapter"
	"github.com/account-monitor/internal/auth"
	"github.com/account-monitor/internal/config"
	apperrors "github.com/account-monitor/internal/errors"
	"github.com/account-monitor/internal/logging"
	"github.com/account-monitor/internal/models"
	"github.com/account-monitor/internal/storage"
	"github.com/account-monitor/internal/types"
)

// State is the phase of the sync cycle the worker is in
type State string

const (
	StateIdle        State = "idle"
	StateDiscovering State = "discovering"
	StateSyncing     State = "syncing_balances_and_positions"
	StatePersisting  State = "persisting"
	StateSleeping    State = "sleeping"
	StateStopped     State = "stopped"
)

// flushTimeout bounds a single store flush. The flush is not tied to the
// cycle deadline.
const flushTimeout = 30 * time.Second

// Flusher writes the whole store to durable storage
type Flusher interface {
	Save(ctx context.Context, store *storage.SharedStore) error
}

// SyncWorker pulls accounts, balances and positions from the broker on a
// fixed cadence and merges them into the shared store
type SyncWorker struct {
	broker   adapter.Broker
	creds    *auth.Holder
	store    *storage.SharedStore
	flusher  Flusher
	rules    *config.AccountRules
	currency types.Currency
	delay    time.Duration
	logger   *logging.Logger
	now      func() time.Time

	// renewMu collapses concurrent renewals into one Authenticate call
	renewMu sync.Mutex

	mu                sync.RWMutex
	state             State
	running           bool
	cyclesCompleted   int64
	lastCycleStart    time.Time
	lastCycleDuration time.Duration
	lastCycle         CycleStats
	lastError         string
}

// SyncWorkerConfig holds configuration for a sync worker
type SyncWorkerConfig struct {
	Broker      adapter.Broker
	Credentials *auth.Holder
	Store       *storage.SharedStore
	Flusher     Flusher
	Rules       *config.AccountRules // defaults to config.DefaultAccountRules
	Currency    types.Currency       // preferred balance currency
	Delay       time.Duration        // cycle length (default: 5 minutes)
	Logger      *logging.Logger
	Now         func() time.Time // clock override for tests
}

// NewSyncWorker creates a new sync worker
func NewSyncWorker(cfg *SyncWorkerConfig) (*SyncWorker, error) {
	if cfg.Broker == nil {
		return nil, fmt.Errorf("broker cannot be nil")
	}
	if cfg.Credentials == nil {
		return nil, fmt.Errorf("credential holder cannot be nil")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if cfg.Flusher == nil {
		return nil, fmt.Errorf("flusher cannot be nil")
	}

	delay := cfg.Delay
	if delay == 0 {
		delay = 5 * time.Minute
	}
	if delay < 0 {
		return nil, fmt.Errorf("delay must be positive, got %v", delay)
	}

	rules := cfg.Rules
	if rules == nil {
		rules = config.DefaultAccountRules()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &SyncWorker{
		broker:   cfg.Broker,
		creds:    cfg.Credentials,
		store:    cfg.Store,
		flusher:  cfg.Flusher,
		rules:    rules,
		currency: cfg.Currency,
		delay:    delay,
		logger:   logger.WithField("component", "sync_worker"),
		now:      now,
		state:    StateIdle,
	}, nil
}

// Run drives the sync loop until ctx is cancelled. It returns nil on
// cancellation and an error only when the store cannot be flushed.
func (w *SyncWorker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("sync worker is already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.state = StateStopped
		w.mu.Unlock()
	}()

	w.logger.WithField("delay", w.delay.String()).Info("Starting sync worker")

	for {
		// Deadlines feed context.WithDeadline, which compares against the
		// wall clock, so they are not taken from w.now.
		deadline := time.Now().Add(w.delay)

		if _, err := w.RunCycle(ctx, deadline); err != nil {
			w.logger.WithError(err).Error("Sync worker stopping: store flush failed")
			return err
		}

		if ctx.Err() != nil {
			w.logger.Info("Sync worker stopped")
			return nil
		}

		w.setState(StateSleeping)
		timer := time.NewTimer(time.Until(deadline))
		select {
		case <-ctx.Done():
			timer.Stop()
			w.logger.Info("Sync worker stopped")
			return nil
		case <-timer.C:
		}
		w.setState(StateIdle)
	}
}

// RunCycle performs one discover, sync and persist pass. Broker calls are
// bounded by deadline; the flush is not. Only a flush failure is returned.
func (w *SyncWorker) RunCycle(ctx context.Context, deadline time.Time) (CycleStats, error) {
	start := w.now()
	stats := &cycleCounter{}

	w.mu.Lock()
	w.lastCycleStart = start
	w.mu.Unlock()

	authCtx, cancelAuth := context.WithDeadline(ctx, deadline)
	err := w.ensureAuthenticated(authCtx)
	cancelAuth()
	if err != nil {
		stats.addFetchError(authCtx, err)
		w.logger.WithError(err).Warn("Failed to renew credential before cycle")
	}

	w.setState(StateDiscovering)
	w.discover(ctx, deadline, stats)

	w.setState(StateSyncing)
	w.syncAccounts(ctx, deadline, stats)

	w.setState(StatePersisting)
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	flushErr := w.flusher.Save(flushCtx, w.store)
	cancel()

	result := stats.snapshot()
	duration := w.now().Sub(start)

	w.mu.Lock()
	w.cyclesCompleted++
	w.lastCycleDuration = duration
	w.lastCycle = result
	w.lastError = ""
	if flushErr != nil {
		w.lastError = flushErr.Error()
	}
	w.mu.Unlock()

	if flushErr != nil {
		return result, flushErr
	}

	w.logger.WithFields(map[string]interface{}{
		"accounts":  result.AccountsDiscovered,
		"balances":  result.BalancesCommitted,
		"positions": result.PositionsCommitted,
		"timeouts":  result.Timeouts,
		"errors":    result.Errors,
		"duration":  duration.String(),
	}).Info("Sync cycle completed")

	return result, nil
}

// discover lists the broker's accounts and registers the selected ones
func (w *SyncWorker) discover(ctx context.Context, deadline time.Time, stats *cycleCounter) {
	callCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	var accounts []models.Account
	err := w.withAuthRetry(callCtx, func(ctx context.Context) error {
		var err error
		accounts, err = w.broker.ListAccounts(ctx)
		return err
	})
	if err != nil {
		stats.addFetchError(callCtx, err)
		w.logger.WithError(err).Warn("Failed to list accounts")
		return
	}

	for _, acct := range accounts {
		alias, ok := w.rules.Select(acct)
		if !ok {
			w.logger.WithField("account", acct.Number).Debug("Account not selected")
			continue
		}

		if err := w.store.InsertAccount(alias, acct); err != nil {
			if apperrors.IsDuplicate(err) {
				w.logger.WithError(err).WithField("account", acct.Number).Debug("Account already registered")
				continue
			}
			stats.addError()
			w.logger.WithError(err).WithField("account", acct.Number).Error("Failed to register account")
			continue
		}
		stats.addAccount()
	}
}

// syncAccounts fetches balances and positions of every known account
// concurrently. Each result is committed as soon as it arrives.
func (w *SyncWorker) syncAccounts(ctx context.Context, deadline time.Time, stats *cycleCounter) {
	callCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	var wg sync.WaitGroup
	for _, number := range w.store.AccountNumbers() {
		wg.Add(2)
		go func(number string) {
			defer wg.Done()
			w.syncBalance(callCtx, number, stats)
		}(number)
		go func(number string) {
			defer wg.Done()
			w.syncPositions(callCtx, number, stats)
		}(number)
	}
	wg.Wait()
}

func (w *SyncWorker) syncBalance(ctx context.Context, number string, stats *cycleCounter) {
	logger := w.logger.WithField("account", number)

	var balances *adapter.Balances
	err := w.withAuthRetry(ctx, func(ctx context.Context) error {
		var err error
		balances, err = w.broker.GetBalances(ctx, number)
		return err
	})
	if err != nil {
		if stats.addFetchError(ctx, err) {
			logger.Warn("Balance fetch timed out")
		} else {
			logger.WithError(err).Warn("Failed to fetch balances")
		}
		return
	}

	current, ok := selectCurrency(balances.PerCurrency, w.currency)
	if !ok {
		logger.Warn("Broker returned no balances")
		return
	}
	startOfDay, ok := selectCurrency(balances.StartOfDayPerCurrency, w.currency)
	if !ok {
		startOfDay = current
	}

	retrieved := w.now()
	if err := w.store.InsertBalance(number, models.DateOf(retrieved), models.TimeOfDayOf(retrieved), current, startOfDay); err != nil {
		if apperrors.IsDuplicate(err) {
			logger.WithError(err).Debug("Balance already recorded")
			stats.addDuplicate()
			return
		}
		stats.addError()
		logger.WithError(err).Error("Failed to record balance")
		return
	}
	stats.addBalance()
}

func (w *SyncWorker) syncPositions(ctx context.Context, number string, stats *cycleCounter) {
	logger := w.logger.WithField("account", number)

	var positions []models.PositionSnapshot
	err := w.withAuthRetry(ctx, func(ctx context.Context) error {
		var err error
		positions, err = w.broker.GetPositions(ctx, number)
		return err
	})
	if err != nil {
		if stats.addFetchError(ctx, err) {
			logger.Warn("Position fetch timed out")
		} else {
			logger.WithError(err).Warn("Failed to fetch positions")
		}
		return
	}

	retrieved := w.now()
	date, at := models.DateOf(retrieved), models.TimeOfDayOf(retrieved)
	for _, position := range positions {
		if err := w.store.InsertPosition(number, date, at, position); err != nil {
			if apperrors.IsDuplicate(err) {
				logger.WithError(err).WithField("symbol", position.Symbol).Debug("Position already recorded")
				stats.addDuplicate()
				continue
			}
			stats.addError()
			logger.WithError(err).WithField("symbol", position.Symbol).Error("Failed to record position")
			continue
		}
		stats.addPosition()
	}
}

// selectCurrency picks the entry in currency, falling back to the first one
func selectCurrency(balances []models.BalanceSnapshot, currency types.Currency) (models.BalanceSnapshot, bool) {
	if len(balances) == 0 {
		return models.BalanceSnapshot{}, false
	}
	for _, b := range balances {
		if b.Currency == currency {
			return b, true
		}
	}
	return balances[0], true
}

// ensureAuthenticated renews the credential when it is expired or about to be
func (w *SyncWorker) ensureAuthenticated(ctx context.Context) error {
	cred, gen := w.creds.Current()
	if !cred.IsExpired(w.now()) {
		return nil
	}
	return w.renew(ctx, gen)
}

// withAuthRetry runs call, and on a not-authenticated failure renews the
// credential and runs it once more
func (w *SyncWorker) withAuthRetry(ctx context.Context, call func(ctx context.Context) error) error {
	gen := w.creds.Generation()

	err := call(ctx)
	if err == nil || !errors.Is(err, apperrors.ErrNotAuthenticated) {
		return err
	}

	if renewErr := w.renew(ctx, gen); renewErr != nil {
		return renewErr
	}
	return call(ctx)
}

// renew exchanges the refresh token for a new credential unless the
// credential of generation staleGen has already been replaced
func (w *SyncWorker) renew(ctx context.Context, staleGen uint64) error {
	w.renewMu.Lock()
	defer w.renewMu.Unlock()

	cred, gen := w.creds.Current()
	if gen != staleGen {
		return nil
	}

	fresh, err := w.broker.Authenticate(ctx, cred.RefreshToken())
	if err != nil {
		return fmt.Errorf("failed to renew credential: %w", err)
	}

	if err := w.creds.Renew(fresh); err != nil {
		w.logger.WithError(err).Error("Failed to save renewed credential")
	}

	w.logger.WithField("expiresAt", fresh.ExpiresAt.Format(time.RFC3339)).Info("Credential renewed")
	return nil
}

func (w *SyncWorker) setState(state State) {
	w.mu.Lock()
	w.state = state
	w.mu.Unlock()
}

// GetStatus returns current worker status
func (w *SyncWorker) GetStatus() *SyncWorkerStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return &SyncWorkerStatus{
		State:             w.state,
		Running:           w.running,
		CyclesCompleted:   w.cyclesCompleted,
		LastCycleStart:    w.lastCycleStart,
		LastCycleDuration: w.lastCycleDuration,
		LastCycle:         w.lastCycle,
		LastError:         w.lastError,
		DelaySeconds:      int(w.delay.Seconds()),
	}
}

// SyncWorkerStatus represents the current status of a sync worker
type SyncWorkerStatus struct {
	State             State         `json:"state"`
	Running           bool          `json:"running"`
	CyclesCompleted   int64         `json:"cyclesCompleted"`
	LastCycleStart    time.Time     `json:"lastCycleStart"`
	LastCycleDuration time.Duration `json:"lastCycleDuration"`
	LastCycle         CycleStats    `json:"lastCycle"`
	LastError         string        `json:"lastError,omitempty"`
	DelaySeconds      int           `json:"delaySeconds"`
}

// CycleStats counts the outcomes of one sync cycle
type CycleStats struct {
	AccountsDiscovered int `json:"accountsDiscovered"`
	BalancesCommitted  int `json:"balancesCommitted"`
	PositionsCommitted int `json:"positionsCommitted"`
	Duplicates         int `json:"duplicates"`
	Timeouts           int `json:"timeouts"`
	Errors             int `json:"errors"`
}

type cycleCounter struct {
	mu    sync.Mutex
	stats CycleStats
}

func (c *cycleCounter) add(fn func(s *CycleStats)) {
	c.mu.Lock()
	fn(&c.stats)
	c.mu.Unlock()
}

func (c *cycleCounter) addAccount()   { c.add(func(s *CycleStats) { s.AccountsDiscovered++ }) }
func (c *cycleCounter) addBalance()   { c.add(func(s *CycleStats) { s.BalancesCommitted++ }) }
func (c *cycleCounter) addPosition()  { c.add(func(s *CycleStats) { s.PositionsCommitted++ }) }
func (c *cycleCounter) addDuplicate() { c.add(func(s *CycleStats) { s.Duplicates++ }) }
func (c *cycleCounter) addError()     { c.add(func(s *CycleStats) { s.Errors++ }) }

// addFetchError counts a failed broker call and reports whether it was the
// cycle deadline
func (c *cycleCounter) addFetchError(ctx context.Context, err error) bool {
	timedOut := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
	if timedOut {
		c.add(func(s *CycleStats) { s.Timeouts++ })
	} else {
		c.add(func(s *CycleStats) { s.Errors++ })
	}
	return timedOut
}

func (c *cycleCounter) snapshot() CycleStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
