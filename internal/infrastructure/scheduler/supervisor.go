package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/channelpilot/backend/internal/application/adspend"
	appsync "github.com/channelpilot/backend/internal/application/sync"
	"github.com/channelpilot/backend/internal/application/tracking"
	"github.com/channelpilot/backend/internal/domain/channel"
	"github.com/channelpilot/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Runner ports
// ---------------------------------------------------------------------------

// OrderSyncRunner runs one order import batch for an account
type OrderSyncRunner interface {
	SyncOrders(ctx context.Context, account *channel.Account) (appsync.Result, error)
}

// TrackingRefresher refreshes stale shipments of one courier
type TrackingRefresher interface {
	RefreshCourier(ctx context.Context, source integration.TrackingSource) (tracking.Stats, error)
}

// SpendSyncer pulls the previous day's ad spend for a user
type SpendSyncer interface {
	SyncYesterday(ctx context.Context, userID uuid.UUID) adspend.Stats
}

// AccountLister lists accounts eligible for scheduled syncs.
// channel.AccountRepository satisfies it.
type AccountLister interface {
	FindAllConnected(ctx context.Context) ([]channel.Account, error)
}

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config holds supervisor configuration
type Config struct {
	// SyncInterval is the pause between scheduled order import passes
	SyncInterval time.Duration
	// TrackingInterval is the pause between courier refresh ticks
	TrackingInterval time.Duration
	// TrackingInitialDelayMax staggers the per-courier tickers so they do
	// not all fire on the same instant after startup
	TrackingInitialDelayMax time.Duration
	// AdSpendHour is the local hour of day for the daily spend pull
	AdSpendHour int
	// AdSpendCheckInterval is how often the spend loop checks the clock
	AdSpendCheckInterval time.Duration
}

// DefaultConfig returns production defaults
func DefaultConfig() Config {
	return Config{
		SyncInterval:            time.Hour,
		TrackingInterval:        30 * time.Minute,
		TrackingInitialDelayMax: 30 * time.Second,
		AdSpendHour:             2,
		AdSpendCheckInterval:    time.Minute,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.SyncInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.TrackingInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.TrackingInitialDelayMax < 0 {
		return ErrInvalidConfig
	}
	if c.AdSpendHour < 0 || c.AdSpendHour > 23 {
		return ErrInvalidConfig
	}
	if c.AdSpendCheckInterval <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// WorkerSupervisor
// ---------------------------------------------------------------------------

// WorkerSupervisor owns the background loops: a periodic order import pass
// over every connected account, one refresh ticker per registered courier,
// and a daily ad spend pull. Loops are independent; a slow courier never
// delays order imports.
type WorkerSupervisor struct {
	config   Config
	registry *integration.Registry
	accounts AccountLister
	syncer   OrderSyncRunner
	tracker  TrackingRefresher
	spend    SpendSyncer
	logger   *zap.Logger

	// now is replaceable in tests
	now func() time.Time

	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	isRunning  bool
	lastRunDay string
}

// NewWorkerSupervisor creates a worker supervisor
func NewWorkerSupervisor(
	config Config,
	registry *integration.Registry,
	accounts AccountLister,
	syncer OrderSyncRunner,
	tracker TrackingRefresher,
	spend SpendSyncer,
	logger *zap.Logger,
) (*WorkerSupervisor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &WorkerSupervisor{
		config:   config,
		registry: registry,
		accounts: accounts,
		syncer:   syncer,
		tracker:  tracker,
		spend:    spend,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Start launches the background loops
func (s *WorkerSupervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.syncLoop(ctx)

	for _, source := range s.registry.TrackingSources() {
		s.wg.Add(1)
		go s.trackingLoop(ctx, source)
	}

	s.wg.Add(1)
	go s.spendLoop(ctx)

	s.logger.Info("worker supervisor started",
		zap.Duration("sync_interval", s.config.SyncInterval),
		zap.Duration("tracking_interval", s.config.TrackingInterval),
		zap.Int("courier_tickers", len(s.registry.TrackingSources())),
		zap.Int("ad_spend_hour", s.config.AdSpendHour),
	)
	return nil
}

// Stop cancels the loops and waits for them to drain
func (s *WorkerSupervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("worker supervisor stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("worker supervisor stop timed out")
		return ctx.Err()
	}
}

// ---------------------------------------------------------------------------
// Order import loop
// ---------------------------------------------------------------------------

func (s *WorkerSupervisor) syncLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunSyncPass(ctx)
		}
	}
}

// RunSyncPass runs one order import pass over every connected account.
// An account already being synced elsewhere is skipped, not queued.
func (s *WorkerSupervisor) RunSyncPass(ctx context.Context) {
	accounts, err := s.accounts.FindAllConnected(ctx)
	if err != nil {
		s.logger.Error("scheduled sync pass failed to list accounts", zap.Error(err))
		return
	}

	for i := range accounts {
		account := &accounts[i]
		result, err := s.syncer.SyncOrders(ctx, account)
		switch {
		case errors.Is(err, integration.ErrSyncInProgress):
			s.logger.Debug("account sync already in flight",
				zap.String("account_id", account.ID.String()))
		case err != nil:
			s.logger.Error("scheduled account sync failed",
				zap.String("account_id", account.ID.String()),
				zap.String("channel", account.Channel.String()),
				zap.Error(err))
		default:
			s.logger.Info("scheduled account sync finished",
				zap.String("account_id", account.ID.String()),
				zap.String("channel", account.Channel.String()),
				zap.Int("imported", result.Imported),
				zap.Int("updated", result.Updated),
				zap.Int("failed", result.Failed))
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Courier tracking loops
// ---------------------------------------------------------------------------

func (s *WorkerSupervisor) trackingLoop(ctx context.Context, source integration.TrackingSource) {
	defer s.wg.Done()

	// Stagger startup so couriers do not fire in lockstep
	if s.config.TrackingInitialDelayMax > 0 {
		delay := time.Duration(rand.Int63n(int64(s.config.TrackingInitialDelayMax)))
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}

	ticker := time.NewTicker(s.config.TrackingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := s.tracker.RefreshCourier(ctx, source)
			if err != nil {
				s.logger.Error("courier refresh tick failed",
					zap.String("courier", source.CourierFamily().String()),
					zap.Error(err))
				continue
			}
			s.logger.Info("courier refresh tick finished",
				zap.String("courier", source.CourierFamily().String()),
				zap.Int("selected", stats.Selected),
				zap.Int("updated", stats.Updated),
				zap.Int("terminal", stats.Terminal),
				zap.Int("failed", stats.Failed))
		}
	}
}

// ---------------------------------------------------------------------------
// Daily ad spend loop
// ---------------------------------------------------------------------------

func (s *WorkerSupervisor) spendLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.AdSpendCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := s.now()
			day := now.Format("2006-01-02")
			if now.Hour() != s.config.AdSpendHour {
				continue
			}

			s.mu.Lock()
			alreadyRan := s.lastRunDay == day
			if !alreadyRan {
				s.lastRunDay = day
			}
			s.mu.Unlock()
			if alreadyRan {
				continue
			}

			s.RunSpendPass(ctx)
		}
	}
}

// RunSpendPass pulls yesterday's spend for every user that owns a connected
// account. Users appear once regardless of how many accounts they hold.
func (s *WorkerSupervisor) RunSpendPass(ctx context.Context) {
	accounts, err := s.accounts.FindAllConnected(ctx)
	if err != nil {
		s.logger.Error("spend pass failed to list accounts", zap.Error(err))
		return
	}

	seen := make(map[uuid.UUID]struct{}, len(accounts))
	for i := range accounts {
		userID := accounts[i].UserID
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}

		stats := s.spend.SyncYesterday(ctx, userID)
		s.logger.Info("daily spend sync finished",
			zap.String("user_id", userID.String()),
			zap.Int("synced", stats.Synced),
			zap.Int("skipped", stats.Skipped),
			zap.Int("failed", stats.Failed))
		if ctx.Err() != nil {
			return
		}
	}
}
