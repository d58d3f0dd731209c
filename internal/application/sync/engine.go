package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/channelpilot/backend/internal/domain/channel"
	"github.com/channelpilot/backend/internal/domain/integration"
)

// Config tunes the sync engine
type Config struct {
	// LockTTL bounds how long a crashed run can block an account
	LockTTL time.Duration
	// Lookback is the fetch window for accounts that never synced
	Lookback time.Duration
}

// DefaultConfig returns production defaults
func DefaultConfig() Config {
	return Config{
		LockTTL:  10 * time.Minute,
		Lookback: 30 * 24 * time.Hour,
	}
}

// Result summarizes one engine invocation
type Result struct {
	JobID    uuid.UUID
	Imported int
	Updated  int
	Failed   int
}

// Engine pulls orders from a channel into the local store. One invocation is
// one SyncJob: lock the account, resolve credentials, fetch since the last
// cursor, persist each order, advance the cursor. Item failures are isolated;
// the batch keeps going and the job ends PARTIAL.
type Engine struct {
	registry  *integration.Registry
	resolver  *channel.Resolver
	persister *OrderPersister
	accounts  channel.AccountRepository
	jobs      channel.SyncJobRepository
	locker    AccountLocker
	cfg       Config
	logger    *zap.Logger
}

// NewEngine creates the sync engine
func NewEngine(
	registry *integration.Registry,
	resolver *channel.Resolver,
	persister *OrderPersister,
	accounts channel.AccountRepository,
	jobs channel.SyncJobRepository,
	locker AccountLocker,
	cfg Config,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		registry:  registry,
		resolver:  resolver,
		persister: persister,
		accounts:  accounts,
		jobs:      jobs,
		locker:    locker,
		cfg:       cfg,
		logger:    logger,
	}
}

// SyncOrders runs one import batch for an account. A run already in flight
// for the same account returns ErrSyncInProgress immediately; nothing queues.
func (e *Engine) SyncOrders(ctx context.Context, account *channel.Account) (Result, error) {
	if !account.IsConnected() {
		return Result{}, channel.ErrAccountDisabled
	}

	key := lockKey(account.UserID, account.ID)
	ok, err := e.locker.Acquire(ctx, key, e.cfg.LockTTL)
	if err != nil {
		return Result{}, fmt.Errorf("acquire sync lock: %w", err)
	}
	if !ok {
		return Result{}, integration.ErrSyncInProgress
	}
	defer func() {
		if err := e.locker.Release(context.WithoutCancel(ctx), key); err != nil {
			e.logger.Warn("sync lock release failed", zap.String("key", key), zap.Error(err))
		}
	}()

	job := channel.NewSyncJob(account.ID, channel.JobPullOrders)
	if err := e.jobs.Save(ctx, job); err != nil {
		return Result{}, err
	}

	source, err := e.registry.OrderSource(account.Channel)
	if err != nil {
		return e.fail(ctx, job, err)
	}
	cred, err := e.resolver.Resolve(ctx, account.UserID, account.Channel.ProviderID())
	if err != nil {
		return e.fail(ctx, job, err)
	}

	since := time.Now().Add(-e.cfg.Lookback)
	if account.LastSyncCursor != nil {
		since = *account.LastSyncCursor
	}
	batchStart := time.Now()

	orders, err := source.FetchOrders(ctx, cred, since)
	if err != nil {
		return e.fail(ctx, job, err)
	}

	var imported, updated, failed int
	for _, n := range orders {
		res, err := e.persister.Persist(ctx, account, n)
		if err != nil {
			failed++
			e.appendLog(ctx, job.ID, channel.LogError,
				fmt.Sprintf("order %s: %v", n.ExternalOrderID, err))
			continue
		}
		if res.Created {
			imported++
		} else {
			updated++
		}
	}

	// The cursor only moves once the whole batch has been walked. Failed
	// items are in the ledger; a crash before this point re-imports the
	// batch and the upsert absorbs the replay.
	account.AdvanceCursor(batchStart)
	if err := e.accounts.Save(ctx, account); err != nil {
		return e.fail(ctx, job, err)
	}

	job.Complete(imported, updated, failed)
	if err := e.jobs.Save(ctx, job); err != nil {
		return Result{}, err
	}

	e.logger.Info("order sync finished",
		zap.String("account_id", account.ID.String()),
		zap.String("channel", account.Channel.String()),
		zap.Int("imported", imported),
		zap.Int("updated", updated),
		zap.Int("failed", failed))

	return Result{JobID: job.ID, Imported: imported, Updated: updated, Failed: failed}, nil
}

// fail finalizes a job that died before completing its batch
func (e *Engine) fail(ctx context.Context, job *channel.SyncJob, cause error) (Result, error) {
	job.Fail(cause.Error())
	if err := e.jobs.Save(ctx, job); err != nil {
		e.logger.Error("sync job save failed", zap.Error(err))
	}
	return Result{JobID: job.ID}, cause
}

// appendLog writes a per-item ledger line, best effort
func (e *Engine) appendLog(ctx context.Context, jobID uuid.UUID, level channel.LogLevel, msg string) {
	if err := e.jobs.AppendLog(ctx, channel.NewSyncLog(jobID, level, msg)); err != nil {
		e.logger.Warn("sync log append failed", zap.Error(err))
	}
}
