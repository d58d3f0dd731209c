package adspend

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/channelpilot/backend/internal/domain/channel"
	"github.com/channelpilot/backend/internal/domain/integration"
	"github.com/channelpilot/backend/internal/domain/profit"
	"github.com/channelpilot/backend/internal/domain/shared"
)

// Config tunes the ad spend sync
type Config struct {
	// USDToINR converts dollar-billed ad accounts into the ledger currency
	USDToINR decimal.Decimal
}

// DefaultConfig returns production defaults
func DefaultConfig() Config {
	return Config{USDToINR: decimal.NewFromInt(83)}
}

// Stats summarizes one sync pass
type Stats struct {
	Synced  int
	Skipped int
	Failed  int
}

// Service pulls one calendar day of marketing spend from every registered ad
// platform and upserts the (date, platform) rows the blended CAC reads from.
// Runs nightly for yesterday; re-running a day overwrites it.
type Service struct {
	registry *integration.Registry
	resolver *channel.Resolver
	spend    profit.AdSpendRepository
	cfg      Config
	logger   *zap.Logger
}

// NewService creates the ad spend sync service
func NewService(
	registry *integration.Registry,
	resolver *channel.Resolver,
	spend profit.AdSpendRepository,
	cfg Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		registry: registry,
		resolver: resolver,
		spend:    spend,
		cfg:      cfg,
		logger:   logger,
	}
}

// SyncDay syncs one day's spend for a user across all registered platforms.
// Platforms without a credential are skipped; a failing platform never
// blocks the others.
func (s *Service) SyncDay(ctx context.Context, userID uuid.UUID, day time.Time) Stats {
	var stats Stats
	for _, source := range s.registry.SpendSources() {
		platform := source.Platform()

		cred, err := s.resolver.Resolve(ctx, userID, platform.ProviderID())
		if err != nil {
			if errors.Is(err, integration.ErrCredentialMissing) {
				stats.Skipped++
				continue
			}
			stats.Failed++
			s.logger.Error("ad credential resolve failed",
				zap.String("platform", platform.String()), zap.Error(err))
			continue
		}

		raw, err := source.FetchAdSpend(ctx, cred, day)
		if err != nil {
			stats.Failed++
			s.logger.Warn("ad spend fetch failed",
				zap.String("platform", platform.String()),
				zap.Time("day", day),
				zap.Error(err))
			continue
		}

		row := &profit.AdSpendDaily{
			BaseEntity: shared.NewBaseEntity(),
			Date:       truncateToDay(day),
			Platform:   platform.ProviderID(),
			Spend:      s.toINR(raw.Spend, raw.Currency),
			Currency:   "INR",
		}
		if err := s.spend.Upsert(ctx, row); err != nil {
			stats.Failed++
			s.logger.Error("ad spend upsert failed",
				zap.String("platform", platform.String()), zap.Error(err))
			continue
		}
		stats.Synced++
	}
	return stats
}

// SyncYesterday is the nightly entry point
func (s *Service) SyncYesterday(ctx context.Context, userID uuid.UUID) Stats {
	return s.SyncDay(ctx, userID, time.Now().AddDate(0, 0, -1))
}

// toINR converts foreign-billed spend into the ledger currency. Unknown
// currencies pass through unchanged.
func (s *Service) toINR(spend decimal.Decimal, currency string) decimal.Decimal {
	if !spend.IsPositive() {
		return decimal.Zero
	}
	if currency == "USD" {
		return spend.Mul(s.cfg.USDToINR).Round(2)
	}
	return spend
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
