package tracking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/channelpilot/backend/internal/domain/channel"
	"github.com/channelpilot/backend/internal/domain/integration"
	"github.com/channelpilot/backend/internal/domain/profit"
	"github.com/channelpilot/backend/internal/domain/shipment"
)

// Config tunes the shipment refresh service
type Config struct {
	// Freshness is how old a shipment's last sync may be before a tick
	// picks it up again
	Freshness time.Duration
	// BatchSize caps tracking refs per courier call, per the provider's
	// documented limit
	BatchSize int
	// SelectLimit caps how many shipments one tick pulls from the store
	SelectLimit int
}

// DefaultConfig returns production defaults
func DefaultConfig() Config {
	return Config{
		Freshness:   30 * time.Minute,
		BatchSize:   50,
		SelectLimit: 1000,
	}
}

// Stats summarizes one refresh pass
type Stats struct {
	Selected int
	Updated  int
	Terminal int
	Failed   int
}

// ProfitRecomputer refreshes the derived profit row for an order
type ProfitRecomputer interface {
	Recompute(ctx context.Context, userID, orderID uuid.UUID) (*profit.OrderProfit, error)
}

// Service batch-refreshes courier statuses for outstanding shipments. Every
// failure is isolated to its batch or waybill: the untouched shipment keeps
// its stale timestamp and the next tick reselects it.
type Service struct {
	registry  *integration.Registry
	resolver  *channel.Resolver
	shipments shipment.Repository
	profits   ProfitRecomputer
	cfg       Config
	logger    *zap.Logger
}

// NewService creates the shipment refresh service
func NewService(
	registry *integration.Registry,
	resolver *channel.Resolver,
	shipments shipment.Repository,
	profits ProfitRecomputer,
	cfg Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		registry:  registry,
		resolver:  resolver,
		shipments: shipments,
		profits:   profits,
		cfg:       cfg,
		logger:    logger,
	}
}

// RefreshAll runs one pass over every registered courier
func (s *Service) RefreshAll(ctx context.Context) Stats {
	var total Stats
	for _, source := range s.registry.TrackingSources() {
		st, err := s.RefreshCourier(ctx, source)
		if err != nil {
			s.logger.Error("courier refresh pass failed",
				zap.String("courier", source.CourierFamily().String()),
				zap.Error(err))
		}
		total.Selected += st.Selected
		total.Updated += st.Updated
		total.Terminal += st.Terminal
		total.Failed += st.Failed
	}
	return total
}

// RefreshCourier refreshes all stale shipments of one courier. Candidates
// are grouped by the owning user so each group queries with that user's
// credential, then chunked to the courier's batch limit.
func (s *Service) RefreshCourier(ctx context.Context, source integration.TrackingSource) (Stats, error) {
	family := source.CourierFamily()
	cutoff := time.Now().Add(-s.cfg.Freshness)

	candidates, err := s.shipments.FindStale(ctx, family.ProviderID(), cutoff, s.cfg.SelectLimit)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Selected: len(candidates)}
	if len(candidates) == 0 {
		return stats, nil
	}

	for userID, group := range groupByUser(candidates) {
		cred, err := s.resolver.Resolve(ctx, userID, family.ProviderID())
		if err != nil {
			if errors.Is(err, integration.ErrCredentialMissing) {
				s.logger.Warn("no courier credential, skipping user's shipments",
					zap.String("courier", family.String()),
					zap.String("user_id", userID.String()),
					zap.Int("shipments", len(group)))
				stats.Failed += len(group)
				continue
			}
			return stats, err
		}

		for _, batch := range chunk(group, s.cfg.BatchSize) {
			s.refreshBatch(ctx, source, cred, userID, batch, &stats)
		}
	}
	return stats, nil
}

// refreshBatch issues one courier call and applies its updates. A failed
// call leaves every shipment in the batch untouched.
func (s *Service) refreshBatch(ctx context.Context, source integration.TrackingSource, cred integration.Credential, userID uuid.UUID, batch []shipment.PollCandidate, stats *Stats) {
	refs := make([]string, len(batch))
	byRef := make(map[string]*shipment.PollCandidate, len(batch))
	for i := range batch {
		refs[i] = batch[i].Shipment.TrackingRef
		byRef[refs[i]] = &batch[i]
	}

	updates, err := source.FetchShipmentStatus(ctx, cred, refs)
	if err != nil {
		s.logger.Warn("courier batch query failed, shipments stay stale",
			zap.String("courier", source.CourierFamily().String()),
			zap.Int("batch", len(refs)),
			zap.Error(err))
		stats.Failed += len(batch)
		return
	}

	now := time.Now()
	for _, u := range updates {
		cand, ok := byRef[u.TrackingRef]
		if !ok {
			continue
		}
		if u.Err != nil {
			s.logger.Warn("courier waybill lookup failed",
				zap.String("tracking_ref", u.TrackingRef),
				zap.Error(u.Err))
			stats.Failed++
			continue
		}
		if u.Status == shipment.StatusUnknown {
			s.logger.Info("unmapped courier status",
				zap.String("courier", source.CourierFamily().String()),
				zap.String("raw_status", u.RawStatus),
				zap.String("tracking_ref", u.TrackingRef))
		}

		sh := cand.Shipment
		enteredTerminal := sh.Transition(u.Status, now)
		if err := s.shipments.Save(ctx, &sh); err != nil {
			s.logger.Error("shipment save failed",
				zap.String("tracking_ref", u.TrackingRef),
				zap.Error(err))
			stats.Failed++
			continue
		}
		stats.Updated++

		if enteredTerminal {
			stats.Terminal++
			if _, err := s.profits.Recompute(ctx, cand.UserID, sh.OrderID); err != nil {
				s.logger.Warn("profit recompute after terminal transition failed",
					zap.String("order_id", sh.OrderID.String()),
					zap.Error(err))
			}
		}
	}
}

// groupByUser buckets candidates by the credential owner
func groupByUser(candidates []shipment.PollCandidate) map[uuid.UUID][]shipment.PollCandidate {
	out := make(map[uuid.UUID][]shipment.PollCandidate)
	for _, c := range candidates {
		out[c.UserID] = append(out[c.UserID], c)
	}
	return out
}

// chunk splits candidates into batches of at most size
func chunk(in []shipment.PollCandidate, size int) [][]shipment.PollCandidate {
	if size <= 0 {
		size = 1
	}
	var out [][]shipment.PollCandidate
	for len(in) > size {
		out = append(out, in[:size])
		in = in[size:]
	}
	if len(in) > 0 {
		out = append(out, in)
	}
	return out
}
