package adspend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/channelpilot/backend/internal/domain/channel"
	"github.com/channelpilot/backend/internal/domain/integration"
	"github.com/channelpilot/backend/internal/domain/profit"
)

type stubSpendSource struct {
	platform integration.AdPlatform
	spend    integration.AdSpend
	err      error
}

func (s *stubSpendSource) Platform() integration.AdPlatform { return s.platform }

func (s *stubSpendSource) FetchAdSpend(_ context.Context, _ integration.Credential, _ time.Time) (integration.AdSpend, error) {
	if s.err != nil {
		return integration.AdSpend{}, s.err
	}
	return s.spend, nil
}

type memAdSpend struct {
	rows map[string]*profit.AdSpendDaily // platform|date
}

func (r *memAdSpend) SumForDate(_ context.Context, day time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, row := range r.rows {
		if row.Date.Equal(day) {
			total = total.Add(row.Spend)
		}
	}
	return total, nil
}

func (r *memAdSpend) Upsert(_ context.Context, s *profit.AdSpendDaily) error {
	r.rows[s.Platform+"|"+s.Date.Format("2006-01-02")] = s
	return nil
}

func newService(sources []integration.SpendSource, withCred bool) (*Service, *memAdSpend) {
	registry := integration.NewRegistry()
	for _, s := range sources {
		registry.RegisterSpendSource(s)
	}
	var chain []channel.SecretSource
	if withCred {
		values := make(map[string]map[string]string)
		for _, s := range sources {
			values[s.Platform().ProviderID()] = map[string]string{"accessToken": "tok"}
		}
		chain = append(chain, channel.NewStaticSource("app_default", values))
	}
	store := &memAdSpend{rows: make(map[string]*profit.AdSpendDaily)}
	svc := NewService(registry, channel.NewResolver(chain...), store, DefaultConfig(), zap.NewNop())
	return svc, store
}

func TestSyncDay_UpsertsPerPlatform(t *testing.T) {
	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	meta := &stubSpendSource{
		platform: integration.AdPlatformMeta,
		spend:    integration.AdSpend{Platform: integration.AdPlatformMeta, Date: day, Spend: decimal.NewFromInt(120), Currency: "INR"},
	}
	svc, store := newService([]integration.SpendSource{meta}, true)

	stats := svc.SyncDay(context.Background(), uuid.New(), day)
	assert.Equal(t, 1, stats.Synced)

	row := store.rows[integration.AdPlatformMeta.ProviderID()+"|2026-08-30"]
	require.NotNil(t, row)
	assert.True(t, row.Spend.Equal(decimal.NewFromInt(120)))
	assert.Equal(t, "INR", row.Currency)
}

func TestSyncDay_ConvertsUSD(t *testing.T) {
	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	meta := &stubSpendSource{
		platform: integration.AdPlatformMeta,
		spend:    integration.AdSpend{Platform: integration.AdPlatformMeta, Date: day, Spend: decimal.NewFromInt(10), Currency: "USD"},
	}
	svc, store := newService([]integration.SpendSource{meta}, true)

	svc.SyncDay(context.Background(), uuid.New(), day)

	row := store.rows[integration.AdPlatformMeta.ProviderID()+"|2026-08-30"]
	require.NotNil(t, row)
	assert.True(t, row.Spend.Equal(decimal.NewFromInt(830)), "10 USD at the default rate")
}

func TestSyncDay_MissingCredentialSkips(t *testing.T) {
	meta := &stubSpendSource{platform: integration.AdPlatformMeta}
	svc, store := newService([]integration.SpendSource{meta}, false)

	stats := svc.SyncDay(context.Background(), uuid.New(), time.Now())
	assert.Equal(t, 1, stats.Skipped)
	assert.Empty(t, store.rows)
}

func TestSyncDay_PlatformFailureIsIsolated(t *testing.T) {
	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	broken := &stubSpendSource{platform: integration.AdPlatformMeta, err: errors.New("rate limited")}
	ok := &stubSpendSource{
		platform: integration.AdPlatformGoogle,
		spend:    integration.AdSpend{Platform: integration.AdPlatformGoogle, Date: day, Spend: decimal.NewFromInt(40), Currency: "INR"},
	}
	svc, store := newService([]integration.SpendSource{broken, ok}, true)

	stats := svc.SyncDay(context.Background(), uuid.New(), day)
	assert.Equal(t, 1, stats.Synced)
	assert.Equal(t, 1, stats.Failed)
	assert.Len(t, store.rows, 1)
}
