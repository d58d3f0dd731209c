package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/channelpilot/backend/internal/domain/channel"
	"github.com/channelpilot/backend/internal/domain/integration"
)

// secretKeys are the credential keys a webhook may be signed with, in the
// order connect flows have historically saved them
var secretKeys = []string{"webhookSecret", "appSecret", "apiSecret", "apiKey"}

// maxStoredPayload bounds the payload kept on the audit row
const maxStoredPayload = 4096

// DedupStore is the fast-path duplicate check. A digest is marked only after
// its event has been fully processed, so a marked digest always has a
// processed durable row behind it; redeliveries of unprocessed events pass
// through. The processed_at column on webhook_events backs the window up
// across restarts and cache loss.
type DedupStore interface {
	// IsSeen reports whether digest was marked within the TTL window
	IsSeen(ctx context.Context, digest string) (bool, error)
	// MarkSeen opens the TTL window for digest
	MarkSeen(ctx context.Context, digest string, ttl time.Duration) error
}

// Handler processes one verified, deduplicated webhook body
type Handler func(ctx context.Context, account *channel.Account, body []byte) error

// ReceiveRequest is one incoming webhook as the HTTP layer saw it
type ReceiveRequest struct {
	Source    integration.ChannelType
	Topic     string
	ShopRef   string
	Signature string
	Body      []byte
}

// Outcome reports what the pipeline did with a webhook. Duplicate and
// handler-failure outcomes are still success for the sender; only signature
// failures surface as an error.
type Outcome struct {
	EventID   uuid.UUID
	Duplicate bool
	Handled   bool
}

// Pipeline is the webhook ingestion path: verify the signature against every
// candidate secret, dedup on the body digest, persist the audit event, then
// dispatch the topic handler. Once the signature passes, the sender always
// gets success; processing failures are recorded on the event, never bounced
// back to trigger provider retries.
type Pipeline struct {
	accounts channel.AccountRepository
	resolver *channel.Resolver
	dedup    DedupStore
	events   channel.WebhookEventRepository
	handlers map[string]Handler
	dedupTTL time.Duration
	logger   *zap.Logger
}

// NewPipeline creates the webhook ingestion pipeline
func NewPipeline(
	accounts channel.AccountRepository,
	resolver *channel.Resolver,
	dedup DedupStore,
	events channel.WebhookEventRepository,
	dedupTTL time.Duration,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		accounts: accounts,
		resolver: resolver,
		dedup:    dedup,
		events:   events,
		handlers: make(map[string]Handler),
		dedupTTL: dedupTTL,
		logger:   logger,
	}
}

// Register binds a handler to a topic
func (p *Pipeline) Register(topic string, h Handler) {
	p.handlers[topic] = h
}

// Receive runs one webhook through the pipeline
func (p *Pipeline) Receive(ctx context.Context, req ReceiveRequest) (Outcome, error) {
	account, err := p.verify(ctx, req)
	if err != nil {
		return Outcome{}, err
	}

	digest := integration.Digest(req.Source.String(), req.Topic, req.ShopRef, string(req.Body))
	if dup, err := p.isDuplicate(ctx, digest); err != nil {
		return Outcome{}, err
	} else if dup {
		p.logger.Debug("webhook replay dropped",
			zap.String("topic", req.Topic),
			zap.String("shop_ref", req.ShopRef))
		return Outcome{Duplicate: true}, nil
	}

	payload := string(req.Body)
	if len(payload) > maxStoredPayload {
		payload = payload[:maxStoredPayload]
	}
	event := channel.NewWebhookEvent(account.UserID, req.Source.ProviderID(), req.Topic, req.ShopRef, digest, payload)
	if err := p.events.Save(ctx, event); err != nil {
		if err == channel.ErrDuplicateWebhook {
			return p.redeliver(ctx, account, digest, req.Body)
		}
		return Outcome{}, err
	}

	return p.dispatch(ctx, account, event, req.Body), nil
}

// redeliver resolves a digest collision on insert. A processed twin means the
// sender retried after our ack and the delivery is dropped; an unprocessed
// twin is an at-least-once redelivery of an event whose handler never
// succeeded, and it runs again against the existing row.
func (p *Pipeline) redeliver(ctx context.Context, account *channel.Account, digest string, body []byte) (Outcome, error) {
	existing, err := p.events.FindByDigest(ctx, digest)
	if err != nil {
		return Outcome{}, err
	}
	if existing.ProcessedAt != nil {
		return Outcome{EventID: existing.ID, Duplicate: true}, nil
	}

	p.logger.Info("webhook redelivery retries unprocessed event",
		zap.String("topic", existing.Topic),
		zap.String("event_id", existing.ID.String()))
	return p.dispatch(ctx, account, existing, body), nil
}

// verify checks the HMAC against every candidate secret of every account
// connected to the shop reference. It returns the account whose secret
// matched; accounts are tried in lookup order.
func (p *Pipeline) verify(ctx context.Context, req ReceiveRequest) (*channel.Account, error) {
	accounts, err := p.accounts.FindByExternalRef(ctx, req.Source, req.ShopRef)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, integration.ErrCredentialMissing
	}

	for i := range accounts {
		account := &accounts[i]
		creds, err := p.resolver.Candidates(ctx, account.UserID, req.Source.ProviderID())
		if err != nil {
			return nil, err
		}
		for _, cred := range creds {
			for _, key := range secretKeys {
				secret := cred.Get(key)
				if secret == "" {
					continue
				}
				if VerifySignature(req.Body, req.Signature, secret) {
					return account, nil
				}
			}
		}
	}

	p.logger.Warn("webhook signature rejected",
		zap.String("source", req.Source.String()),
		zap.String("topic", req.Topic),
		zap.String("shop_ref", req.ShopRef))
	return nil, integration.ErrSignatureInvalid
}

// isDuplicate consults the fast TTL store first, then the durable rows. Only
// processed events count: an unprocessed row is a pending retry, not a
// duplicate, and the unique digest column resolves the race at insert.
func (p *Pipeline) isDuplicate(ctx context.Context, digest string) (bool, error) {
	seen, err := p.dedup.IsSeen(ctx, digest)
	if err != nil {
		// A broken cache degrades to the durable check, it never drops
		// the webhook.
		p.logger.Warn("webhook dedup store unavailable", zap.Error(err))
	} else if seen {
		return true, nil
	}
	return p.events.ExistsProcessed(ctx, digest)
}

// dispatch runs the topic handler and finalizes the event row. From here on
// the outcome is always success for the sender.
func (p *Pipeline) dispatch(ctx context.Context, account *channel.Account, event *channel.WebhookEvent, body []byte) Outcome {
	out := Outcome{EventID: event.ID}

	handler, ok := p.handlers[event.Topic]
	if !ok {
		p.logger.Debug("webhook topic has no handler", zap.String("topic", event.Topic))
		p.complete(ctx, event)
		return out
	}

	if err := handler(ctx, account, body); err != nil {
		p.logger.Error("webhook handler failed",
			zap.String("topic", event.Topic),
			zap.String("event_id", event.ID.String()),
			zap.Error(err))
		event.MarkFailed(truncate(err.Error(), 500))
		p.update(ctx, event)
		return out
	}

	p.complete(ctx, event)
	out.Handled = true
	return out
}

// complete stamps the event processed and opens the fast-path dedup window.
// The window opens only here; a failed handler leaves the digest unmarked so
// the provider's redelivery reaches the handler again.
func (p *Pipeline) complete(ctx context.Context, event *channel.WebhookEvent) {
	event.MarkProcessed(time.Now())
	p.update(ctx, event)
	if err := p.dedup.MarkSeen(ctx, event.Digest, p.dedupTTL); err != nil {
		p.logger.Warn("webhook dedup mark failed",
			zap.String("event_id", event.ID.String()),
			zap.Error(err))
	}
}

func (p *Pipeline) update(ctx context.Context, event *channel.WebhookEvent) {
	if err := p.events.Update(ctx, event); err != nil {
		p.logger.Error("webhook event update failed",
			zap.String("event_id", event.ID.String()),
			zap.Error(err))
	}
}

// VerifySignature checks an HMAC-SHA256 webhook signature: base64 of the raw
// body's MAC under secret, compared in constant time.
func VerifySignature(body []byte, header, secret string) bool {
	if secret == "" || header == "" || len(body) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	computed := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(computed), []byte(strings.TrimSpace(header)))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
