package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/channelpilot/backend/internal/domain/channel"
	"github.com/channelpilot/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Channel accounts
// ---------------------------------------------------------------------------

// ChannelAccountModel is the persistence model for connected channel accounts
type ChannelAccountModel struct {
	BaseModel
	UserID             uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex:uq_channel_accounts,priority:1"`
	Channel            integration.ChannelType `gorm:"type:varchar(20);not null;uniqueIndex:uq_channel_accounts,priority:2"`
	ExternalAccountRef string                  `gorm:"type:varchar(255);not null;uniqueIndex:uq_channel_accounts,priority:3;index:idx_channel_accounts_external_ref"`
	SellerName         string                  `gorm:"type:varchar(255)"`
	Status             channel.AccountStatus   `gorm:"type:varchar(20);not null"`
	LastSyncCursor     *time.Time
}

// TableName returns the table name for GORM
func (ChannelAccountModel) TableName() string {
	return "channel_accounts"
}

// ToDomain converts the persistence model to a domain Account
func (m *ChannelAccountModel) ToDomain() *channel.Account {
	return &channel.Account{
		BaseEntity:         m.BaseModel.ToDomain(),
		UserID:             m.UserID,
		Channel:            m.Channel,
		ExternalAccountRef: m.ExternalAccountRef,
		SellerName:         m.SellerName,
		Status:             m.Status,
		LastSyncCursor:     m.LastSyncCursor,
	}
}

// FromDomain populates the persistence model from a domain Account
func (m *ChannelAccountModel) FromDomain(a *channel.Account) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.UserID = a.UserID
	m.Channel = a.Channel
	m.ExternalAccountRef = a.ExternalAccountRef
	m.SellerName = a.SellerName
	m.Status = a.Status
	m.LastSyncCursor = a.LastSyncCursor
}

// ---------------------------------------------------------------------------
// Sync job ledger
// ---------------------------------------------------------------------------

// SyncJobModel is the persistence model for the append-only sync job ledger
type SyncJobModel struct {
	BaseModel
	ChannelAccountID uuid.UUID         `gorm:"type:uuid;not null;index:idx_sync_jobs_account"`
	JobType          channel.JobType   `gorm:"type:varchar(20);not null"`
	Status           channel.JobStatus `gorm:"type:varchar(20);not null"`
	StartedAt        time.Time         `gorm:"not null"`
	FinishedAt       *time.Time
	Imported         int    `gorm:"not null;default:0"`
	Updated          int    `gorm:"not null;default:0"`
	Failed           int    `gorm:"not null;default:0"`
	ErrorMessage     string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (SyncJobModel) TableName() string {
	return "sync_jobs"
}

// ToDomain converts the persistence model to a domain SyncJob
func (m *SyncJobModel) ToDomain() *channel.SyncJob {
	return &channel.SyncJob{
		BaseEntity:       m.BaseModel.ToDomain(),
		ChannelAccountID: m.ChannelAccountID,
		JobType:          m.JobType,
		Status:           m.Status,
		StartedAt:        m.StartedAt,
		FinishedAt:       m.FinishedAt,
		Imported:         m.Imported,
		Updated:          m.Updated,
		Failed:           m.Failed,
		ErrorMessage:     m.ErrorMessage,
	}
}

// FromDomain populates the persistence model from a domain SyncJob
func (m *SyncJobModel) FromDomain(j *channel.SyncJob) {
	m.FromDomainBaseEntity(j.BaseEntity)
	m.ChannelAccountID = j.ChannelAccountID
	m.JobType = j.JobType
	m.Status = j.Status
	m.StartedAt = j.StartedAt
	m.FinishedAt = j.FinishedAt
	m.Imported = j.Imported
	m.Updated = j.Updated
	m.Failed = j.Failed
	m.ErrorMessage = j.ErrorMessage
}

// SyncLogModel is the persistence model for per-item sync log lines
type SyncLogModel struct {
	ID        uuid.UUID        `gorm:"type:uuid;primary_key"`
	SyncJobID uuid.UUID        `gorm:"type:uuid;not null;index:idx_sync_logs_job"`
	Level     channel.LogLevel `gorm:"type:varchar(10);not null"`
	Message   string           `gorm:"type:text;not null"`
	CreatedAt time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncLogModel) TableName() string {
	return "sync_logs"
}

// ToDomain converts the persistence model to a domain SyncLog
func (m *SyncLogModel) ToDomain() *channel.SyncLog {
	return &channel.SyncLog{
		ID:        m.ID,
		SyncJobID: m.SyncJobID,
		Level:     m.Level,
		Message:   m.Message,
		CreatedAt: m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain SyncLog
func (m *SyncLogModel) FromDomain(l *channel.SyncLog) {
	m.ID = l.ID
	m.SyncJobID = l.SyncJobID
	m.Level = l.Level
	m.Message = l.Message
	m.CreatedAt = l.CreatedAt
}

// ---------------------------------------------------------------------------
// Webhook events
// ---------------------------------------------------------------------------

// WebhookEventModel is the persistence model for received webhooks. The
// unique digest index is the durable half of the dedup check.
type WebhookEventModel struct {
	BaseModel
	UserID     uuid.UUID `gorm:"type:uuid;not null;index:idx_webhook_events_user"`
	Source     string    `gorm:"type:varchar(20);not null"`
	Topic      string    `gorm:"type:varchar(50);not null"`
	ShopRef    string    `gorm:"type:varchar(255);not null"`
	Digest     string    `gorm:"type:varchar(64);not null;uniqueIndex:uq_webhook_events_digest"`
	Payload    string    `gorm:"type:text"`
	ReceivedAt time.Time `gorm:"not null;index:idx_webhook_events_received"`
	ProcessedAt *time.Time
	Error       string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (WebhookEventModel) TableName() string {
	return "webhook_events"
}

// ToDomain converts the persistence model to a domain WebhookEvent
func (m *WebhookEventModel) ToDomain() *channel.WebhookEvent {
	return &channel.WebhookEvent{
		BaseEntity:  m.BaseModel.ToDomain(),
		UserID:      m.UserID,
		Source:      m.Source,
		Topic:       m.Topic,
		ShopRef:     m.ShopRef,
		Digest:      m.Digest,
		Payload:     m.Payload,
		ReceivedAt:  m.ReceivedAt,
		ProcessedAt: m.ProcessedAt,
		Error:       m.Error,
	}
}

// FromDomain populates the persistence model from a domain WebhookEvent
func (m *WebhookEventModel) FromDomain(e *channel.WebhookEvent) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.UserID = e.UserID
	m.Source = e.Source
	m.Topic = e.Topic
	m.ShopRef = e.ShopRef
	m.Digest = e.Digest
	m.Payload = e.Payload
	m.ReceivedAt = e.ReceivedAt
	m.ProcessedAt = e.ProcessedAt
	m.Error = e.Error
}

// ---------------------------------------------------------------------------
// Provider credentials
// ---------------------------------------------------------------------------

// ProviderCredentialModel stores one encrypted credential payload per
// (user, provider). The payload column holds the AES-GCM ciphertext.
type ProviderCredentialModel struct {
	BaseModel
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_provider_credentials,priority:1"`
	ProviderID string    `gorm:"type:varchar(30);not null;uniqueIndex:uq_provider_credentials,priority:2"`
	Payload    string    `gorm:"type:text;not null"`
}

// TableName returns the table name for GORM
func (ProviderCredentialModel) TableName() string {
	return "provider_credentials"
}
