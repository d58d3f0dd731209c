package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/channelpilot/backend/internal/domain/channel"
	"github.com/channelpilot/backend/internal/infrastructure/persistence/models"
)

// GormSyncJobRepository implements channel.SyncJobRepository using GORM
type GormSyncJobRepository struct {
	db *gorm.DB
}

// NewGormSyncJobRepository creates a new GormSyncJobRepository
func NewGormSyncJobRepository(db *gorm.DB) *GormSyncJobRepository {
	return &GormSyncJobRepository{db: db}
}

// Save inserts or updates a job row
func (r *GormSyncJobRepository) Save(ctx context.Context, job *channel.SyncJob) error {
	m := &models.SyncJobModel{}
	m.FromDomain(job)
	return r.db.WithContext(ctx).Save(m).Error
}

// AppendLog adds a log line to a job
func (r *GormSyncJobRepository) AppendLog(ctx context.Context, log *channel.SyncLog) error {
	m := &models.SyncLogModel{}
	m.FromDomain(log)
	return r.db.WithContext(ctx).Create(m).Error
}

// FindByAccount lists recent jobs for an account, newest first
func (r *GormSyncJobRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]channel.SyncJob, error) {
	var rows []models.SyncJobModel
	if err := r.db.WithContext(ctx).
		Where("channel_account_id = ?", accountID).
		Order("started_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]channel.SyncJob, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// FindLogs lists the log lines of a job
func (r *GormSyncJobRepository) FindLogs(ctx context.Context, jobID uuid.UUID) ([]channel.SyncLog, error) {
	var rows []models.SyncLogModel
	if err := r.db.WithContext(ctx).
		Where("sync_job_id = ?", jobID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]channel.SyncLog, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// Ensure GormSyncJobRepository implements channel.SyncJobRepository
var _ channel.SyncJobRepository = (*GormSyncJobRepository)(nil)
