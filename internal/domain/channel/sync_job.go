package channel

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/channelpilot/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Sync job ledger
// ---------------------------------------------------------------------------

// JobType represents the kind of work a sync job performed
type JobType string

const (
	JobPullOrders   JobType = "PULL_ORDERS"
	JobAdSpend      JobType = "PULL_AD_SPEND"
	JobTrackRefresh JobType = "TRACK_REFRESH"
)

// JobStatus represents the outcome of a sync job
type JobStatus string

const (
	JobRunning JobStatus = "RUNNING"
	JobSuccess JobStatus = "SUCCESS"
	JobPartial JobStatus = "PARTIAL"
	JobFailed  JobStatus = "FAILED"
)

// LogLevel classifies sync log lines
type LogLevel string

const (
	LogInfo  LogLevel = "INFO"
	LogError LogLevel = "ERROR"
)

// SyncJob is one append-only audit record per sync engine invocation
type SyncJob struct {
	shared.BaseEntity
	ChannelAccountID uuid.UUID
	JobType          JobType
	Status           JobStatus
	StartedAt        time.Time
	FinishedAt       *time.Time
	Imported         int
	Updated          int
	Failed           int
	ErrorMessage     string
}

// NewSyncJob starts a running job for an account
func NewSyncJob(accountID uuid.UUID, jobType JobType) *SyncJob {
	return &SyncJob{
		BaseEntity:       shared.NewBaseEntity(),
		ChannelAccountID: accountID,
		JobType:          jobType,
		Status:           JobRunning,
		StartedAt:        time.Now(),
	}
}

// Complete records final counts. Outcome follows the counts: any failure with
// some success is PARTIAL, all failures is FAILED.
func (j *SyncJob) Complete(imported, updated, failed int) {
	now := time.Now()
	j.FinishedAt = &now
	j.Imported = imported
	j.Updated = updated
	j.Failed = failed
	switch {
	case failed == 0:
		j.Status = JobSuccess
	case imported+updated > 0:
		j.Status = JobPartial
	default:
		j.Status = JobFailed
	}
	j.Touch()
}

// Fail marks the whole job failed before any item work completed
func (j *SyncJob) Fail(msg string) {
	now := time.Now()
	j.FinishedAt = &now
	j.Status = JobFailed
	j.ErrorMessage = msg
	j.Touch()
}

// SyncLog is one per-item line under a sync job
type SyncLog struct {
	ID        uuid.UUID
	SyncJobID uuid.UUID
	Level     LogLevel
	Message   string
	CreatedAt time.Time
}

// NewSyncLog creates a log line for a job
func NewSyncLog(jobID uuid.UUID, level LogLevel, message string) *SyncLog {
	return &SyncLog{
		ID:        uuid.New(),
		SyncJobID: jobID,
		Level:     level,
		Message:   message,
		CreatedAt: time.Now(),
	}
}

// SyncJobRepository persists the append-only job ledger
type SyncJobRepository interface {
	// Save inserts or updates a job row
	Save(ctx context.Context, job *SyncJob) error

	// AppendLog adds a log line to a job
	AppendLog(ctx context.Context, log *SyncLog) error

	// FindByAccount lists recent jobs for an account, newest first
	FindByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]SyncJob, error)

	// FindLogs lists the log lines of a job
	FindLogs(ctx context.Context, jobID uuid.UUID) ([]SyncLog, error)
}
