package queue

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"tender-server/internal/domain/notification"
	"tender-server/internal/infrastructure/database"
	"tender-server/internal/infrastructure/database/entities"
)

// maxRetryDelay caps the exponential backoff between attempts.
const maxRetryDelay = time.Hour

// PostgresQueue is the outbox dispatcher: jobs live in notification_jobs, workers claim
// them with SKIP LOCKED and a failed send goes back to pending, not before next_attempt_at,
// until maxAttempts.
type PostgresQueue struct {
	db           *database.DB
	maxAttempts  int
	retryBackoff time.Duration
	log          zerolog.Logger
}

var _ notification.Queue = (*PostgresQueue)(nil)

func NewPostgresQueue(db *database.DB, maxAttempts int, retryBackoff time.Duration, log zerolog.Logger) *PostgresQueue {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if retryBackoff <= 0 {
		retryBackoff = 30 * time.Second
	}
	return &PostgresQueue{
		db:           db,
		maxAttempts:  maxAttempts,
		retryBackoff: retryBackoff,
		log:          log.With().Str("component", "outbox-queue").Logger(),
	}
}

// RetryDelay is the wait before attempt+1: base doubled per attempt already made, capped at an hour.
func RetryDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt && delay < maxRetryDelay; i++ {
		delay *= 2
	}
	return min(delay, maxRetryDelay)
}

func (q *PostgresQueue) Enqueue(ctx context.Context, job *notification.Job) error {
	job.Status = notification.JobPending
	if err := q.db.GetTx(ctx).Create(entities.NewNotificationJob(job)).Error; err != nil {
		return database.AsRepositoryError(ctx, err, "failed to enqueue notification", "f2a7c9e1-4b0d-4c58-93e6-1d8b5a0f7c34")
	}
	return nil
}

const claimJobSQL = `
UPDATE notification_jobs
SET status = 'processing', attempts = attempts + 1, updated_at = NOW()
WHERE id = (
    SELECT id FROM notification_jobs
    WHERE status = 'pending' AND next_attempt_at <= NOW()
    ORDER BY created_at ASC, id ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
)
RETURNING *`

// Dequeue claims the oldest pending job whose backoff has elapsed, in a single statement.
func (q *PostgresQueue) Dequeue(ctx context.Context) (*notification.Job, error) {
	var rows []entities.NotificationJob
	if err := q.db.GetTx(ctx).Raw(claimJobSQL).Scan(&rows).Error; err != nil {
		return nil, database.AsRepositoryError(ctx, err, "failed to claim notification", "8c1e5b3d-7a24-4f90-b6d2-0e9a4c7f1b53")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].EtoD(), nil
}

func (q *PostgresQueue) MarkSent(ctx context.Context, job *notification.Job) error {
	now := time.Now().UTC()
	err := q.db.GetTx(ctx).Model(&entities.NotificationJob{}).
		Where("id = ?", job.ID).
		Updates(map[string]any{"status": string(notification.JobSent), "updated_at": now, "processed_at": now}).Error
	if err != nil {
		return database.AsRepositoryError(ctx, err, "failed to mark notification sent", "3d9f0a6e-2c7b-4e15-a8d4-6b1c3e9f0a27")
	}
	job.Status = notification.JobSent
	job.ProcessedAt = &now
	return nil
}

// MarkFailed returns the job to pending after a backoff, or marks it failed once it used every attempt.
func (q *PostgresQueue) MarkFailed(ctx context.Context, job *notification.Job, cause error) error {
	now := time.Now().UTC()
	nextAttemptAt := now.Add(RetryDelay(q.retryBackoff, job.Attempts))
	updates := map[string]any{
		"status":          string(notification.JobPending),
		"last_error":      errorText(cause),
		"next_attempt_at": nextAttemptAt,
		"updated_at":      now,
	}
	status := notification.JobPending
	if job.Attempts >= q.maxAttempts {
		status = notification.JobFailed
		updates["status"] = string(status)
		updates["processed_at"] = now
		q.log.Error().Err(cause).Str("job_id", job.ID).Int("attempts", job.Attempts).Msg("notification gave up")
	}
	if err := q.db.GetTx(ctx).Model(&entities.NotificationJob{}).Where("id = ?", job.ID).Updates(updates).Error; err != nil {
		return database.AsRepositoryError(ctx, err, "failed to mark notification failed", "b6e2d8a4-9f13-4c70-85b1-2a7d0c4e9f68")
	}
	job.Status = status
	job.LastError = errorText(cause)
	if status == notification.JobPending {
		job.NextAttemptAt = nextAttemptAt
	}
	return nil
}

func (q *PostgresQueue) Depth(ctx context.Context) (int64, error) {
	var depth int64
	if err := q.db.GetTx(ctx).Model(&entities.NotificationJob{}).Where("status = ?", string(notification.JobPending)).Count(&depth).Error; err != nil {
		return 0, database.AsRepositoryError(ctx, err, "failed to count notifications", "1a4c7e0b-5d38-4f92-b0e6-8c3a1d5f7b29")
	}
	return depth, nil
}

// RequeueStale hands jobs stuck in processing for longer than olderThan back to pending.
// A worker that died mid-send leaves such rows behind.
func (q *PostgresQueue) RequeueStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	result := q.db.GetTx(ctx).Model(&entities.NotificationJob{}).
		Where("status = ? AND updated_at < ?", string(notification.JobProcessing), time.Now().UTC().Add(-olderThan)).
		Updates(map[string]any{"status": string(notification.JobPending), "next_attempt_at": time.Now().UTC(), "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return 0, database.AsRepositoryError(ctx, result.Error, "failed to requeue notifications", "7e0b3f9c-1a6d-4258-9c4e-5f2b8a0d6e13")
	}
	return result.RowsAffected, nil
}

// Purge deletes finished jobs processed before the retention window.
func (q *PostgresQueue) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	result := q.db.GetTx(ctx).
		Where("status IN ? AND processed_at < ?", []string{string(notification.JobSent), string(notification.JobFailed)}, time.Now().UTC().Add(-retention)).
		Delete(&entities.NotificationJob{})
	if result.Error != nil {
		return 0, database.AsRepositoryError(ctx, result.Error, "failed to purge notifications", "c3f8a1d6-0e4b-4a97-b2c5-9d7e1f3a6b40")
	}
	return result.RowsAffected, nil
}
