package entities

import (
	"time"

	"tender-server/internal/domain/notification"
)

// NotificationJob is one row of the email outbox.
type NotificationJob struct {
	ID            string    `gorm:"type:text;primaryKey"`
	Kind          string    `gorm:"type:text;not null"`
	Recipient     string    `gorm:"type:text;not null"`
	Subject       string    `gorm:"type:text;not null"`
	Body          string    `gorm:"type:text;not null"`
	Status        string    `gorm:"type:text;not null"`
	Attempts      int       `gorm:"not null"`
	LastError     string    `gorm:"type:text;not null"`
	NextAttemptAt time.Time `gorm:"not null;default:now()"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ProcessedAt   *time.Time
}

func (NotificationJob) TableName() string {
	return "notification_jobs"
}

func NewNotificationJob(j *notification.Job) *NotificationJob {
	return &NotificationJob{
		ID:            j.ID,
		Kind:          string(j.Kind),
		Recipient:     j.Recipient,
		Subject:       j.Subject,
		Body:          j.Body,
		Status:        string(j.Status),
		Attempts:      j.Attempts,
		LastError:     j.LastError,
		NextAttemptAt: j.NextAttemptAt,
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
		ProcessedAt:   j.ProcessedAt,
	}
}

func (e *NotificationJob) EtoD() *notification.Job {
	return &notification.Job{
		ID:            e.ID,
		Kind:          notification.Kind(e.Kind),
		Recipient:     e.Recipient,
		Subject:       e.Subject,
		Body:          e.Body,
		Status:        notification.JobStatus(e.Status),
		Attempts:      e.Attempts,
		LastError:     e.LastError,
		NextAttemptAt: e.NextAttemptAt,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
		ProcessedAt:   e.ProcessedAt,
	}
}
