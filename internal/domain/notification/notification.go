package notification

import (
	"context"
	"time"
)

// Kind identifies an email template.
type Kind string

const (
	KindNewMessage            Kind = "new_message"
	KindNewRoom               Kind = "new_room"
	KindTenderRequestReceived Kind = "tender_request_received"
	KindTenderRequestAccepted Kind = "tender_request_accepted"
	KindTenderRequestRejected Kind = "tender_request_rejected"
)

// Email is a request to notify one recipient. Data feeds the template of Kind.
type Email struct {
	Kind Kind
	To   string
	Data map[string]any
}

// Notifier accepts emails after a primary write succeeded.
// Notify never reports failure to the caller and never fails the surrounding operation.
type Notifier interface {
	Notify(ctx context.Context, email Email)
}

// JobStatus is the delivery state of a queued email.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobSent       JobStatus = "sent"
	JobFailed     JobStatus = "failed"
	JobDropped    JobStatus = "dropped"
)

// Job is a rendered email waiting for delivery.
type Job struct {
	ID            string
	Kind          Kind
	Recipient     string
	Subject       string
	Body          string
	Status        JobStatus
	Attempts      int
	LastError     string
	NextAttemptAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ProcessedAt   *time.Time
}

// Queue buffers jobs between Notify and the delivery workers.
// The in-memory queue delivers at most once; the outbox queue retries up to a bounded attempt count.
type Queue interface {
	Enqueue(ctx context.Context, job *Job) error
	// Dequeue claims the next job, or returns nil when none is ready.
	Dequeue(ctx context.Context) (*Job, error)
	MarkSent(ctx context.Context, job *Job) error
	MarkFailed(ctx context.Context, job *Job, cause error) error
	Depth(ctx context.Context) (int64, error)
}

// OutgoingEmail is what a Mailer transmits.
type OutgoingEmail struct {
	To      string
	Subject string
	Body    string
}

// Mailer transmits an email through a transactional provider.
type Mailer interface {
	Send(ctx context.Context, email OutgoingEmail) error
}
