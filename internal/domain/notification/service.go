package notification

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tender-server/internal/utils/idgen"
)

const (
	enqueueTimeout = 2 * time.Second
	markTimeout    = 5 * time.Second
)

// Service renders emails and hands them to the queue. It is the Notifier used by
// the other domains and the delivery side used by the worker pool.
type Service struct {
	renderer *Renderer
	queue    Queue
	mailer   Mailer
	log      zerolog.Logger
}

// NewService wires the notification pipeline.
func NewService(renderer *Renderer, queue Queue, mailer Mailer, log zerolog.Logger) *Service {
	return &Service{
		renderer: renderer,
		queue:    queue,
		mailer:   mailer,
		log:      log.With().Str("component", "notification-service").Logger(),
	}
}

// Notify renders and enqueues email. Every failure is logged and swallowed.
func (s *Service) Notify(ctx context.Context, email Email) {
	if strings.TrimSpace(email.To) == "" {
		s.log.Debug().Str("kind", string(email.Kind)).Msg("skipping notification without recipient")
		return
	}

	rendered, err := s.renderer.Render(email)
	if err != nil {
		s.log.Error().Err(err).Str("kind", string(email.Kind)).Msg("render notification")
		return
	}

	now := time.Now().UTC()
	job := &Job{
		ID:        idgen.New(idgen.PrefixNotification),
		Kind:      email.Kind,
		Recipient: rendered.To,
		Subject:   rendered.Subject,
		Body:      rendered.Body,
		Status:    JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// The request may finish before the enqueue does; keep its values but not its cancellation.
	enqueueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), enqueueTimeout)
	defer cancel()
	if err := s.queue.Enqueue(enqueueCtx, job); err != nil {
		s.log.Warn().Err(err).Str("kind", string(email.Kind)).Str("job_id", job.ID).Msg("notification dropped")
		return
	}
	s.log.Debug().Str("kind", string(email.Kind)).Str("job_id", job.ID).Msg("notification queued")
}

// Deliver sends one claimed job and records the outcome on the queue.
// The outcome is recorded even when ctx expired during the send.
func (s *Service) Deliver(ctx context.Context, job *Job) error {
	sendErr := s.mailer.Send(ctx, OutgoingEmail{To: job.Recipient, Subject: job.Subject, Body: job.Body})

	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markTimeout)
	defer cancel()
	if sendErr != nil {
		if err := s.queue.MarkFailed(markCtx, job, sendErr); err != nil {
			s.log.Error().Err(err).Str("job_id", job.ID).Msg("mark notification failed")
		}
		return sendErr
	}
	if err := s.queue.MarkSent(markCtx, job); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("mark notification sent")
	}
	return nil
}

// Queue exposes the underlying queue to the worker pool.
func (s *Service) Queue() Queue {
	return s.queue
}
