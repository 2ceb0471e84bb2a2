package crontab

import (
	"context"
	"time"

	"github.com/mileusna/crontab"
	"github.com/rs/zerolog"

	"tender-server/internal/infrastructure/metrics"
	"tender-server/internal/utils/platformerrors"
)

const (
	CronJobTimeout       = 5 * time.Minute
	outboxStaleAfter     = 10 * time.Minute
	outboxRetention      = 7 * 24 * time.Hour
	housekeepingSchedule = "17 * * * *"
	queueDepthSchedule   = "* * * * *"
)

// TenderExpirer closes tenders whose deadline passed.
type TenderExpirer interface {
	CloseExpired(ctx context.Context) (int64, error)
}

// OutboxHousekeeper maintains the notification outbox table.
type OutboxHousekeeper interface {
	RequeueStale(ctx context.Context, olderThan time.Duration) (int64, error)
	Purge(ctx context.Context, retention time.Duration) (int64, error)
}

// QueueDepthRecorder samples the notification queue depth.
type QueueDepthRecorder interface {
	RecordQueueDepth(ctx context.Context)
}

type Crontab struct {
	ctab           *crontab.Crontab
	expirySchedule string
	tenders        TenderExpirer
	outbox         OutboxHousekeeper
	depth          QueueDepthRecorder
	log            zerolog.Logger
}

// NewCrontab builds the scheduler. outbox and depth may be nil.
func NewCrontab(expirySchedule string, tenders TenderExpirer, outbox OutboxHousekeeper, depth QueueDepthRecorder, log zerolog.Logger) *Crontab {
	return &Crontab{
		ctab:           crontab.New(),
		expirySchedule: expirySchedule,
		tenders:        tenders,
		outbox:         outbox,
		depth:          depth,
		log:            log.With().Str("component", "crontab").Logger(),
	}
}

// Run schedules the jobs and blocks until ctx ends.
func (c *Crontab) Run(ctx context.Context) error {
	defer c.ctab.Shutdown()

	// execute once on server start
	c.expireTenders(ctx)

	if err := c.ctab.AddJob(c.expirySchedule, c.job(c.expireTenders)); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to add tender expiry job")
	}
	if c.outbox != nil {
		if err := c.ctab.AddJob(housekeepingSchedule, c.job(c.housekeepOutbox)); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to add outbox housekeeping job")
		}
	}
	if c.depth != nil {
		if err := c.ctab.AddJob(queueDepthSchedule, c.job(c.depth.RecordQueueDepth)); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to add queue depth job")
		}
	}
	c.log.Info().Str("tender_expiry", c.expirySchedule).Msg("cron jobs scheduled")

	<-ctx.Done()
	return nil
}

func (c *Crontab) job(fn func(ctx context.Context)) func() {
	return func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), CronJobTimeout)
		defer cancel()
		fn(jobCtx)
	}
}

func (c *Crontab) expireTenders(ctx context.Context) {
	closed, err := c.tenders.CloseExpired(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("tender expiry failed")
		return
	}
	if closed > 0 {
		metrics.TendersExpiredTotal.Add(float64(closed))
		c.log.Info().Int64("closed", closed).Msg("expired tenders closed")
	}
}

func (c *Crontab) housekeepOutbox(ctx context.Context) {
	requeued, err := c.outbox.RequeueStale(ctx, outboxStaleAfter)
	if err != nil {
		c.log.Error().Err(err).Msg("outbox requeue failed")
	} else if requeued > 0 {
		c.log.Warn().Int64("requeued", requeued).Msg("stale notification jobs requeued")
	}

	purged, err := c.outbox.Purge(ctx, outboxRetention)
	if err != nil {
		c.log.Error().Err(err).Msg("outbox purge failed")
		return
	}
	c.log.Debug().Int64("purged", purged).Msg("outbox purged")
}
