package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"tender-server/internal/domain/chat"
	"tender-server/internal/infrastructure/metrics"
)

// MessageChannel is the NOTIFY channel fed by the insert trigger on messages.
const MessageChannel = "chat_messages"

const listenRetryDelay = 2 * time.Second

// MessageLoader loads a full message row by id.
type MessageLoader interface {
	GetMessage(ctx context.Context, id string) (*chat.Message, error)
}

type notifyPayload struct {
	ID     string `json:"id"`
	RoomID string `json:"room_id"`
}

// PostgresBroker listens for insert notifications on the messages table. The database
// is the publisher, so Publish does nothing; NOTIFY payloads only carry ids because of
// their size cap and the full row is loaded before local fan-out.
type PostgresBroker struct {
	pool   *pgxpool.Pool
	loader MessageLoader
	local  *MemoryBroker
	log    zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ chat.Broker = (*PostgresBroker)(nil)

func NewPostgresBroker(pool *pgxpool.Pool, loader MessageLoader, log zerolog.Logger) *PostgresBroker {
	logger := log.With().Str("component", "postgres-broker").Logger()
	return &PostgresBroker{
		pool:   pool,
		loader: loader,
		local:  NewMemoryBroker(logger),
		log:    logger,
	}
}

// Start runs the LISTEN loop until ctx ends or Close is called.
func (b *PostgresBroker) Start(ctx context.Context) {
	listenCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			err := b.listen(listenCtx)
			if listenCtx.Err() != nil {
				return
			}
			b.log.Warn().Err(err).Dur("retry_in", listenRetryDelay).Msg("listen connection lost")
			select {
			case <-listenCtx.Done():
				return
			case <-time.After(listenRetryDelay):
			}
		}
	}()
}

func (b *PostgresBroker) listen(ctx context.Context) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+MessageChannel); err != nil {
		return fmt.Errorf("listen %s: %w", MessageChannel, err)
	}
	b.log.Info().Str("channel", MessageChannel).Msg("listening for message inserts")

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		b.dispatch(ctx, []byte(notification.Payload))
	}
}

func (b *PostgresBroker) dispatch(ctx context.Context, raw []byte) {
	var payload notifyPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.ID == "" {
		b.log.Warn().Err(err).Msg("dropping malformed notification")
		metrics.LiveEventsDroppedTotal.WithLabelValues("malformed").Inc()
		return
	}
	if b.local.Subscribers(payload.RoomID) == 0 {
		return
	}
	msg, err := b.loader.GetMessage(ctx, payload.ID)
	if err != nil {
		b.log.Warn().Err(err).Str("message_id", payload.ID).Msg("dropping notification, message lookup failed")
		metrics.LiveEventsDroppedTotal.WithLabelValues("lookup_failed").Inc()
		return
	}
	_ = b.local.Publish(ctx, msg)
}

// Publish is a no-op: the insert trigger announces new rows.
func (b *PostgresBroker) Publish(context.Context, *chat.Message) error {
	return nil
}

func (b *PostgresBroker) Subscribe(ctx context.Context, roomID string) (chat.Subscription, error) {
	return b.local.Subscribe(ctx, roomID)
}

// Close stops the listen loop and ends every subscription.
func (b *PostgresBroker) Close() error {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
	return b.local.Close()
}
