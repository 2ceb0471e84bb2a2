package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tender-server/internal/domain/chat"
	"tender-server/internal/infrastructure/metrics"
)

const roomChannelPrefix = "chat:room:"

// RoomChannel is the redis channel carrying the messages of roomID.
func RoomChannel(roomID string) string {
	return roomChannelPrefix + roomID
}

// RedisBroker publishes message rows on per-room redis channels so every replica sees them.
type RedisBroker struct {
	client redis.UniversalClient
	log    zerolog.Logger
}

var _ chat.Broker = (*RedisBroker)(nil)

func NewRedisBroker(client redis.UniversalClient, log zerolog.Logger) *RedisBroker {
	return &RedisBroker{
		client: client,
		log:    log.With().Str("component", "redis-broker").Logger(),
	}
}

func (b *RedisBroker) Publish(ctx context.Context, msg *chat.Message) error {
	payload, err := encodeMessage(msg)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, RoomChannel(msg.RoomID), payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", RoomChannel(msg.RoomID), err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, roomID string) (chat.Subscription, error) {
	ps := b.client.Subscribe(ctx, RoomChannel(roomID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", RoomChannel(roomID), err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &redisSubscription{
		ps:     ps,
		out:    make(chan *chat.Message, subscriptionBuffer),
		cancel: cancel,
	}
	sub.wg.Add(1)
	go func() {
		defer sub.wg.Done()
		defer close(sub.out)
		in := ps.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case raw, ok := <-in:
				if !ok {
					return
				}
				msg, err := decodeMessage([]byte(raw.Payload))
				if err != nil {
					b.log.Warn().Err(err).Str("channel", raw.Channel).Msg("dropping malformed live event")
					metrics.LiveEventsDroppedTotal.WithLabelValues("malformed").Inc()
					continue
				}
				select {
				case sub.out <- msg:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()
	return sub, nil
}

type redisSubscription struct {
	ps     *redis.PubSub
	out    chan *chat.Message
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
	err    error
}

func (s *redisSubscription) Messages() <-chan *chat.Message {
	return s.out
}

func (s *redisSubscription) Close() error {
	s.once.Do(func() {
		s.cancel()
		s.err = s.ps.Close()
		s.wg.Wait()
	})
	return s.err
}

func encodeMessage(msg *chat.Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("nil message")
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode live event: %w", err)
	}
	return payload, nil
}

func decodeMessage(payload []byte) (*chat.Message, error) {
	var msg chat.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("decode live event: %w", err)
	}
	if msg.ID == "" || msg.RoomID == "" {
		return nil, fmt.Errorf("live event without id or room id")
	}
	return &msg, nil
}
