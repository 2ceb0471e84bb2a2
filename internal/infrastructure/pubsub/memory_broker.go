package pubsub

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"tender-server/internal/domain/chat"
	"tender-server/internal/infrastructure/metrics"
)

const subscriptionBuffer = 32

// MemoryBroker fans messages out to subscribers inside one process. It is also the local
// fan-out stage of the Postgres broker.
type MemoryBroker struct {
	mu     sync.Mutex
	rooms  map[string]map[*memorySubscription]struct{}
	log    zerolog.Logger
	closed bool
}

var _ chat.Broker = (*MemoryBroker)(nil)

func NewMemoryBroker(log zerolog.Logger) *MemoryBroker {
	return &MemoryBroker{
		rooms: make(map[string]map[*memorySubscription]struct{}),
		log:   log.With().Str("component", "memory-broker").Logger(),
	}
}

// Publish delivers msg to every subscriber of its room. A subscriber whose buffer is
// full misses the event.
func (b *MemoryBroker) Publish(_ context.Context, msg *chat.Message) error {
	if msg == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.rooms[msg.RoomID] {
		copied := *msg
		select {
		case sub.ch <- &copied:
		default:
			b.log.Warn().Str("room_id", msg.RoomID).Str("message_id", msg.ID).Msg("subscriber buffer full, dropping live event")
			metrics.LiveEventsDroppedTotal.WithLabelValues("slow_subscriber").Inc()
		}
	}
	return nil
}

// Subscribe registers a subscription for roomID. It ends when closed or when ctx is done.
func (b *MemoryBroker) Subscribe(ctx context.Context, roomID string) (chat.Subscription, error) {
	sub := &memorySubscription{
		broker: b,
		roomID: roomID,
		ch:     make(chan *chat.Message, subscriptionBuffer),
	}

	b.mu.Lock()
	if b.closed {
		sub.closeLocked()
		b.mu.Unlock()
		return sub, nil
	}
	if b.rooms[roomID] == nil {
		b.rooms[roomID] = make(map[*memorySubscription]struct{})
	}
	b.rooms[roomID][sub] = struct{}{}
	b.mu.Unlock()

	sub.stop = context.AfterFunc(ctx, func() { b.remove(sub) })
	return sub, nil
}

// Subscribers returns the number of live subscriptions of roomID.
func (b *MemoryBroker) Subscribers(roomID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rooms[roomID])
}

// Close ends every subscription.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for roomID, subs := range b.rooms {
		for sub := range subs {
			sub.closeLocked()
		}
		delete(b.rooms, roomID)
	}
	return nil
}

func (b *MemoryBroker) remove(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs, ok := b.rooms[sub.roomID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.rooms, sub.roomID)
		}
	}
	sub.closeLocked()
}

type memorySubscription struct {
	broker *MemoryBroker
	roomID string
	ch     chan *chat.Message
	stop   func() bool
	done   bool
}

func (s *memorySubscription) Messages() <-chan *chat.Message {
	return s.ch
}

func (s *memorySubscription) Close() error {
	if s.stop != nil {
		s.stop()
	}
	s.broker.remove(s)
	return nil
}

// closeLocked must be called with the broker mutex held.
func (s *memorySubscription) closeLocked() {
	if s.done {
		return
	}
	s.done = true
	close(s.ch)
}
