package chat

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// SenderResolver joins a raw message with its sender's display metadata.
type SenderResolver interface {
	ResolveSender(ctx context.Context, msg *Message) (MessageView, error)
}

// LiveFeed turns raw broker events into resolved message views for one room.
type LiveFeed struct {
	broker   Broker
	resolver SenderResolver
	log      zerolog.Logger
}

// NewLiveFeed creates a live feed on top of broker.
func NewLiveFeed(broker Broker, resolver SenderResolver, log zerolog.Logger) *LiveFeed {
	return &LiveFeed{
		broker:   broker,
		resolver: resolver,
		log:      log.With().Str("component", "chat-livefeed").Logger(),
	}
}

// FeedSubscription delivers resolved messages of one room until Close is called or the
// parent context ends. Events whose sender cannot be resolved are dropped.
type FeedSubscription struct {
	roomID string
	out    chan MessageView
	src    Subscription
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// Subscribe opens a feed for roomID.
func (f *LiveFeed) Subscribe(ctx context.Context, roomID string) (*FeedSubscription, error) {
	feedCtx, cancel := context.WithCancel(ctx)
	src, err := f.broker.Subscribe(feedCtx, roomID)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &FeedSubscription{
		roomID: roomID,
		out:    make(chan MessageView, 16),
		src:    src,
		cancel: cancel,
	}
	sub.wg.Add(1)
	go f.pump(feedCtx, sub)
	return sub, nil
}

func (f *LiveFeed) pump(ctx context.Context, sub *FeedSubscription) {
	defer sub.wg.Done()
	defer close(sub.out)

	events := sub.src.Messages()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			if msg == nil || msg.RoomID != sub.roomID {
				continue
			}
			view, err := f.resolver.ResolveSender(ctx, msg)
			if err != nil {
				f.log.Warn().Err(err).Str("room_id", sub.roomID).Str("message_id", msg.ID).Msg("dropping live event, sender lookup failed")
				continue
			}
			select {
			case sub.out <- view:
			case <-ctx.Done():
				return
			}
		}
	}
}

// C returns the channel of resolved messages. It is closed when the subscription ends.
func (s *FeedSubscription) C() <-chan MessageView {
	return s.out
}

// RoomID returns the room the subscription is filtered on.
func (s *FeedSubscription) RoomID() string {
	return s.roomID
}

// Close stops delivery and releases the broker subscription. It is safe to call more than once.
func (s *FeedSubscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.src.Close()
		s.wg.Wait()
	})
	return err
}
