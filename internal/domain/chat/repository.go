package chat

import (
	"context"
	"errors"
)

// Repository persists rooms and messages.
type Repository interface {
	// CreateOrGetRoom inserts room unless a room for the same pair exists, and returns
	// the stored room and whether it was created by this call.
	CreateOrGetRoom(ctx context.Context, room *ChatRoom) (*ChatRoom, bool, error)
	GetRoom(ctx context.Context, id string) (*ChatRoom, error)
	ListRoomsByCompany(ctx context.Context, companyID string) ([]*ChatRoom, error)

	// InsertMessage stores msg with the default read status and bumps the room's update time.
	InsertMessage(ctx context.Context, msg *Message) error
	GetMessage(ctx context.Context, id string) (*Message, error)
	// ListMessages returns a page of a room's messages, newest first.
	ListMessages(ctx context.Context, roomID string, limit, offset int) ([]*Message, error)
	// MarkRead flips unread messages addressed to receiverID in roomID to read.
	MarkRead(ctx context.Context, roomID, receiverID string) (int64, error)

	// ListRoomSummaries returns one row per room of companyID with its last message and
	// the number of unread messages addressed to companyID, most recent activity first.
	ListRoomSummaries(ctx context.Context, companyID string) ([]SummaryRow, error)
}

// Broker fans newly inserted messages out to per-room subscribers.
type Broker interface {
	Publish(ctx context.Context, msg *Message) error
	Subscribe(ctx context.Context, roomID string) (Subscription, error)
}

// Subscription delivers raw message rows for one room until closed.
type Subscription interface {
	Messages() <-chan *Message
	Close() error
}

// ErrNoRoomOpen is returned by RoomView operations that need an open room.
var ErrNoRoomOpen = errors.New("no chat room is open")
