package memory

import (
	"context"
	"sort"
	"sync"

	"tender-server/internal/domain/chat"
)

type ChatRepository struct {
	mu       sync.RWMutex
	rooms    map[string]chat.ChatRoom
	byPair   map[string]string
	messages map[string]chat.Message
}

var _ chat.Repository = (*ChatRepository)(nil)

func NewChatRepository() *ChatRepository {
	return &ChatRepository{
		rooms:    make(map[string]chat.ChatRoom),
		byPair:   make(map[string]string),
		messages: make(map[string]chat.Message),
	}
}

func (r *ChatRepository) CreateOrGetRoom(_ context.Context, room *chat.ChatRoom) (*chat.ChatRoom, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byPair[room.PairKey]; ok {
		existing := r.rooms[id]
		return &existing, false, nil
	}
	r.rooms[room.ID] = *room
	r.byPair[room.PairKey] = room.ID
	stored := *room
	return &stored, true, nil
}

func (r *ChatRepository) GetRoom(ctx context.Context, id string) (*chat.ChatRoom, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	if !ok {
		return nil, notFound(ctx, "chat room")
	}
	return &room, nil
}

func (r *ChatRepository) ListRoomsByCompany(_ context.Context, companyID string) ([]*chat.ChatRoom, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.roomsOf(companyID), nil
}

func (r *ChatRepository) InsertMessage(ctx context.Context, msg *chat.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[msg.RoomID]
	if !ok {
		return notFound(ctx, "chat room")
	}
	if _, ok := r.messages[msg.ID]; ok {
		return conflict(ctx, "message already exists")
	}
	if msg.ReadStatus == "" {
		msg.ReadStatus = chat.ReadStatusUnread
	}
	r.messages[msg.ID] = *msg
	room.UpdatedAt = msg.CreatedAt
	r.rooms[room.ID] = room
	return nil
}

func (r *ChatRepository) GetMessage(ctx context.Context, id string) (*chat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msg, ok := r.messages[id]
	if !ok {
		return nil, notFound(ctx, "message")
	}
	return &msg, nil
}

func (r *ChatRepository) ListMessages(_ context.Context, roomID string, limit, offset int) ([]*chat.Message, error) {
	r.mu.RLock()
	matched := make([]*chat.Message, 0)
	for _, msg := range r.messages {
		if msg.RoomID == roomID {
			msg := msg
			matched = append(matched, &msg)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[j].Before(matched[i])
	})
	return window(matched, limit, offset), nil
}

func (r *ChatRepository) MarkRead(_ context.Context, roomID, receiverID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var updated int64
	for id, msg := range r.messages {
		if msg.RoomID == roomID && msg.ReceiverCompanyID == receiverID && msg.ReadStatus == chat.ReadStatusUnread {
			msg.ReadStatus = chat.ReadStatusRead
			r.messages[id] = msg
			updated++
		}
	}
	return updated, nil
}

// ListRoomSummaries groups the stored messages in memory with chat.Summarize.
func (r *ChatRepository) ListRoomSummaries(_ context.Context, companyID string) ([]chat.SummaryRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rooms := r.roomsOf(companyID)
	messages := make([]*chat.Message, 0, len(r.messages))
	for _, msg := range r.messages {
		msg := msg
		messages = append(messages, &msg)
	}
	return chat.Summarize(rooms, messages, companyID), nil
}

func (r *ChatRepository) roomsOf(companyID string) []*chat.ChatRoom {
	rooms := make([]*chat.ChatRoom, 0)
	for _, room := range r.rooms {
		if room.HasParticipant(companyID) {
			room := room
			rooms = append(rooms, &room)
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		if !rooms[i].UpdatedAt.Equal(rooms[j].UpdatedAt) {
			return rooms[i].UpdatedAt.After(rooms[j].UpdatedAt)
		}
		return rooms[i].ID > rooms[j].ID
	})
	return rooms
}
