package chatrepo

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"tender-server/internal/domain/chat"
	"tender-server/internal/infrastructure/database"
	"tender-server/internal/infrastructure/database/entities"
)

// ChatGormRepository persists rooms and messages with gorm.
type ChatGormRepository struct {
	db *database.DB
}

var _ chat.Repository = (*ChatGormRepository)(nil)

func NewChatGormRepository(db *database.DB) chat.Repository {
	return &ChatGormRepository{db: db}
}

// CreateOrGetRoom relies on the unique pair_key index: a concurrent insert for the same
// pair loses the race silently and both callers read back the winning row.
func (r *ChatGormRepository) CreateOrGetRoom(ctx context.Context, room *chat.ChatRoom) (*chat.ChatRoom, bool, error) {
	tx := r.db.GetTx(ctx)
	model := entities.NewChatRoom(room)
	result := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pair_key"}},
		DoNothing: true,
	}).Create(model)
	if result.Error != nil {
		return nil, false, database.AsRepositoryError(ctx, result.Error, "failed to create chat room", "5c9e2a7f-0d3b-4e61-b8a4-1f7c6d0e9b23")
	}
	created := result.RowsAffected == 1

	var stored entities.ChatRoom
	if err := tx.Where("pair_key = ?", room.PairKey).First(&stored).Error; err != nil {
		return nil, false, database.AsRepositoryError(ctx, err, "failed to load chat room", "e1a4b7d0-6c2f-4938-9e5b-3d8a0f2c7e46")
	}
	return stored.EtoD(), created, nil
}

func (r *ChatGormRepository) GetRoom(ctx context.Context, id string) (*chat.ChatRoom, error) {
	var model entities.ChatRoom
	if err := r.db.GetTx(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, database.AsRepositoryError(ctx, err, "chat room not found", "8f3d6a1c-4b7e-4209-a5c2-9e0d3b6f1a78")
	}
	return model.EtoD(), nil
}

func (r *ChatGormRepository) ListRoomsByCompany(ctx context.Context, companyID string) ([]*chat.ChatRoom, error) {
	var models []entities.ChatRoom
	if err := r.db.GetTx(ctx).
		Where("initiator_company_id = ? OR recipient_company_id = ?", companyID, companyID).
		Order("updated_at DESC").Order("id DESC").
		Find(&models).Error; err != nil {
		return nil, database.AsRepositoryError(ctx, err, "failed to list chat rooms", "2b7f0e4a-9d1c-4c56-8a3e-6f5b2d9c0e17")
	}
	rooms := make([]*chat.ChatRoom, 0, len(models))
	for i := range models {
		rooms = append(rooms, models[i].EtoD())
	}
	return rooms, nil
}

// InsertMessage stores msg and bumps the room's activity time in one transaction.
// The insert trigger on messages feeds the Postgres live-feed broker.
func (r *ChatGormRepository) InsertMessage(ctx context.Context, msg *chat.Message) error {
	return r.db.Transaction(ctx, func(ctx context.Context) error {
		tx := r.db.GetTx(ctx)
		model := entities.NewMessage(msg)
		if model.ReadStatus == "" {
			model.ReadStatus = string(chat.ReadStatusUnread)
		}
		if err := tx.Create(model).Error; err != nil {
			return database.AsRepositoryError(ctx, err, "failed to insert message", "a6c0e3b9-7f2d-4a18-b4e7-0d9c5f1a3e62")
		}
		if err := tx.Model(&entities.ChatRoom{}).
			Where("id = ?", msg.RoomID).
			Update("updated_at", msg.CreatedAt).Error; err != nil {
			return database.AsRepositoryError(ctx, err, "failed to touch chat room", "3e8b1d5f-0a4c-4f97-92b6-7c1e4a8d0f35")
		}
		msg.ReadStatus = chat.ReadStatus(model.ReadStatus)
		return nil
	})
}

func (r *ChatGormRepository) GetMessage(ctx context.Context, id string) (*chat.Message, error) {
	var model entities.Message
	if err := r.db.GetTx(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, database.AsRepositoryError(ctx, err, "message not found", "d4f2a8c6-1e9b-4703-b5d0-8a3c6e2f9b71")
	}
	return model.EtoD(), nil
}

func (r *ChatGormRepository) ListMessages(ctx context.Context, roomID string, limit, offset int) ([]*chat.Message, error) {
	var models []entities.Message
	if err := r.db.GetTx(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&models).Error; err != nil {
		return nil, database.AsRepositoryError(ctx, err, "failed to list messages", "7b1e9c3a-5d0f-4826-a9e4-2c6b8d1f0a53")
	}
	messages := make([]*chat.Message, 0, len(models))
	for i := range models {
		messages = append(messages, models[i].EtoD())
	}
	return messages, nil
}

func (r *ChatGormRepository) MarkRead(ctx context.Context, roomID, receiverID string) (int64, error) {
	result := r.db.GetTx(ctx).Model(&entities.Message{}).
		Where("room_id = ? AND receiver_company_id = ? AND read_status = ?", roomID, receiverID, string(chat.ReadStatusUnread)).
		Update("read_status", string(chat.ReadStatusRead))
	if result.Error != nil {
		return 0, database.AsRepositoryError(ctx, result.Error, "failed to mark messages read", "0c5d7f2e-8b3a-4e64-9f1d-4a7e0b3c6d98")
	}
	return result.RowsAffected, nil
}

const roomSummariesSQL = `
WITH my_rooms AS (
    SELECT * FROM chat_rooms
    WHERE initiator_company_id = @company OR recipient_company_id = @company
),
last_messages AS (
    SELECT DISTINCT ON (m.room_id) m.*
    FROM messages m
    JOIN my_rooms r ON r.id = m.room_id
    ORDER BY m.room_id, m.created_at DESC, m.id DESC
),
unread AS (
    SELECT m.room_id,
           COUNT(*) FILTER (WHERE m.receiver_company_id = @company AND m.read_status = 'unread') AS unread_count
    FROM messages m
    JOIN my_rooms r ON r.id = m.room_id
    GROUP BY m.room_id
)
SELECT r.id AS room_id,
       r.pair_key,
       r.initiator_company_id,
       r.recipient_company_id,
       r.tender_id AS room_tender_id,
       r.created_at AS room_created_at,
       r.updated_at AS room_updated_at,
       lm.id AS message_id,
       lm.sender_company_id,
       lm.receiver_company_id,
       lm.content,
       lm.pdf_url,
       lm.tender_id AS message_tender_id,
       lm.tender_request_id,
       lm.read_status,
       lm.created_at AS message_created_at,
       COALESCE(u.unread_count, 0) AS unread_count
FROM my_rooms r
LEFT JOIN last_messages lm ON lm.room_id = r.id
LEFT JOIN unread u ON u.room_id = r.id
ORDER BY COALESCE(lm.created_at, r.updated_at) DESC, r.id DESC`

type summaryRow struct {
	RoomID             string
	PairKey            string
	InitiatorCompanyID string
	RecipientCompanyID string
	RoomTenderID       *string
	RoomCreatedAt      time.Time
	RoomUpdatedAt      time.Time
	MessageID          *string
	SenderCompanyID    *string
	ReceiverCompanyID  *string
	Content            *string
	PDFURL             *string `gorm:"column:pdf_url"`
	MessageTenderID    *string
	TenderRequestID    *string
	ReadStatus         *string
	MessageCreatedAt   *time.Time
	UnreadCount        int
}

// ListRoomSummaries projects the room list in a single query.
func (r *ChatGormRepository) ListRoomSummaries(ctx context.Context, companyID string) ([]chat.SummaryRow, error) {
	var rows []summaryRow
	if err := r.db.GetTx(ctx).Raw(roomSummariesSQL, map[string]any{"company": companyID}).Scan(&rows).Error; err != nil {
		return nil, database.AsRepositoryError(ctx, err, "failed to list chat room summaries", "9a2c5e8f-3d6b-4f10-a7e3-5b0d9c2f6e84")
	}

	result := make([]chat.SummaryRow, 0, len(rows))
	for _, row := range rows {
		summary := chat.SummaryRow{
			Room: &chat.ChatRoom{
				ID:                 row.RoomID,
				PairKey:            row.PairKey,
				InitiatorCompanyID: row.InitiatorCompanyID,
				RecipientCompanyID: row.RecipientCompanyID,
				TenderID:           row.RoomTenderID,
				CreatedAt:          row.RoomCreatedAt,
				UpdatedAt:          row.RoomUpdatedAt,
			},
			UnreadCount: row.UnreadCount,
		}
		if row.MessageID != nil {
			summary.LastMessage = &chat.Message{
				ID:                *row.MessageID,
				RoomID:            row.RoomID,
				SenderCompanyID:   deref(row.SenderCompanyID),
				ReceiverCompanyID: deref(row.ReceiverCompanyID),
				Content:           deref(row.Content),
				PDFURL:            row.PDFURL,
				TenderID:          row.MessageTenderID,
				TenderRequestID:   row.TenderRequestID,
				ReadStatus:        chat.ReadStatus(deref(row.ReadStatus)),
				CreatedAt:         derefTime(row.MessageCreatedAt),
			}
		}
		result = append(result, summary)
	}
	return result, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
