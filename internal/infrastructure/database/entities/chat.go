package entities

import (
	"time"

	"tender-server/internal/domain/chat"
)

// ChatRoom is the persisted room row.
type ChatRoom struct {
	ID                 string  `gorm:"type:text;primaryKey"`
	PairKey            string  `gorm:"type:text;uniqueIndex;not null"`
	InitiatorCompanyID string  `gorm:"type:text;not null"`
	RecipientCompanyID string  `gorm:"type:text;not null"`
	TenderID           *string `gorm:"type:text"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (ChatRoom) TableName() string {
	return "chat_rooms"
}

func NewChatRoom(r *chat.ChatRoom) *ChatRoom {
	return &ChatRoom{
		ID:                 r.ID,
		PairKey:            r.PairKey,
		InitiatorCompanyID: r.InitiatorCompanyID,
		RecipientCompanyID: r.RecipientCompanyID,
		TenderID:           r.TenderID,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func (e *ChatRoom) EtoD() *chat.ChatRoom {
	return &chat.ChatRoom{
		ID:                 e.ID,
		PairKey:            e.PairKey,
		InitiatorCompanyID: e.InitiatorCompanyID,
		RecipientCompanyID: e.RecipientCompanyID,
		TenderID:           e.TenderID,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
}

// Message is the persisted message row.
type Message struct {
	ID                string  `gorm:"type:text;primaryKey"`
	RoomID            string  `gorm:"type:text;not null"`
	SenderCompanyID   string  `gorm:"type:text;not null"`
	ReceiverCompanyID string  `gorm:"type:text;not null"`
	Content           string  `gorm:"type:text;not null"`
	PDFURL            *string `gorm:"column:pdf_url;type:text"`
	TenderID          *string `gorm:"type:text"`
	TenderRequestID   *string `gorm:"type:text"`
	ReadStatus        string  `gorm:"type:text;not null;default:unread"`
	CreatedAt         time.Time
}

func (Message) TableName() string {
	return "messages"
}

func NewMessage(m *chat.Message) *Message {
	return &Message{
		ID:                m.ID,
		RoomID:            m.RoomID,
		SenderCompanyID:   m.SenderCompanyID,
		ReceiverCompanyID: m.ReceiverCompanyID,
		Content:           m.Content,
		PDFURL:            m.PDFURL,
		TenderID:          m.TenderID,
		TenderRequestID:   m.TenderRequestID,
		ReadStatus:        string(m.ReadStatus),
		CreatedAt:         m.CreatedAt,
	}
}

func (e *Message) EtoD() *chat.Message {
	return &chat.Message{
		ID:                e.ID,
		RoomID:            e.RoomID,
		SenderCompanyID:   e.SenderCompanyID,
		ReceiverCompanyID: e.ReceiverCompanyID,
		Content:           e.Content,
		PDFURL:            e.PDFURL,
		TenderID:          e.TenderID,
		TenderRequestID:   e.TenderRequestID,
		ReadStatus:        chat.ReadStatus(e.ReadStatus),
		CreatedAt:         e.CreatedAt,
	}
}
