package chat

import (
	"time"

	"tender-server/internal/domain/company"
)

// ReadStatus is the receiver-side state of a message.
type ReadStatus string

const (
	ReadStatusUnread   ReadStatus = "unread"
	ReadStatusRead     ReadStatus = "read"
	ReadStatusArchived ReadStatus = "archived"
)

// ChatRoom is a conversation between exactly two companies.
type ChatRoom struct {
	ID                 string    `json:"id"`
	PairKey            string    `json:"-"`
	InitiatorCompanyID string    `json:"initiator_company_id"`
	RecipientCompanyID string    `json:"recipient_company_id"`
	TenderID           *string   `json:"tender_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// PairKey identifies the unordered pair {a, b}.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// HasParticipant reports whether companyID is one of the two parties.
func (r *ChatRoom) HasParticipant(companyID string) bool {
	return companyID != "" && (r.InitiatorCompanyID == companyID || r.RecipientCompanyID == companyID)
}

// Counterpart returns the other party from companyID's perspective.
func (r *ChatRoom) Counterpart(companyID string) string {
	if r.InitiatorCompanyID == companyID {
		return r.RecipientCompanyID
	}
	return r.InitiatorCompanyID
}

// Message is one chat entry. Only ReadStatus ever changes after insert.
type Message struct {
	ID                string     `json:"id"`
	RoomID            string     `json:"room_id"`
	SenderCompanyID   string     `json:"sender_company_id"`
	ReceiverCompanyID string     `json:"receiver_company_id"`
	Content           string     `json:"content"`
	PDFURL            *string    `json:"pdf_url,omitempty"`
	TenderID          *string    `json:"tender_id,omitempty"`
	TenderRequestID   *string    `json:"tender_request_id,omitempty"`
	ReadStatus        ReadStatus `json:"read_status"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Before orders messages by creation time, then id.
func (m *Message) Before(other *Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID < other.ID
}

// MessageView is a message joined with its sender's display metadata.
type MessageView struct {
	Message
	Sender company.Profile `json:"sender"`
}

// RoomDetail is a room with both participants resolved.
type RoomDetail struct {
	Room      *ChatRoom       `json:"room"`
	Initiator company.Profile `json:"initiator"`
	Recipient company.Profile `json:"recipient"`
}

// History is one backward page of a room. Messages are newest first.
// A nil Room means the room cannot be displayed.
type History struct {
	Room     *RoomDetail   `json:"room"`
	Messages []MessageView `json:"messages"`
	Limit    int           `json:"limit"`
	Offset   int           `json:"offset"`
	HasMore  bool          `json:"has_more"`
}

// SummaryRow is the per-room projection the repository returns.
type SummaryRow struct {
	Room        *ChatRoom
	LastMessage *Message
	UnreadCount int
}

// RoomSummary is one entry of a company's room list.
type RoomSummary struct {
	Room        *ChatRoom       `json:"room"`
	Counterpart company.Profile `json:"counterpart"`
	LastMessage *Message        `json:"last_message"`
	UnreadCount int             `json:"unread_count"`
}

// LastActivity is the time of the last message, or the room's update time when empty.
func (r SummaryRow) LastActivity() time.Time {
	if r.LastMessage != nil {
		return r.LastMessage.CreatedAt
	}
	return r.Room.UpdatedAt
}

// SendInput carries the user supplied parts of a new message.
type SendInput struct {
	Content         string
	PDFURL          *string
	TenderID        *string
	TenderRequestID *string
}
