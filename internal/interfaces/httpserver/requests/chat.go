package requests

import "tender-server/internal/domain/chat"

// CreateRoomRequest opens, or returns the existing, room with another company.
type CreateRoomRequest struct {
	RecipientCompanyID string  `json:"recipient_company_id" validate:"required"`
	TenderID           *string `json:"tender_id"`
}

// SendMessageRequest posts a message to a room. Content may be empty when a PDF is attached.
type SendMessageRequest struct {
	Content         string  `json:"content" validate:"max=4000"`
	PDFURL          *string `json:"pdf_url" validate:"omitempty,url"`
	TenderID        *string `json:"tender_id"`
	TenderRequestID *string `json:"tender_request_id"`
}

// ToInput converts the request into the chat service input.
func (r SendMessageRequest) ToInput() chat.SendInput {
	return chat.SendInput{
		Content:         r.Content,
		PDFURL:          r.PDFURL,
		TenderID:        r.TenderID,
		TenderRequestID: r.TenderRequestID,
	}
}
