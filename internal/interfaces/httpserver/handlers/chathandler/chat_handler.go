package chathandler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"tender-server/internal/domain/chat"
	"tender-server/internal/infrastructure/metrics"
	"tender-server/internal/interfaces/httpserver/middlewares"
	"tender-server/internal/interfaces/httpserver/requests"
	"tender-server/internal/interfaces/httpserver/responses"
	"tender-server/internal/utils/platformerrors"
)

// ChatService is the chat use case surface the handler depends on.
type ChatService interface {
	chat.HistoryLoader

	CreateOrGetRoom(ctx context.Context, initiatorID, recipientID string, tenderID *string) (*chat.ChatRoom, bool, error)
	GetRoom(ctx context.Context, viewerID, roomID string) (*chat.RoomDetail, error)
	ListRoomSummaries(ctx context.Context, companyID string) ([]chat.RoomSummary, error)
	SendMessage(ctx context.Context, senderID, roomID string, in chat.SendInput) (*chat.MessageView, error)
	MarkRoomRead(ctx context.Context, viewerID, roomID string) (int64, error)
}

// ChatHandler serves the chat REST endpoints and the websocket room stream.
type ChatHandler struct {
	service  ChatService
	feed     *chat.LiveFeed
	validate *validator.Validate
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewChatHandler creates a chat handler. allowedOrigins restricts websocket upgrades from
// browsers; "*" allows any origin.
func NewChatHandler(service ChatService, feed *chat.LiveFeed, allowedOrigins []string, log zerolog.Logger) *ChatHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &ChatHandler{
		service:  service,
		feed:     feed,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins[origin] || origins["*"]
			},
		},
		log: log.With().Str("component", "chat-handler").Logger(),
	}
}

// CreateRoomResponse is the room and whether this call created it.
type CreateRoomResponse struct {
	Room    *chat.ChatRoom `json:"room"`
	Created bool           `json:"created"`
}

// RoomListResponse is the caller's room list, most recent activity first.
type RoomListResponse struct {
	Data []chat.RoomSummary `json:"data"`
}

// MarkReadResponse reports how many messages changed to read.
type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

// CreateRoom godoc
// @Summary Create or get chat room
// @Description Returns the room between the caller's company and the recipient, creating it when needed. The pair is unordered.
// @Tags Chat
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body requests.CreateRoomRequest true "Recipient"
// @Success 200 {object} CreateRoomResponse "Existing room"
// @Success 201 {object} CreateRoomResponse "New room"
// @Failure 400 {object} responses.ErrorResponse
// @Router /v1/chat/rooms [post]
func (h *ChatHandler) CreateRoom(reqCtx *gin.Context) {
	companyID, ok := callerCompanyID(reqCtx)
	if !ok {
		return
	}
	var req requests.CreateRoomRequest
	if !h.bind(reqCtx, &req) {
		return
	}

	room, created, err := h.service.CreateOrGetRoom(reqCtx.Request.Context(), companyID, req.RecipientCompanyID, req.TenderID)
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to open chat room")
		return
	}
	if created {
		metrics.RoomsCreatedTotal.Inc()
		responses.Created(reqCtx, CreateRoomResponse{Room: room, Created: true})
		return
	}
	responses.OK(reqCtx, CreateRoomResponse{Room: room})
}

// ListRooms godoc
// @Summary List chat rooms
// @Description Room list with counterpart, last message and unread count, most recent activity first.
// @Tags Chat
// @Security BearerAuth
// @Produce json
// @Success 200 {object} RoomListResponse
// @Router /v1/chat/rooms [get]
func (h *ChatHandler) ListRooms(reqCtx *gin.Context) {
	companyID, ok := callerCompanyID(reqCtx)
	if !ok {
		return
	}
	summaries, err := h.service.ListRoomSummaries(reqCtx.Request.Context(), companyID)
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to list chat rooms")
		return
	}
	responses.OK(reqCtx, RoomListResponse{Data: summaries})
}

// GetRoom godoc
// @Summary Get chat room
// @Tags Chat
// @Security BearerAuth
// @Produce json
// @Param id path string true "Room ID (room_...)"
// @Success 200 {object} chat.RoomDetail
// @Failure 403 {object} responses.ErrorResponse
// @Failure 404 {object} responses.ErrorResponse
// @Router /v1/chat/rooms/{id} [get]
func (h *ChatHandler) GetRoom(reqCtx *gin.Context) {
	companyID, ok := callerCompanyID(reqCtx)
	if !ok {
		return
	}
	detail, err := h.service.GetRoom(reqCtx.Request.Context(), companyID, reqCtx.Param("id"))
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to load chat room")
		return
	}
	responses.OK(reqCtx, detail)
}

// ListMessages godoc
// @Summary Load chat history
// @Description One backward page, newest first. offset must be a multiple of limit.
// @Tags Chat
// @Security BearerAuth
// @Produce json
// @Param id path string true "Room ID (room_...)"
// @Param limit query int false "Page size" default(30)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} chat.History
// @Failure 400 {object} responses.ErrorResponse
// @Failure 403 {object} responses.ErrorResponse
// @Router /v1/chat/rooms/{id}/messages [get]
func (h *ChatHandler) ListMessages(reqCtx *gin.Context) {
	companyID, ok := callerCompanyID(reqCtx)
	if !ok {
		return
	}
	pagination, err := requests.GetPaginationFromQuery(reqCtx)
	if err != nil {
		responses.HandleError(reqCtx, err, "invalid pagination")
		return
	}
	if reqCtx.Query("limit") == "" {
		pagination.Limit = chat.DefaultPageSize
	}

	history, err := h.service.LoadHistory(reqCtx.Request.Context(), companyID, reqCtx.Param("id"), pagination.Limit, pagination.Offset)
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to load chat history")
		return
	}
	responses.OK(reqCtx, history)
}

// SendMessage godoc
// @Summary Send chat message
// @Tags Chat
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Room ID (room_...)"
// @Param request body requests.SendMessageRequest true "Message"
// @Success 201 {object} chat.MessageView
// @Failure 400 {object} responses.ErrorResponse
// @Failure 403 {object} responses.ErrorResponse
// @Router /v1/chat/rooms/{id}/messages [post]
func (h *ChatHandler) SendMessage(reqCtx *gin.Context) {
	companyID, ok := callerCompanyID(reqCtx)
	if !ok {
		return
	}
	var req requests.SendMessageRequest
	if !h.bind(reqCtx, &req) {
		return
	}

	view, err := h.service.SendMessage(reqCtx.Request.Context(), companyID, reqCtx.Param("id"), req.ToInput())
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to send message")
		return
	}
	metrics.MessagesSentTotal.Inc()
	responses.Created(reqCtx, view)
}

// MarkRead godoc
// @Summary Mark room read
// @Description Marks every unread message addressed to the caller in this room as read.
// @Tags Chat
// @Security BearerAuth
// @Produce json
// @Param id path string true "Room ID (room_...)"
// @Success 200 {object} MarkReadResponse
// @Failure 403 {object} responses.ErrorResponse
// @Router /v1/chat/rooms/{id}/read [post]
func (h *ChatHandler) MarkRead(reqCtx *gin.Context) {
	companyID, ok := callerCompanyID(reqCtx)
	if !ok {
		return
	}
	updated, err := h.service.MarkRoomRead(reqCtx.Request.Context(), companyID, reqCtx.Param("id"))
	if err != nil {
		responses.HandleError(reqCtx, err, "failed to mark room read")
		return
	}
	responses.OK(reqCtx, MarkReadResponse{Updated: updated})
}

func (h *ChatHandler) bind(reqCtx *gin.Context, req any) bool {
	if err := reqCtx.ShouldBindJSON(req); err != nil {
		responses.HandleValidationError(reqCtx, err, "c8e3f1a6-2d9b-4b57-a4e0-7f1c5d8b3a92")
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		responses.HandleValidationError(reqCtx, err, "19a6d2f4-8e7c-4c31-b5f9-3d0e6a2c8b47")
		return false
	}
	return true
}

func callerCompanyID(reqCtx *gin.Context) (string, bool) {
	cmp, ok := middlewares.CompanyFromContext(reqCtx)
	if !ok {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeForbidden, "current user has no company profile", "7b2f5e9c-4a1d-4e86-9c03-b8d6f2a5e1c4")
		return "", false
	}
	return cmp.ID, true
}
