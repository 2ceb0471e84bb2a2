package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"tender-server/internal/domain/company"
	"tender-server/internal/domain/notification"
	"tender-server/internal/utils/idgen"
	"tender-server/internal/utils/platformerrors"
)

const (
	DefaultPageSize   = 30
	MaxPageSize       = 100
	maxContentLength  = 4000
	emailPreviewRunes = 140
	markReadTimeout   = 5 * time.Second
)

// ProfileResolver resolves company display metadata.
type ProfileResolver interface {
	ResolveProfiles(ctx context.Context, ids []string) (map[string]company.Profile, error)
	ResolveProfile(ctx context.Context, id string) (company.Profile, error)
}

// Service implements the chat use cases.
type Service struct {
	repo     Repository
	broker   Broker
	profiles ProfileResolver
	notifier notification.Notifier
	baseURL  string
	now      func() time.Time
	log      zerolog.Logger
}

// NewService wires the chat service.
func NewService(repo Repository, broker Broker, profiles ProfileResolver, notifier notification.Notifier, baseURL string, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		broker:   broker,
		profiles: profiles,
		notifier: notifier,
		baseURL:  strings.TrimRight(baseURL, "/"),
		now:      func() time.Time { return time.Now().UTC() },
		log:      log.With().Str("component", "chat-service").Logger(),
	}
}

// CreateOrGetRoom returns the room between initiatorID and recipientID, creating it on
// first contact. The pair is unordered, so either side asking yields the same room.
func (s *Service) CreateOrGetRoom(ctx context.Context, initiatorID, recipientID string, tenderID *string) (*ChatRoom, bool, error) {
	if !idgen.IsValid(idgen.PrefixCompany, recipientID) {
		return nil, false, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid recipient company ID", nil, "")
	}
	if initiatorID == recipientID {
		return nil, false, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "a company cannot open a chat with itself", nil, "")
	}
	if tenderID != nil && !idgen.IsValid(idgen.PrefixTender, *tenderID) {
		return nil, false, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid tender ID", nil, "")
	}

	profiles, err := s.profiles.ResolveProfiles(ctx, []string{initiatorID, recipientID})
	if err != nil {
		return nil, false, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to resolve chat participants")
	}
	if _, ok := profiles[recipientID]; !ok {
		return nil, false, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "recipient company not found", nil, "")
	}

	now := s.now()
	room := &ChatRoom{
		ID:                 idgen.New(idgen.PrefixRoom),
		PairKey:            PairKey(initiatorID, recipientID),
		InitiatorCompanyID: initiatorID,
		RecipientCompanyID: recipientID,
		TenderID:           tenderID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	stored, created, err := s.repo.CreateOrGetRoom(ctx, room)
	if err != nil {
		return nil, false, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to create chat room")
	}

	if created {
		s.log.Info().Str("room_id", stored.ID).Msg("chat room created")
		recipient := profiles[recipientID]
		s.notifier.Notify(ctx, notification.Email{
			Kind: notification.KindNewRoom,
			To:   recipient.Email,
			Data: map[string]any{
				"RecipientName": recipient.Name,
				"InitiatorName": profiles[initiatorID].Name,
				"Link":          s.roomLink(stored.ID),
			},
		})
	}
	return stored, created, nil
}

// GetRoom returns a room with both participants resolved. Only participants may read it.
func (s *Service) GetRoom(ctx context.Context, viewerID, roomID string) (*RoomDetail, error) {
	room, err := s.participantRoom(ctx, viewerID, roomID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, room)
}

// ListRoomSummaries returns the room list of companyID with counterpart, last message and
// unread count per room.
func (s *Service) ListRoomSummaries(ctx context.Context, companyID string) ([]RoomSummary, error) {
	rows, err := s.repo.ListRoomSummaries(ctx, companyID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list chat rooms")
	}

	counterparts := make([]string, 0, len(rows))
	for _, row := range rows {
		counterparts = append(counterparts, row.Room.Counterpart(companyID))
	}
	profiles, err := s.profiles.ResolveProfiles(ctx, counterparts)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to resolve chat counterparts")
	}

	summaries := make([]RoomSummary, 0, len(rows))
	for _, row := range rows {
		id := row.Room.Counterpart(companyID)
		profile, ok := profiles[id]
		if !ok {
			profile = company.Profile{ID: id}
		}
		summaries = append(summaries, RoomSummary{
			Room:        row.Room,
			Counterpart: profile,
			LastMessage: row.LastMessage,
			UnreadCount: row.UnreadCount,
		})
	}
	return summaries, nil
}

// LoadHistory fetches one backward page of roomID for viewerID together with the room
// and its participants. offset must be a non-negative multiple of pageSize.
// On any failure the returned History has a nil Room and no messages: the room cannot
// be displayed, which is different from an empty room.
func (s *Service) LoadHistory(ctx context.Context, viewerID, roomID string, pageSize, offset int) (*History, error) {
	empty := &History{Messages: []MessageView{}, Limit: pageSize, Offset: offset}

	if pageSize < 1 || pageSize > MaxPageSize {
		return empty, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, fmt.Sprintf("page size must be between 1 and %d", MaxPageSize), nil, "")
	}
	if offset < 0 || offset%pageSize != 0 {
		return empty, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "offset must be a non-negative multiple of the page size", nil, "")
	}

	var (
		room     *ChatRoom
		messages []*Message
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.repo.GetRoom(gctx, roomID)
		room = r
		return err
	})
	g.Go(func() error {
		m, err := s.repo.ListMessages(gctx, roomID, pageSize, offset)
		messages = m
		return err
	})
	if err := g.Wait(); err != nil {
		return empty, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load chat history")
	}
	if !room.HasParticipant(viewerID) {
		return empty, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "not a participant of this chat room", nil, "")
	}

	detail, err := s.detail(ctx, room)
	if err != nil {
		return empty, err
	}

	views := make([]MessageView, 0, len(messages))
	for _, m := range messages {
		sender := detail.Initiator
		if m.SenderCompanyID == detail.Recipient.ID {
			sender = detail.Recipient
		}
		views = append(views, MessageView{Message: *m, Sender: sender})
	}

	return &History{
		Room:     detail,
		Messages: views,
		Limit:    pageSize,
		Offset:   offset,
		HasMore:  len(messages) == pageSize,
	}, nil
}

// SendMessage stores a message from senderID into roomID, publishes it to live
// subscribers and emails the receiver. Publication and email are best effort.
func (s *Service) SendMessage(ctx context.Context, senderID, roomID string, in SendInput) (*MessageView, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" && in.PDFURL == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "message needs text or an attachment", nil, "")
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, fmt.Sprintf("message exceeds %d characters", maxContentLength), nil, "")
	}

	room, err := s.participantRoom(ctx, senderID, roomID)
	if err != nil {
		return nil, err
	}
	profiles, err := s.profiles.ResolveProfiles(ctx, []string{room.InitiatorCompanyID, room.RecipientCompanyID})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to resolve chat participants")
	}

	now := s.now()
	msg := &Message{
		ID:                idgen.NewAt(idgen.PrefixMessage, now),
		RoomID:            room.ID,
		SenderCompanyID:   senderID,
		ReceiverCompanyID: room.Counterpart(senderID),
		Content:           content,
		PDFURL:            in.PDFURL,
		TenderID:          in.TenderID,
		TenderRequestID:   in.TenderRequestID,
		CreatedAt:         now,
	}
	if err := s.repo.InsertMessage(ctx, msg); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to send message")
	}
	msg.ReadStatus = ReadStatusUnread

	if err := s.broker.Publish(ctx, msg); err != nil {
		s.log.Warn().Err(err).Str("message_id", msg.ID).Msg("live publish failed")
	}

	receiver := profiles[msg.ReceiverCompanyID]
	s.notifier.Notify(ctx, notification.Email{
		Kind: notification.KindNewMessage,
		To:   receiver.Email,
		Data: map[string]any{
			"RecipientName": receiver.Name,
			"SenderName":    profiles[senderID].Name,
			"Preview":       preview(content, in.PDFURL != nil),
			"Link":          s.roomLink(room.ID),
		},
	})

	return &MessageView{Message: *msg, Sender: profiles[senderID]}, nil
}

// MarkRoomRead marks every unread message addressed to viewerID in roomID as read.
// Messages addressed to the counterpart are never touched.
func (s *Service) MarkRoomRead(ctx context.Context, viewerID, roomID string) (int64, error) {
	if _, err := s.participantRoom(ctx, viewerID, roomID); err != nil {
		return 0, err
	}
	updated, err := s.repo.MarkRead(ctx, roomID, viewerID)
	if err != nil {
		return 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to mark messages as read")
	}
	return updated, nil
}

// MarkRoomReadAsync runs MarkRoomRead in the background. Failures are logged, never retried.
func (s *Service) MarkRoomReadAsync(ctx context.Context, viewerID, roomID string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markReadTimeout)
		defer cancel()
		updated, err := s.MarkRoomRead(markCtx, viewerID, roomID)
		if err != nil {
			s.log.Warn().Err(err).Str("room_id", roomID).Str("company_id", viewerID).Msg("mark room read failed")
			return
		}
		s.log.Debug().Str("room_id", roomID).Int64("updated", updated).Msg("room marked read")
	}()
	return done
}

// ResolveSender joins a raw message with its sender's display metadata.
func (s *Service) ResolveSender(ctx context.Context, msg *Message) (MessageView, error) {
	profile, err := s.profiles.ResolveProfile(ctx, msg.SenderCompanyID)
	if err != nil {
		return MessageView{}, err
	}
	return MessageView{Message: *msg, Sender: profile}, nil
}

func (s *Service) participantRoom(ctx context.Context, companyID, roomID string) (*ChatRoom, error) {
	if !idgen.IsValid(idgen.PrefixRoom, roomID) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid chat room ID", nil, "")
	}
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "chat room not found")
	}
	if !room.HasParticipant(companyID) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "not a participant of this chat room", nil, "")
	}
	return room, nil
}

func (s *Service) detail(ctx context.Context, room *ChatRoom) (*RoomDetail, error) {
	profiles, err := s.profiles.ResolveProfiles(ctx, []string{room.InitiatorCompanyID, room.RecipientCompanyID})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to resolve chat participants")
	}
	initiator, ok := profiles[room.InitiatorCompanyID]
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "initiator company not found", nil, "")
	}
	recipient, ok := profiles[room.RecipientCompanyID]
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "recipient company not found", nil, "")
	}
	return &RoomDetail{Room: room, Initiator: initiator, Recipient: recipient}, nil
}

func (s *Service) roomLink(roomID string) string {
	return fmt.Sprintf("%s/chat/%s", s.baseURL, roomID)
}

func preview(content string, hasAttachment bool) string {
	if content == "" && hasAttachment {
		return "(PDF attachment)"
	}
	if utf8.RuneCountInString(content) <= emailPreviewRunes {
		return content
	}
	runes := []rune(content)
	return string(runes[:emailPreviewRunes]) + "…"
}
