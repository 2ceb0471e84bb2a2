package chathandler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"tender-server/internal/domain/chat"
	"tender-server/internal/infrastructure/metrics"
	"tender-server/internal/interfaces/httpserver/responses"
	"tender-server/internal/utils/platformerrors"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxCommandSize = 4096
)

// Client commands.
const (
	commandOpen     = "open"
	commandLoadMore = "load_more"
	commandClose    = "close"
	commandInvalid  = "invalid"
)

// Server events.
const (
	eventSnapshot = "snapshot"
	eventMessage  = "message"
	eventClosed   = "closed"
	eventError    = "error"
)

type clientCommand struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id,omitempty"`
}

type snapshotEvent struct {
	Type     string             `json:"type"`
	RoomID   string             `json:"room_id"`
	Room     *chat.RoomDetail   `json:"room"`
	Messages []chat.MessageView `json:"messages"`
	HasMore  bool               `json:"has_more"`
}

type messageEvent struct {
	Type    string           `json:"type"`
	Message chat.MessageView `json:"message"`
}

type closedEvent struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

type errorEvent struct {
	Type  string              `json:"type"`
	Error responses.ErrorBody `json:"error"`
}

// Stream godoc
// @Summary Chat room stream
// @Description Websocket. Send {"type":"open","room_id":"..."}, {"type":"load_more"} or {"type":"close"}. The server answers with snapshot, message and error events. Browsers pass the token as access_token.
// @Tags Chat
// @Security BearerAuth
// @Param access_token query string false "Bearer token for browser clients"
// @Success 101 "Switching Protocols"
// @Failure 403 {object} responses.ErrorResponse
// @Router /v1/chat/ws [get]
func (h *ChatHandler) Stream(reqCtx *gin.Context) {
	companyID, ok := callerCompanyID(reqCtx)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(reqCtx.Writer, reqCtx.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	metrics.ActiveRoomStreams.Inc()
	defer metrics.ActiveRoomStreams.Dec()

	ctx, cancel := context.WithCancel(context.WithoutCancel(reqCtx.Request.Context()))
	defer cancel()

	stream := &roomStream{
		conn: conn,
		view: chat.NewRoomView(companyID, chat.DefaultPageSize, h.service, h.feed),
		log:  h.log.With().Str("company_id", companyID).Logger(),
	}
	stream.run(ctx, cancel)
}

// roomStream is one websocket connection. The reader goroutine only decodes commands;
// the run goroutine owns the socket writes and the room view.
type roomStream struct {
	conn *websocket.Conn
	view *chat.RoomView
	log  zerolog.Logger
}

func (s *roomStream) run(ctx context.Context, cancel context.CancelFunc) {
	commands := make(chan clientCommand)
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		s.readLoop(ctx, commands)
	}()

	s.writeLoop(ctx, commands)

	cancel()
	s.view.Close()
	_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	_ = s.conn.Close()
	<-readDone
}

func (s *roomStream) readLoop(ctx context.Context, commands chan<- clientCommand) {
	defer close(commands)

	s.conn.SetReadLimit(maxCommandSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug().Err(err).Msg("room stream read failed")
			}
			return
		}
		var cmd clientCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			cmd = clientCommand{Type: commandInvalid}
		}
		select {
		case commands <- cmd:
		case <-ctx.Done():
			return
		}
	}
}

func (s *roomStream) writeLoop(ctx context.Context, commands <-chan clientCommand) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-commands:
			if !ok {
				return
			}
			if err := s.handle(ctx, cmd); err != nil {
				return
			}
		case event, ok := <-s.view.Live():
			if !ok {
				roomID := s.view.RoomID()
				s.view.Close()
				if err := s.write(errorEvent{Type: eventError, Error: responses.ErrorBody{
					Message: "live updates for room " + roomID + " ended",
					Type:    string(platformerrors.ErrorTypeExternal),
				}}); err != nil {
					return
				}
				continue
			}
			merged, isNew := s.view.Apply(ctx, event)
			if !isNew {
				continue
			}
			if err := s.write(messageEvent{Type: eventMessage, Message: merged}); err != nil {
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// handle executes one client command. The returned error is a socket write failure;
// command failures are reported to the client as error events.
func (s *roomStream) handle(ctx context.Context, cmd clientCommand) error {
	switch cmd.Type {
	case commandOpen:
		snapshot, err := s.view.Open(ctx, cmd.RoomID)
		if err != nil {
			return s.writeError(ctx, err, "failed to open chat room")
		}
		return s.writeSnapshot(snapshot)
	case commandLoadMore:
		snapshot, err := s.view.LoadMore(ctx)
		if err != nil {
			return s.writeError(ctx, err, "failed to load older messages")
		}
		return s.writeSnapshot(snapshot)
	case commandClose:
		roomID := s.view.RoomID()
		s.view.Close()
		return s.write(closedEvent{Type: eventClosed, RoomID: roomID})
	default:
		return s.writeError(ctx, errUnknownCommand, "unknown command")
	}
}

var errUnknownCommand = errors.New("unknown command")

func (s *roomStream) writeSnapshot(snapshot *chat.Snapshot) error {
	return s.write(snapshotEvent{
		Type:     eventSnapshot,
		RoomID:   s.view.RoomID(),
		Room:     snapshot.Room,
		Messages: snapshot.Messages,
		HasMore:  snapshot.HasMore,
	})
}

func (s *roomStream) writeError(ctx context.Context, err error, message string) error {
	platformErr := platformerrors.GetPlatformError(err)
	if platformErr == nil {
		errorType := platformerrors.ErrorTypeInternal
		if errors.Is(err, chat.ErrNoRoomOpen) || errors.Is(err, errUnknownCommand) {
			errorType = platformerrors.ErrorTypeValidation
		}
		platformErr = platformerrors.NewError(ctx, platformerrors.LayerHandler, errorType, message, err, "")
	}
	platformerrors.LogError(s.log, platformErr)

	return s.write(errorEvent{Type: eventError, Error: responses.ErrorBody{
		Message: platformErr.Message,
		Type:    string(platformErr.Type),
		Code:    platformErr.UUID,
	}})
}

func (s *roomStream) write(event any) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(event)
}
