package chat_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"tender-server/internal/domain/chat"
	"tender-server/internal/domain/company"
	"tender-server/internal/domain/notification"
	"tender-server/internal/infrastructure/pubsub"
	"tender-server/internal/infrastructure/repository/memory"
	"tender-server/internal/utils/idgen"
	"tender-server/internal/utils/platformerrors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingNotifier struct {
	mu     sync.Mutex
	emails []notification.Email
}

func (n *recordingNotifier) Notify(_ context.Context, email notification.Email) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, email)
}

func (n *recordingNotifier) sent(kind notification.Kind) []notification.Email {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notification.Email
	for _, e := range n.emails {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type chatFixture struct {
	svc       *chat.Service
	companies *company.Service
	repo      *memory.ChatRepository
	broker    *pubsub.MemoryBroker
	feed      *chat.LiveFeed
	notifier  *recordingNotifier
	alpha     *company.Company
	beta      *company.Company
	gamma     *company.Company
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	ctx := context.Background()
	companies := company.NewService(memory.NewCompanyRepository(), nil, zerolog.Nop())
	create := func(subject, name string) *company.Company {
		c, err := companies.CreateCompany(ctx, subject, &company.Company{Name: name, Email: subject + "@example.test"})
		require.NoError(t, err)
		return c
	}

	f := &chatFixture{
		companies: companies,
		repo:      memory.NewChatRepository(),
		broker:    pubsub.NewMemoryBroker(zerolog.Nop()),
		notifier:  &recordingNotifier{},
		alpha:     create("alpha", "Alpha Logistics"),
		beta:      create("beta", "Beta Metals"),
		gamma:     create("gamma", "Gamma Build"),
	}
	f.svc = chat.NewService(f.repo, f.broker, companies, f.notifier, "https://market.test", zerolog.Nop())
	f.feed = chat.NewLiveFeed(f.broker, f.svc, zerolog.Nop())
	t.Cleanup(func() { _ = f.broker.Close() })
	return f
}

func (f *chatFixture) room(t *testing.T) *chat.ChatRoom {
	t.Helper()
	room, _, err := f.svc.CreateOrGetRoom(context.Background(), f.alpha.ID, f.beta.ID, nil)
	require.NoError(t, err)
	return room
}

func (f *chatFixture) send(t *testing.T, sender *company.Company, roomID, content string) *chat.MessageView {
	t.Helper()
	view, err := f.svc.SendMessage(context.Background(), sender.ID, roomID, chat.SendInput{Content: content})
	require.NoError(t, err)
	return view
}

func TestCreateOrGetRoomIsUnorderedPair(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	room, created, err := f.svc.CreateOrGetRoom(ctx, f.alpha.ID, f.beta.ID, nil)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, f.alpha.ID, room.InitiatorCompanyID)

	again, created, err := f.svc.CreateOrGetRoom(ctx, f.beta.ID, f.alpha.ID, nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, room.ID, again.ID)

	invites := f.notifier.sent(notification.KindNewRoom)
	require.Len(t, invites, 1)
	assert.Equal(t, f.beta.Email, invites[0].To)
	assert.Equal(t, "https://market.test/chat/"+room.ID, invites[0].Data["Link"])
}

func TestCreateOrGetRoomValidation(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	badTender := "tender-1"

	_, _, err := f.svc.CreateOrGetRoom(ctx, f.alpha.ID, f.alpha.ID, nil)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	_, _, err = f.svc.CreateOrGetRoom(ctx, f.alpha.ID, "nobody", nil)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	_, _, err = f.svc.CreateOrGetRoom(ctx, f.alpha.ID, idgen.New(idgen.PrefixCompany), nil)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	_, _, err = f.svc.CreateOrGetRoom(ctx, f.alpha.ID, f.beta.ID, &badTender)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestSendMessage(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	room := f.room(t)

	view := f.send(t, f.alpha, room.ID, "  Can you quote 40t of rebar?  ")
	assert.Equal(t, "Can you quote 40t of rebar?", view.Content)
	assert.Equal(t, f.beta.ID, view.ReceiverCompanyID)
	assert.Equal(t, chat.ReadStatusUnread, view.ReadStatus)
	assert.Equal(t, "Alpha Logistics", view.Sender.Name)

	emails := f.notifier.sent(notification.KindNewMessage)
	require.Len(t, emails, 1)
	assert.Equal(t, f.beta.Email, emails[0].To)
	assert.Equal(t, "Can you quote 40t of rebar?", emails[0].Data["Preview"])

	_, err := f.svc.SendMessage(ctx, f.gamma.ID, room.ID, chat.SendInput{Content: "hi"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden))

	_, err = f.svc.SendMessage(ctx, f.alpha.ID, room.ID, chat.SendInput{Content: "   "})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	pdf := "https://files.test/drawing.pdf"
	attachmentOnly, err := f.svc.SendMessage(ctx, f.beta.ID, room.ID, chat.SendInput{PDFURL: &pdf})
	require.NoError(t, err)
	assert.Equal(t, &pdf, attachmentOnly.PDFURL)
	assert.Equal(t, "(PDF attachment)", f.notifier.sent(notification.KindNewMessage)[1].Data["Preview"])
}

func TestLoadHistoryPages(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	room := f.room(t)

	var sent []string
	for i := 0; i < 5; i++ {
		sender := f.alpha
		if i%2 == 1 {
			sender = f.beta
		}
		sent = append(sent, f.send(t, sender, room.ID, "message").ID)
	}

	first, err := f.svc.LoadHistory(ctx, f.beta.ID, room.ID, 2, 0)
	require.NoError(t, err)
	require.NotNil(t, first.Room)
	assert.True(t, first.HasMore)
	require.Len(t, first.Messages, 2)
	assert.Equal(t, sent[4], first.Messages[0].ID, "newest first")
	assert.Equal(t, sent[3], first.Messages[1].ID)
	assert.Equal(t, "Beta Metals", first.Messages[1].Sender.Name)

	last, err := f.svc.LoadHistory(ctx, f.beta.ID, room.ID, 2, 4)
	require.NoError(t, err)
	assert.False(t, last.HasMore)
	require.Len(t, last.Messages, 1)
	assert.Equal(t, sent[0], last.Messages[0].ID)

	misaligned, err := f.svc.LoadHistory(ctx, f.beta.ID, room.ID, 2, 3)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
	assert.Nil(t, misaligned.Room)
	assert.Empty(t, misaligned.Messages)

	outsider, err := f.svc.LoadHistory(ctx, f.gamma.ID, room.ID, 2, 0)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden))
	assert.Nil(t, outsider.Room)

	missing, err := f.svc.LoadHistory(ctx, f.beta.ID, idgen.New(idgen.PrefixRoom), 2, 0)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
	assert.Nil(t, missing.Room)
}

func TestMarkRoomReadOnlyTouchesViewerInbox(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	room := f.room(t)

	f.send(t, f.alpha, room.ID, "one")
	f.send(t, f.alpha, room.ID, "two")
	f.send(t, f.beta, room.ID, "reply")

	summaries, err := f.svc.ListRoomSummaries(ctx, f.beta.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 2, summaries[0].UnreadCount)
	assert.Equal(t, "Alpha Logistics", summaries[0].Counterpart.Name)
	assert.Equal(t, "reply", summaries[0].LastMessage.Content)

	updated, err := f.svc.MarkRoomRead(ctx, f.beta.ID, room.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated)

	alphaSummaries, err := f.svc.ListRoomSummaries(ctx, f.alpha.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, alphaSummaries[0].UnreadCount, "the counterpart's inbox is untouched")

	<-f.svc.MarkRoomReadAsync(ctx, f.alpha.ID, room.ID)
	alphaSummaries, err = f.svc.ListRoomSummaries(ctx, f.alpha.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, alphaSummaries[0].UnreadCount)

	_, err = f.svc.MarkRoomRead(ctx, f.gamma.ID, room.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden))
}

func TestListRoomSummariesMostRecentFirst(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	withBeta := f.room(t)
	withGamma, _, err := f.svc.CreateOrGetRoom(ctx, f.gamma.ID, f.alpha.ID, nil)
	require.NoError(t, err)

	f.send(t, f.gamma, withGamma.ID, "older")
	time.Sleep(2 * time.Millisecond)
	f.send(t, f.beta, withBeta.ID, "newer")

	summaries, err := f.svc.ListRoomSummaries(ctx, f.alpha.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, withBeta.ID, summaries[0].Room.ID)
	assert.Equal(t, withGamma.ID, summaries[1].Room.ID)
}
