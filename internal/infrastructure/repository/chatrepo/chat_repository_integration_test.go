//go:build integration

package chatrepo_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tender-server/internal/domain/chat"
	"tender-server/internal/infrastructure/database/databasetest"
	"tender-server/internal/infrastructure/repository/chatrepo"
	"tender-server/internal/utils/idgen"
)

func TestCreateOrGetRoomUsesPairKey(t *testing.T) {
	db := databasetest.Open(t)
	repo := chatrepo.NewChatGormRepository(db)
	ctx := context.Background()
	companies := databasetest.SeedCompanies(t, db, 2)
	a, b := companies[0].ID, companies[1].ID

	now := time.Now().UTC()
	first, created, err := repo.CreateOrGetRoom(ctx, &chat.ChatRoom{
		ID: idgen.New(idgen.PrefixRoom), PairKey: chat.PairKey(a, b),
		InitiatorCompanyID: a, RecipientCompanyID: b, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := repo.CreateOrGetRoom(ctx, &chat.ChatRoom{
		ID: idgen.New(idgen.PrefixRoom), PairKey: chat.PairKey(b, a),
		InitiatorCompanyID: b, RecipientCompanyID: a, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, a, second.InitiatorCompanyID)
}

func TestListRoomSummariesMatchesInMemoryProjection(t *testing.T) {
	db := databasetest.Open(t)
	repo := chatrepo.NewChatGormRepository(db)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(11))

	companies := databasetest.SeedCompanies(t, db, 7)
	viewer, partners := companies[0], companies[1:]
	base := time.Now().UTC().Truncate(time.Second).Add(-time.Hour)

	rooms := make([]*chat.ChatRoom, 0, len(partners))
	for i, partner := range partners {
		initiator, recipient := viewer.ID, partner.ID
		if i%2 == 1 {
			initiator, recipient = recipient, initiator
		}
		room, _, err := repo.CreateOrGetRoom(ctx, &chat.ChatRoom{
			ID:                 idgen.New(idgen.PrefixRoom),
			PairKey:            chat.PairKey(initiator, recipient),
			InitiatorCompanyID: initiator,
			RecipientCompanyID: recipient,
			CreatedAt:          base,
			UpdatedAt:          base,
		})
		require.NoError(t, err)
		rooms = append(rooms, room)
	}

	// The last room stays empty and is ordered by its own update time.
	for step := 0; step < 60; step++ {
		i := rng.Intn(len(rooms) - 1)
		sender, receiver := partners[i].ID, viewer.ID
		if rng.Intn(3) == 0 {
			sender, receiver = receiver, sender
		}
		// Whole-second steps with repeats exercise the id tie-break.
		createdAt := base.Add(time.Duration(rng.Intn(40)) * time.Second)
		require.NoError(t, repo.InsertMessage(ctx, &chat.Message{
			ID:                idgen.NewAt(idgen.PrefixMessage, createdAt),
			RoomID:            rooms[i].ID,
			SenderCompanyID:   sender,
			ReceiverCompanyID: receiver,
			Content:           "quote",
			CreatedAt:         createdAt,
		}))
		if rng.Intn(10) == 0 {
			_, err := repo.MarkRead(ctx, rooms[i].ID, viewer.ID)
			require.NoError(t, err)
		}
	}

	for _, c := range companies {
		listed, err := repo.ListRoomsByCompany(ctx, c.ID)
		require.NoError(t, err)
		var messages []*chat.Message
		for _, room := range listed {
			page, err := repo.ListMessages(ctx, room.ID, 1000, 0)
			require.NoError(t, err)
			messages = append(messages, page...)
		}
		want := chat.Summarize(listed, messages, c.ID)

		got, err := repo.ListRoomSummaries(ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, got, len(want), c.ID)
		for i := range want {
			assert.Equal(t, want[i].Room.ID, got[i].Room.ID, "room order for %s", c.ID)
			assert.Equal(t, want[i].UnreadCount, got[i].UnreadCount, "unread in %s", want[i].Room.ID)
			if want[i].LastMessage == nil {
				assert.Nil(t, got[i].LastMessage)
				continue
			}
			require.NotNil(t, got[i].LastMessage)
			assert.Equal(t, want[i].LastMessage.ID, got[i].LastMessage.ID)
		}
	}
}

func TestMarkReadOnlyTouchesReceiver(t *testing.T) {
	db := databasetest.Open(t)
	repo := chatrepo.NewChatGormRepository(db)
	ctx := context.Background()
	companies := databasetest.SeedCompanies(t, db, 2)
	a, b := companies[0].ID, companies[1].ID

	now := time.Now().UTC()
	room, _, err := repo.CreateOrGetRoom(ctx, &chat.ChatRoom{
		ID: idgen.New(idgen.PrefixRoom), PairKey: chat.PairKey(a, b),
		InitiatorCompanyID: a, RecipientCompanyID: b, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	for i, sender := range []string{a, a, b} {
		receiver := b
		if sender == b {
			receiver = a
		}
		at := now.Add(time.Duration(i) * time.Millisecond)
		require.NoError(t, repo.InsertMessage(ctx, &chat.Message{
			ID: idgen.NewAt(idgen.PrefixMessage, at), RoomID: room.ID,
			SenderCompanyID: sender, ReceiverCompanyID: receiver, Content: "hi", CreatedAt: at,
		}))
	}

	updated, err := repo.MarkRead(ctx, room.ID, b)
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated)

	updated, err = repo.MarkRead(ctx, room.ID, b)
	require.NoError(t, err)
	assert.EqualValues(t, 0, updated)

	summaries, err := repo.ListRoomSummaries(ctx, a)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].UnreadCount)
}
