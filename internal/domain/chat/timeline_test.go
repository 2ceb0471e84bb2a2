package chat

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func view(room string, n int, at time.Time) MessageView {
	return MessageView{Message: Message{
		ID:         fmt.Sprintf("msg_%04d", n),
		RoomID:     room,
		Content:    fmt.Sprintf("message %d", n),
		ReadStatus: ReadStatusUnread,
		CreatedAt:  at,
	}}
}

func ids(views []MessageView) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.ID
	}
	return out
}

func assertOrdered(t *testing.T, views []MessageView) {
	t.Helper()
	seen := map[string]bool{}
	for i, v := range views {
		require.False(t, seen[v.ID], "duplicate id %s", v.ID)
		seen[v.ID] = true
		if i > 0 {
			require.False(t, v.CreatedAt.Before(views[i-1].CreatedAt), "order broken at %d", i)
		}
	}
}

func TestTimelineMergesHistoryAndLive(t *testing.T) {
	tl := NewTimeline("room_a")

	// newest first, as the backend returns it
	page := []MessageView{
		view("room_a", 3, base.Add(3*time.Minute)),
		view("room_a", 2, base.Add(2*time.Minute)),
	}
	assert.Equal(t, 2, tl.AddHistoryPage(page, 2))
	assert.False(t, tl.HistoryExhausted())
	assert.Equal(t, 2, tl.NextOffset())

	assert.True(t, tl.Add(view("room_a", 4, base.Add(4*time.Minute))))

	older := []MessageView{view("room_a", 1, base.Add(time.Minute))}
	assert.Equal(t, 1, tl.AddHistoryPage(older, 2))
	assert.True(t, tl.HistoryExhausted())

	assert.Equal(t, []string{"msg_0001", "msg_0002", "msg_0003", "msg_0004"}, ids(tl.Messages()))
}

func TestTimelineDeduplicatesLiveEchoOfHistory(t *testing.T) {
	tl := NewTimeline("room_a")
	live := view("room_a", 5, base.Add(5*time.Minute))
	require.True(t, tl.Add(live))

	// a "load more" issued near the live insert returns the same row again
	page := []MessageView{live, view("room_a", 4, base.Add(4*time.Minute))}
	assert.Equal(t, 1, tl.AddHistoryPage(page, 2))
	assert.False(t, tl.Add(live))
	assert.Equal(t, 2, tl.Len())
}

func TestTimelineIgnoresOtherRooms(t *testing.T) {
	tl := NewTimeline("room_a")
	assert.False(t, tl.Add(view("room_b", 1, base)))
	assert.Equal(t, 0, tl.AddHistoryPage([]MessageView{view("room_b", 2, base)}, 10))
	assert.Equal(t, 0, tl.Len())
}

func TestTimelineBreaksTimestampTiesByID(t *testing.T) {
	tl := NewTimeline("room_a")
	tl.Add(view("room_a", 9, base))
	tl.Add(view("room_a", 7, base))
	tl.Add(view("room_a", 8, base))
	assert.Equal(t, []string{"msg_0007", "msg_0008", "msg_0009"}, ids(tl.Messages()))
}

func TestTimelineDuplicateAdvancesReadStatus(t *testing.T) {
	tl := NewTimeline("room_a")
	msg := view("room_a", 1, base)
	tl.Add(msg)

	msg.ReadStatus = ReadStatusRead
	msg.Content = "tampered"
	assert.False(t, tl.Add(msg))

	got := tl.Messages()[0]
	assert.Equal(t, ReadStatusRead, got.ReadStatus)
	assert.Equal(t, "message 1", got.Content)
}

func TestTimelineMarkReadForReceiverOnly(t *testing.T) {
	tl := NewTimeline("room_1")
	toViewer := view("room_1", 1, base)
	toViewer.ReceiverCompanyID = "cmp_viewer"
	toOther := view("room_1", 2, base.Add(time.Second))
	toOther.ReceiverCompanyID = "cmp_other"
	archived := view("room_1", 3, base.Add(2*time.Second))
	archived.ReceiverCompanyID = "cmp_viewer"
	archived.ReadStatus = ReadStatusArchived
	tl.AddHistoryPage([]MessageView{archived, toOther, toViewer}, 10)

	assert.Equal(t, 1, tl.MarkReadFor("cmp_viewer"))
	assert.Equal(t, 0, tl.MarkReadFor("cmp_viewer"))

	msgs := tl.Messages()
	assert.Equal(t, ReadStatusRead, msgs[0].ReadStatus)
	assert.Equal(t, ReadStatusUnread, msgs[1].ReadStatus)
	assert.Equal(t, ReadStatusArchived, msgs[2].ReadStatus)
}

func TestTimelineOrderUnderRandomInterleaving(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		const total = 60
		all := make([]MessageView, total)
		for i := range all {
			all[i] = view("room_a", i, base.Add(time.Duration(rng.Intn(20))*time.Second))
		}

		tl := NewTimeline("room_a")
		for i := 0; i < 200; i++ {
			if rng.Intn(3) == 0 {
				start := rng.Intn(total)
				end := start + rng.Intn(total-start) + 1
				page := make([]MessageView, 0, end-start)
				for j := end - 1; j >= start; j-- {
					page = append(page, all[j])
				}
				tl.AddHistoryPage(page, len(page))
				continue
			}
			tl.Add(all[rng.Intn(total)])
		}

		assertOrdered(t, tl.Messages())
	}
}
