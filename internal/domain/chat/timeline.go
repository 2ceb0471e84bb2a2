package chat

import "sort"

// Timeline is the merged view of one room: history pages growing backwards and live
// events growing forwards, ordered by (created_at, id) with at most one entry per id.
// A Timeline is owned by a single goroutine.
type Timeline struct {
	roomID       string
	messages     []MessageView
	index        map[string]int
	historyRows  int
	historyEnded bool
}

// NewTimeline creates an empty timeline bound to roomID.
func NewTimeline(roomID string) *Timeline {
	return &Timeline{
		roomID: roomID,
		index:  make(map[string]int),
	}
}

// RoomID returns the room the timeline is bound to.
func (t *Timeline) RoomID() string {
	return t.roomID
}

// Len returns the number of distinct messages held.
func (t *Timeline) Len() int {
	return len(t.messages)
}

// AddHistoryPage merges one backend page (newest first) of size at most pageSize and
// returns how many messages were new. A short page marks the history as exhausted.
func (t *Timeline) AddHistoryPage(page []MessageView, pageSize int) int {
	added := 0
	for _, view := range page {
		if t.add(view) {
			added++
		}
	}
	t.historyRows += len(page)
	if len(page) < pageSize {
		t.historyEnded = true
	}
	return added
}

// Add merges one live event and reports whether it was new.
func (t *Timeline) Add(view MessageView) bool {
	return t.add(view)
}

// NextOffset is the offset of the next older history page. Messages inserted since
// the first page shift the window, which only re-delivers rows already held.
func (t *Timeline) NextOffset() int {
	return t.historyRows
}

// HistoryExhausted reports whether the oldest message has been loaded.
func (t *Timeline) HistoryExhausted() bool {
	return t.historyEnded
}

// MarkReadFor advances every unread message addressed to receiverID to read and
// returns how many changed.
func (t *Timeline) MarkReadFor(receiverID string) int {
	changed := 0
	for i := range t.messages {
		if t.messages[i].ReceiverCompanyID == receiverID && t.messages[i].ReadStatus == ReadStatusUnread {
			t.messages[i].ReadStatus = ReadStatusRead
			changed++
		}
	}
	return changed
}

// Messages returns a copy of the merged view in ascending order.
func (t *Timeline) Messages() []MessageView {
	out := make([]MessageView, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Timeline) add(view MessageView) bool {
	if view.RoomID != t.roomID || view.ID == "" {
		return false
	}
	if pos, ok := t.index[view.ID]; ok {
		// Duplicates only ever advance the read status.
		if t.messages[pos].ReadStatus == ReadStatusUnread && view.ReadStatus != ReadStatusUnread && view.ReadStatus != "" {
			t.messages[pos].ReadStatus = view.ReadStatus
		}
		return false
	}

	pos := sort.Search(len(t.messages), func(i int) bool {
		return view.Message.Before(&t.messages[i].Message)
	})
	t.messages = append(t.messages, MessageView{})
	copy(t.messages[pos+1:], t.messages[pos:])
	t.messages[pos] = view

	for i := pos; i < len(t.messages); i++ {
		t.index[t.messages[i].ID] = i
	}
	return true
}
