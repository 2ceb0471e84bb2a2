package chat

import "context"

// HistoryLoader fetches backward pages of a room.
type HistoryLoader interface {
	LoadHistory(ctx context.Context, viewerID, roomID string, pageSize, offset int) (*History, error)
	MarkRoomReadAsync(ctx context.Context, viewerID, roomID string) <-chan struct{}
}

// Snapshot is the state of an open room after a history load.
type Snapshot struct {
	Room     *RoomDetail   `json:"room"`
	Messages []MessageView `json:"messages"`
	HasMore  bool          `json:"has_more"`
}

// RoomView is one viewer's open conversation: history and live events merged into a
// Timeline. Only one room is open at a time and the view is owned by one goroutine.
type RoomView struct {
	viewerID string
	pageSize int
	history  HistoryLoader
	feed     *LiveFeed

	room     *RoomDetail
	timeline *Timeline
	sub      *FeedSubscription
}

// NewRoomView creates a view for viewerID. pageSize outside 1..MaxPageSize falls back
// to DefaultPageSize.
func NewRoomView(viewerID string, pageSize int, history HistoryLoader, feed *LiveFeed) *RoomView {
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}
	return &RoomView{
		viewerID: viewerID,
		pageSize: pageSize,
		history:  history,
		feed:     feed,
	}
}

// Open switches the view to roomID. The live subscription starts before the first
// history page is fetched, so a message sent in between shows up at least once and the
// timeline drops the duplicate. Unread messages addressed to the viewer are marked read
// in the background and the snapshot already reports them as read.
func (v *RoomView) Open(ctx context.Context, roomID string) (*Snapshot, error) {
	v.Close()

	sub, err := v.feed.Subscribe(ctx, roomID)
	if err != nil {
		return nil, err
	}
	hist, err := v.history.LoadHistory(ctx, v.viewerID, roomID, v.pageSize, 0)
	if err != nil {
		_ = sub.Close()
		return nil, err
	}

	v.sub = sub
	v.room = hist.Room
	v.timeline = NewTimeline(roomID)
	v.timeline.AddHistoryPage(hist.Messages, v.pageSize)
	v.history.MarkRoomReadAsync(ctx, v.viewerID, roomID)
	v.timeline.MarkReadFor(v.viewerID)

	return v.snapshot(), nil
}

// LoadMore fetches the next older page of the open room.
func (v *RoomView) LoadMore(ctx context.Context) (*Snapshot, error) {
	if v.timeline == nil {
		return nil, ErrNoRoomOpen
	}
	if v.timeline.HistoryExhausted() {
		return v.snapshot(), nil
	}
	hist, err := v.history.LoadHistory(ctx, v.viewerID, v.timeline.RoomID(), v.pageSize, v.timeline.NextOffset())
	if err != nil {
		return nil, err
	}
	// Older pages only hold rows covered by the mark fired on open.
	v.timeline.AddHistoryPage(hist.Messages, v.pageSize)
	v.timeline.MarkReadFor(v.viewerID)
	return v.snapshot(), nil
}

// Live returns the resolved events of the open room, or nil when no room is open.
func (v *RoomView) Live() <-chan MessageView {
	if v.sub == nil {
		return nil
	}
	return v.sub.C()
}

// Apply merges a live event and reports whether it was new to the timeline. A new
// message addressed to the viewer is marked read, since the room is open, and the
// returned view carries the read status.
func (v *RoomView) Apply(ctx context.Context, view MessageView) (MessageView, bool) {
	if v.timeline == nil {
		return view, false
	}
	if !v.timeline.Add(view) {
		return view, false
	}
	if view.ReceiverCompanyID == v.viewerID && view.ReadStatus == ReadStatusUnread {
		v.history.MarkRoomReadAsync(ctx, v.viewerID, view.RoomID)
		v.timeline.MarkReadFor(v.viewerID)
		view.ReadStatus = ReadStatusRead
	}
	return view, true
}

// RoomID returns the open room, or "" when none is open.
func (v *RoomView) RoomID() string {
	if v.timeline == nil {
		return ""
	}
	return v.timeline.RoomID()
}

// Close releases the live subscription of the open room.
func (v *RoomView) Close() {
	if v.sub != nil {
		_ = v.sub.Close()
	}
	v.sub = nil
	v.room = nil
	v.timeline = nil
}

func (v *RoomView) snapshot() *Snapshot {
	return &Snapshot{
		Room:     v.room,
		Messages: v.timeline.Messages(),
		HasMore:  !v.timeline.HistoryExhausted(),
	}
}
