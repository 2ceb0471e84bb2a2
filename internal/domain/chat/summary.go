package chat

import "sort"

// Summarize groups messages by room and computes each room's last message and the
// number of unread messages addressed to viewerID. It is the in-memory form of the
// room list projection; rows are ordered by last activity, most recent first.
func Summarize(rooms []*ChatRoom, messages []*Message, viewerID string) []SummaryRow {
	byRoom := make(map[string]*SummaryRow, len(rooms))
	rows := make([]SummaryRow, 0, len(rooms))
	for _, room := range rooms {
		rows = append(rows, SummaryRow{Room: room})
	}
	for i := range rows {
		byRoom[rows[i].Room.ID] = &rows[i]
	}

	for _, msg := range messages {
		row, ok := byRoom[msg.RoomID]
		if !ok {
			continue
		}
		if row.LastMessage == nil || row.LastMessage.Before(msg) {
			row.LastMessage = msg
		}
		if msg.ReceiverCompanyID == viewerID && msg.ReadStatus == ReadStatusUnread {
			row.UnreadCount++
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		ai, aj := rows[i].LastActivity(), rows[j].LastActivity()
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return rows[i].Room.ID > rows[j].Room.ID
	})
	return rows
}
