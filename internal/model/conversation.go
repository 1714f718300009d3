package model

import (
	"sort"
)

// ConversationSummary is derived from DirectMessage records at read time and
// never stored.
type ConversationSummary struct {
	CounterpartID     string `json:"counterpartId" bson:"_id"`
	CounterpartName   string `json:"counterpartName,omitempty" bson:"-"`
	CounterpartAvatar string `json:"counterpartAvatar,omitempty" bson:"-"`
	LastMessageID     string `json:"lastMessageId" bson:"last_message_id"`
	LastMessage       string `json:"lastMessage" bson:"last_message"`
	LastMessageAt     int64  `json:"lastMessageAt" bson:"last_message_at"`
	UnreadCount       int    `json:"unreadCount" bson:"unread_count"`
}

// SummarizeConversations folds the direct messages involving userID into one
// summary per counterpart, newest conversation first.
func SummarizeConversations(userID string, msgs []DirectMessage) []ConversationSummary {
	byCounterpart := make(map[string]*ConversationSummary)

	for _, m := range msgs {
		var counterpart string
		switch userID {
		case m.SenderID:
			counterpart = m.ReceiverID
		case m.ReceiverID:
			counterpart = m.SenderID
		default:
			continue
		}

		s, ok := byCounterpart[counterpart]
		if !ok {
			s = &ConversationSummary{CounterpartID: counterpart}
			byCounterpart[counterpart] = s
		}

		if s.LastMessageID == "" || m.Timestamp > s.LastMessageAt ||
			(m.Timestamp == s.LastMessageAt && m.ID > s.LastMessageID) {
			s.LastMessageID = m.ID
			s.LastMessage = m.Content
			s.LastMessageAt = m.Timestamp
		}

		if m.ReceiverID == userID && !m.Read {
			s.UnreadCount++
		}
	}

	out := make([]ConversationSummary, 0, len(byCounterpart))
	for _, s := range byCounterpart {
		out = append(out, *s)
	}
	SortConversations(out)
	return out
}

// SortConversations orders by last message time descending, then counterpart id.
func SortConversations(cs []ConversationSummary) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].LastMessageAt != cs[j].LastMessageAt {
			return cs[i].LastMessageAt > cs[j].LastMessageAt
		}
		return cs[i].CounterpartID < cs[j].CounterpartID
	})
}
