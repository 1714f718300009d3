package model

// EventMessage is a broadcast message scoped to an event. Immutable.
type EventMessage struct {
	ID         string `json:"id" bson:"_id"`
	EventID    string `json:"eventId" bson:"event_id"`
	SenderID   string `json:"senderId" bson:"sender_id"`
	SenderName string `json:"senderName" bson:"sender_name"`
	Avatar     string `json:"avatar,omitempty" bson:"avatar,omitempty"`
	Content    string `json:"content" bson:"content"`
	Timestamp  int64  `json:"timestamp" bson:"timestamp"`
}

// DirectMessage is a one-to-one message. Only Read ever changes, false to true.
type DirectMessage struct {
	ID         string `json:"id" bson:"_id"`
	SenderID   string `json:"senderId" bson:"sender_id"`
	ReceiverID string `json:"receiverId" bson:"receiver_id"`
	PairKey    string `json:"-" bson:"pair_key"`
	Content    string `json:"content" bson:"content"`
	Timestamp  int64  `json:"timestamp" bson:"timestamp"`
	Read       bool   `json:"read" bson:"read"`
}

// Page is the pagination hook on history reads. The zero value returns the
// whole history; Before restricts to messages strictly older than the given
// timestamp and Limit keeps the newest Limit of those, still in ascending order.
type Page struct {
	Before int64 `json:"before" form:"before"`
	Limit  int   `json:"limit" form:"limit"`
}

func (p Page) IsZero() bool {
	return p.Before == 0 && p.Limit == 0
}

// Apply pages an ascending slice in memory.
func Apply[T any](items []T, ts func(T) int64, p Page) []T {
	if p.Before > 0 {
		cut := len(items)
		for i, it := range items {
			if ts(it) >= p.Before {
				cut = i
				break
			}
		}
		items = items[:cut]
	}
	if p.Limit > 0 && len(items) > p.Limit {
		items = items[len(items)-p.Limit:]
	}
	return items
}

// ErrorPayload represents an error response sent to client via WebSocket
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
