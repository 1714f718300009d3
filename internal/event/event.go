package event

import "encoding/json"

// Client to server
const (
	EventSendMessage = "send_message"
)

// Server to client
const (
	EventEventMessage  = "event_message"
	EventDirectMessage = "direct_message"
	EventError         = "error"
)

// WsEvent is the frame exchanged over the socket and the envelope published
// through the fan-out transport. Room is a room key such as "event:<id>" or
// "direct:<a>:<b>".
type WsEvent struct {
	Event     string          `json:"event"`
	Room      string          `json:"room"`
	Message   json.RawMessage `json:"message"`
	MessageId string          `json:"messageId,omitempty"`
}

// SendMessage is the body of a client send_message frame.
type SendMessage struct {
	Content string `json:"content"`
}

// New marshals payload into a WsEvent.
func New(name, room, messageID string, payload any) (WsEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return WsEvent{}, err
	}
	return WsEvent{Event: name, Room: room, Message: raw, MessageId: messageID}, nil
}

// Decode unmarshals the payload into v.
func (e WsEvent) Decode(v any) error {
	return json.Unmarshal(e.Message, v)
}
