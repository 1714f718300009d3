package fanout

import (
	"strings"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/apperr"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"
)

const (
	eventPrefix  = "event:"
	directPrefix = "direct:"
)

type RoomKind int

const (
	RoomEvent RoomKind = iota + 1
	RoomDirect
)

// Room is a parsed room key.
type Room struct {
	Kind    RoomKind
	EventID string
	// Members holds the two participants of a direct room in sorted order.
	Members [2]string
}

func EventRoom(eventID string) string {
	return eventPrefix + eventID
}

// DirectRoom names the room of a pair. Argument order does not matter.
func DirectRoom(a, b string) string {
	return directPrefix + model.PairKey(a, b)
}

// ParseRoom validates key and splits it into its parts.
func ParseRoom(key string) (Room, error) {
	switch {
	case strings.HasPrefix(key, eventPrefix):
		id := strings.TrimPrefix(key, eventPrefix)
		if id == "" {
			return Room{}, apperr.ErrInvalidRoom
		}
		return Room{Kind: RoomEvent, EventID: id}, nil

	case strings.HasPrefix(key, directPrefix):
		parts := strings.Split(strings.TrimPrefix(key, directPrefix), ":")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" || parts[0] == parts[1] {
			return Room{}, apperr.ErrInvalidRoom
		}
		lo, hi := model.SortedPair(parts[0], parts[1])
		if lo != parts[0] {
			return Room{}, apperr.ErrInvalidRoom
		}
		return Room{Kind: RoomDirect, Members: [2]string{lo, hi}}, nil
	}
	return Room{}, apperr.ErrInvalidRoom
}

// Has reports whether userID is a participant of a direct room.
func (r Room) Has(userID string) bool {
	return r.Kind == RoomDirect && (r.Members[0] == userID || r.Members[1] == userID)
}

// Other returns the participant of a direct room that is not userID.
func (r Room) Other(userID string) string {
	if r.Members[0] == userID {
		return r.Members[1]
	}
	return r.Members[0]
}

// Key renders the canonical room key.
func (r Room) Key() string {
	if r.Kind == RoomEvent {
		return EventRoom(r.EventID)
	}
	return DirectRoom(r.Members[0], r.Members[1])
}
