package model

// ConnectionStatus is the state of a user pair as seen from one side.
type ConnectionStatus string

const (
	StatusNone            ConnectionStatus = "none"
	StatusPendingOutgoing ConnectionStatus = "pendingOutgoing"
	StatusPendingIncoming ConnectionStatus = "pendingIncoming"
	StatusConnected       ConnectionStatus = "connected"
)

// StatusBetween derives the status of (user, other) from both records,
// checking the edge first, then the request held by other (outgoing), then
// the request held by user (incoming). Either record may be nil.
func StatusBetween(user, other *User) ConnectionStatus {
	if user != nil && other != nil && user.HasConnection(other.ID) {
		return StatusConnected
	}
	if user != nil && other != nil && other.HasRequestFrom(user.ID) {
		return StatusPendingOutgoing
	}
	if user != nil && other != nil && user.HasRequestFrom(other.ID) {
		return StatusPendingIncoming
	}
	return StatusNone
}

// PairKey returns the canonical key of an unordered pair: both participants
// compute the same value regardless of argument order.
func PairKey(a, b string) string {
	lo, hi := SortedPair(a, b)
	return lo + IDSeparator + hi
}

func SortedPair(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}
