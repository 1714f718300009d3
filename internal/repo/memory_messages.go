package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/apperr"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"
)

type memoryMessageRepository struct {
	mu      sync.RWMutex
	events  map[string][]model.EventMessage
	directs map[string][]model.DirectMessage
}

// NewMemoryMessageRepository keeps messages per event and per pair, each
// slice sorted by timestamp. Concurrent appends may arrive out of timestamp
// order, so inserts go to their sorted position.
func NewMemoryMessageRepository() MessageRepository {
	return &memoryMessageRepository{
		events:  make(map[string][]model.EventMessage),
		directs: make(map[string][]model.DirectMessage),
	}
}

func (r *memoryMessageRepository) EnsureIndexes(ctx context.Context) error { return nil }

func (r *memoryMessageRepository) InsertEventMessage(ctx context.Context, msg *model.EventMessage) error {
	if msg == nil {
		return ErrInvalidMessage
	}
	if msg.EventID == "" {
		return ErrInvalidEventID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[msg.EventID] = insertByTimestamp(r.events[msg.EventID], *msg, eventTimestamp)
	return nil
}

func (r *memoryMessageRepository) InsertDirectMessage(ctx context.Context, msg *model.DirectMessage) error {
	if msg == nil {
		return ErrInvalidMessage
	}
	key := model.PairKey(msg.SenderID, msg.ReceiverID)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.directs[key] = insertByTimestamp(r.directs[key], *msg, directTimestamp)
	return nil
}

func (r *memoryMessageRepository) ListEventMessages(ctx context.Context, eventID string, page model.Page) ([]model.EventMessage, error) {
	if eventID == "" {
		return nil, ErrInvalidEventID
	}
	r.mu.RLock()
	msgs := append([]model.EventMessage{}, r.events[eventID]...)
	r.mu.RUnlock()

	return model.Apply(msgs, eventTimestamp, page), nil
}

func (r *memoryMessageRepository) ListDirectMessages(ctx context.Context, a, b string, page model.Page) ([]model.DirectMessage, error) {
	r.mu.RLock()
	var msgs []model.DirectMessage
	for _, m := range r.directs[model.PairKey(a, b)] {
		if isBetween(m, a, b) {
			msgs = append(msgs, m)
		}
	}
	r.mu.RUnlock()

	return model.Apply(msgs, directTimestamp, page), nil
}

func (r *memoryMessageRepository) MarkRead(ctx context.Context, receiverID, senderID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := r.directs[model.PairKey(receiverID, senderID)]
	var n int64
	for i := range msgs {
		if msgs[i].ReceiverID == receiverID && msgs[i].SenderID == senderID && !msgs[i].Read {
			msgs[i].Read = true
			n++
		}
	}
	return n, nil
}

func (r *memoryMessageRepository) SummarizeConversations(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	if userID == "" {
		return nil, apperr.ErrMissingID
	}
	r.mu.RLock()
	var all []model.DirectMessage
	for _, msgs := range r.directs {
		all = append(all, msgs...)
	}
	r.mu.RUnlock()

	return model.SummarizeConversations(userID, all), nil
}

// isBetween reports whether m was exchanged between a and b, in either
// direction.
func isBetween(m model.DirectMessage, a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

func eventTimestamp(m model.EventMessage) int64   { return m.Timestamp }
func directTimestamp(m model.DirectMessage) int64 { return m.Timestamp }

// insertByTimestamp places item after every element with a timestamp not
// greater than its own.
func insertByTimestamp[T any](items []T, item T, ts func(T) int64) []T {
	at := sort.Search(len(items), func(i int) bool { return ts(items[i]) > ts(item) })
	items = append(items, item)
	copy(items[at+1:], items[at:])
	items[at] = item
	return items
}
