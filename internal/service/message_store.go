package service

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/apperr"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/repo"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxContentLength bounds message content, in characters.
const MaxContentLength = 4096

// MessageStore validates, stamps and persists messages. A successful append
// is visible to every later read.
type MessageStore interface {
	AppendEventMessage(ctx context.Context, eventID string, sender model.Identity, content string) (*model.EventMessage, error)
	AppendDirectMessage(ctx context.Context, senderID, receiverID, content string) (*model.DirectMessage, error)
	ListEventMessages(ctx context.Context, eventID string, page model.Page) ([]model.EventMessage, error)
	ListDirectMessages(ctx context.Context, a, b string, page model.Page) ([]model.DirectMessage, error)
	MarkRead(ctx context.Context, receiverID, senderID string) (int64, error)
}

type messageStore struct {
	repo   repo.MessageRepository
	clock  *Clock
	logger *zap.Logger
}

func NewMessageStore(messages repo.MessageRepository, clock *Clock, logger *zap.Logger) MessageStore {
	if clock == nil {
		clock = NewClock(nil)
	}
	return &messageStore{repo: messages, clock: clock, logger: logger}
}

func (s *messageStore) AppendEventMessage(ctx context.Context, eventID string, sender model.Identity, content string) (*model.EventMessage, error) {
	if eventID == "" || sender.ID == "" {
		return nil, apperr.ErrMissingID
	}
	content, err := normalizeContent(content)
	if err != nil {
		return nil, err
	}

	msg := &model.EventMessage{
		ID:         uuid.NewString(),
		EventID:    eventID,
		SenderID:   sender.ID,
		SenderName: sender.DisplayName,
		Avatar:     sender.AvatarURL,
		Content:    content,
		Timestamp:  s.clock.Next(),
	}
	if err := s.repo.InsertEventMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *messageStore) AppendDirectMessage(ctx context.Context, senderID, receiverID, content string) (*model.DirectMessage, error) {
	if senderID == "" || receiverID == "" {
		return nil, apperr.ErrMissingID
	}
	if !model.ValidUserID(senderID) || !model.ValidUserID(receiverID) {
		return nil, apperr.ErrInvalidUserID
	}
	content, err := normalizeContent(content)
	if err != nil {
		return nil, err
	}

	msg := &model.DirectMessage{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		PairKey:    model.PairKey(senderID, receiverID),
		Content:    content,
		Timestamp:  s.clock.Next(),
	}
	if err := s.repo.InsertDirectMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *messageStore) ListEventMessages(ctx context.Context, eventID string, page model.Page) ([]model.EventMessage, error) {
	if eventID == "" {
		return nil, apperr.ErrMissingID
	}
	return s.repo.ListEventMessages(ctx, eventID, page)
}

func (s *messageStore) ListDirectMessages(ctx context.Context, a, b string, page model.Page) ([]model.DirectMessage, error) {
	if a == "" || b == "" {
		return nil, apperr.ErrMissingID
	}
	if !model.ValidUserID(a) || !model.ValidUserID(b) {
		return nil, apperr.ErrInvalidUserID
	}
	return s.repo.ListDirectMessages(ctx, a, b, page)
}

func (s *messageStore) MarkRead(ctx context.Context, receiverID, senderID string) (int64, error) {
	if receiverID == "" || senderID == "" {
		return 0, apperr.ErrMissingID
	}
	return s.repo.MarkRead(ctx, receiverID, senderID)
}

func normalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperr.ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return "", apperr.ErrContentTooLong
	}
	return content, nil
}

// Clock hands out strictly increasing millisecond timestamps, so within one
// process the order appends return in is the order of their timestamps.
type Clock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

func (c *Clock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := c.now().UnixMilli()
	if ts <= c.last {
		ts = c.last + 1
	}
	c.last = ts
	return ts
}
