package service

import (
	"context"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/apperr"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/event"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/fanout"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"

	"go.uber.org/zap"
)

// Publisher is the push side of the fan-out gateway.
type Publisher interface {
	Publish(ctx context.Context, room string, ev event.WsEvent) error
}

// MessagingService is what the HTTP and socket layers call. Every send is
// authorized, persisted, and only then published; a failed publish is logged
// and the send still succeeds.
type MessagingService interface {
	SendEventMessage(ctx context.Context, sender model.Identity, eventID, content string) (*model.EventMessage, error)
	SendDirectMessage(ctx context.Context, sender model.Identity, receiverID, content string) (*model.DirectMessage, error)
	EventHistory(ctx context.Context, userID, eventID string, page model.Page) ([]model.EventMessage, error)
	DirectHistory(ctx context.Context, userID, otherID string, page model.Page) ([]model.DirectMessage, error)
	Conversations(ctx context.Context, userID string) ([]model.ConversationSummary, error)
	AuthorizeRoom(ctx context.Context, userID, roomKey string) (fanout.Room, error)
	SendToRoom(ctx context.Context, sender model.Identity, roomKey, content string) error
}

type messagingService struct {
	connections   ConnectionService
	store         MessageStore
	conversations ConversationService
	events        EventDirectory
	publisher     Publisher
	logger        *zap.Logger
}

func NewMessagingService(
	connections ConnectionService,
	store MessageStore,
	conversations ConversationService,
	events EventDirectory,
	publisher Publisher,
	logger *zap.Logger,
) MessagingService {
	return &messagingService{
		connections:   connections,
		store:         store,
		conversations: conversations,
		events:        events,
		publisher:     publisher,
		logger:        logger,
	}
}

func (s *messagingService) SendEventMessage(ctx context.Context, sender model.Identity, eventID, content string) (*model.EventMessage, error) {
	if err := s.requireAttendee(ctx, eventID, sender.ID); err != nil {
		return nil, err
	}

	msg, err := s.store.AppendEventMessage(ctx, eventID, sender, content)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, fanout.EventRoom(eventID), event.EventEventMessage, msg.ID, msg)
	return msg, nil
}

func (s *messagingService) SendDirectMessage(ctx context.Context, sender model.Identity, receiverID, content string) (*model.DirectMessage, error) {
	if err := s.requireConnected(ctx, sender.ID, receiverID); err != nil {
		return nil, err
	}

	msg, err := s.store.AppendDirectMessage(ctx, sender.ID, receiverID, content)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, fanout.DirectRoom(sender.ID, receiverID), event.EventDirectMessage, msg.ID, msg)
	return msg, nil
}

func (s *messagingService) EventHistory(ctx context.Context, userID, eventID string, page model.Page) ([]model.EventMessage, error) {
	if err := s.requireAttendee(ctx, eventID, userID); err != nil {
		return nil, err
	}
	return s.store.ListEventMessages(ctx, eventID, page)
}

// DirectHistory marks the caller's incoming messages from otherID read, then
// returns the pair's history. Pairs that are no longer connected keep read
// access to what they already exchanged.
func (s *messagingService) DirectHistory(ctx context.Context, userID, otherID string, page model.Page) ([]model.DirectMessage, error) {
	if err := validatePair(userID, otherID); err != nil {
		return nil, err
	}

	status, err := s.connections.ConnectionStatus(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}

	if status == model.StatusConnected {
		if err := s.markRead(ctx, userID, otherID); err != nil {
			return nil, err
		}
		return s.store.ListDirectMessages(ctx, userID, otherID, page)
	}

	msgs, err := s.store.ListDirectMessages(ctx, userID, otherID, model.Page{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, apperr.ErrNotConnected
	}
	if err := s.markRead(ctx, userID, otherID); err != nil {
		return nil, err
	}
	return s.store.ListDirectMessages(ctx, userID, otherID, page)
}

func (s *messagingService) Conversations(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	return s.conversations.ListConversations(ctx, userID)
}

// AuthorizeRoom checks that userID may listen on roomKey: attendees for an
// event room, the two participants for a direct room.
func (s *messagingService) AuthorizeRoom(ctx context.Context, userID, roomKey string) (fanout.Room, error) {
	room, err := fanout.ParseRoom(roomKey)
	if err != nil {
		return fanout.Room{}, err
	}

	switch room.Kind {
	case fanout.RoomEvent:
		if err := s.requireAttendee(ctx, room.EventID, userID); err != nil {
			return fanout.Room{}, err
		}
	case fanout.RoomDirect:
		if !room.Has(userID) {
			return fanout.Room{}, apperr.ErrNotInRoom
		}
	}
	return room, nil
}

// SendToRoom is the socket send path. It resolves the room and takes the same
// route as the HTTP sends.
func (s *messagingService) SendToRoom(ctx context.Context, sender model.Identity, roomKey, content string) error {
	room, err := fanout.ParseRoom(roomKey)
	if err != nil {
		return err
	}

	switch room.Kind {
	case fanout.RoomEvent:
		_, err = s.SendEventMessage(ctx, sender, room.EventID, content)
	case fanout.RoomDirect:
		if !room.Has(sender.ID) {
			return apperr.ErrNotInRoom
		}
		_, err = s.SendDirectMessage(ctx, sender, room.Other(sender.ID), content)
	}
	return err
}

func (s *messagingService) requireAttendee(ctx context.Context, eventID, userID string) error {
	if eventID == "" || userID == "" {
		return apperr.ErrMissingID
	}
	ok, err := s.events.IsEventAttendee(ctx, eventID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrNotAttendee
	}
	return nil
}

func (s *messagingService) requireConnected(ctx context.Context, userID, otherID string) error {
	if err := validatePair(userID, otherID); err != nil {
		return err
	}
	status, err := s.connections.ConnectionStatus(ctx, userID, otherID)
	if err != nil {
		return err
	}
	if status != model.StatusConnected {
		return apperr.ErrNotConnected
	}
	return nil
}

func (s *messagingService) markRead(ctx context.Context, receiverID, senderID string) error {
	n, err := s.store.MarkRead(ctx, receiverID, senderID)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Debug("direct messages marked read",
			zap.String("receiver_id", receiverID),
			zap.String("sender_id", senderID),
			zap.Int64("count", n),
		)
	}
	return nil
}

func (s *messagingService) publish(ctx context.Context, room, name, messageID string, payload any) {
	ev, err := event.New(name, room, messageID, payload)
	if err == nil {
		err = s.publisher.Publish(ctx, room, ev)
	}
	if err != nil {
		s.logger.Warn("fan-out publish failed; message is persisted",
			zap.String("room", room),
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}
}
