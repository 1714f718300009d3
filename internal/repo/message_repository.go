package repo

import (
	"context"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/apperr"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/db"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	EventMessagesCollection  = "event_messages"
	DirectMessagesCollection = "direct_messages"
)

type messageRepository struct {
	events  *db.Repository[model.EventMessage]
	directs *db.Repository[model.DirectMessage]
	logger  *zap.Logger
}

// MessageRepository persists event and direct messages. Records are
// immutable except for the direct message read flag.
type MessageRepository interface {
	InsertEventMessage(ctx context.Context, msg *model.EventMessage) error
	InsertDirectMessage(ctx context.Context, msg *model.DirectMessage) error
	ListEventMessages(ctx context.Context, eventID string, page model.Page) ([]model.EventMessage, error)
	ListDirectMessages(ctx context.Context, a, b string, page model.Page) ([]model.DirectMessage, error)
	// MarkRead flips every unread message sent by senderID to receiverID and
	// returns how many changed.
	MarkRead(ctx context.Context, receiverID, senderID string) (int64, error)
	SummarizeConversations(ctx context.Context, userID string) ([]model.ConversationSummary, error)
	EnsureIndexes(ctx context.Context) error
}

func NewMessageRepository(con *mongo.Database, logger *zap.Logger) MessageRepository {
	return &messageRepository{
		events:  db.NewRepository[model.EventMessage](con, EventMessagesCollection),
		directs: db.NewRepository[model.DirectMessage](con, DirectMessagesCollection),
		logger:  logger,
	}
}

func (m *messageRepository) EnsureIndexes(ctx context.Context) error {
	err := m.events.EnsureIndexes(ctx,
		mongo.IndexModel{Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "timestamp", Value: 1}}},
	)
	if err != nil {
		return classify("messageRepo.EnsureIndexes", err)
	}
	err = m.directs.EnsureIndexes(ctx,
		mongo.IndexModel{Keys: bson.D{{Key: "pair_key", Value: 1}, {Key: "timestamp", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "sender_id", Value: 1}, {Key: "read", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "timestamp", Value: -1}}},
	)
	return classify("messageRepo.EnsureIndexes", err)
}

// -----------------------------------------------------------------------------
// Inserts
// -----------------------------------------------------------------------------

func (m *messageRepository) InsertEventMessage(ctx context.Context, msg *model.EventMessage) error {
	if msg == nil {
		return ErrInvalidMessage
	}
	if msg.EventID == "" {
		return ErrInvalidEventID
	}

	err := m.insert(ctx, "messageRepo.InsertEventMessage", func(ctx context.Context) error {
		_, err := m.events.Create(ctx, *msg)
		return err
	})
	if err != nil {
		m.logger.Error("failed to insert event message",
			zap.String("event_id", msg.EventID),
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
		return err
	}

	m.logger.Debug("event message inserted",
		zap.String("event_id", msg.EventID),
		zap.String("message_id", msg.ID),
	)
	return nil
}

func (m *messageRepository) InsertDirectMessage(ctx context.Context, msg *model.DirectMessage) error {
	if msg == nil {
		return ErrInvalidMessage
	}

	err := m.insert(ctx, "messageRepo.InsertDirectMessage", func(ctx context.Context) error {
		_, err := m.directs.Create(ctx, *msg)
		return err
	})
	if err != nil {
		m.logger.Error("failed to insert direct message",
			zap.String("pair_key", msg.PairKey),
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
		return err
	}

	m.logger.Debug("direct message inserted",
		zap.String("pair_key", msg.PairKey),
		zap.String("message_id", msg.ID),
	)
	return nil
}

// insert retries transient failures. The id is assigned before the first
// attempt, so a duplicate key on a retry means an earlier attempt landed.
func (m *messageRepository) insert(ctx context.Context, op string, create func(ctx context.Context) error) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, attempt); err != nil {
				return classify(op, err)
			}
		}

		err := create(ctx)
		if err == nil {
			return nil
		}
		if attempt > 0 && mongo.IsDuplicateKeyError(err) {
			return nil
		}

		lastErr = err
		if !isTransient(err) {
			break
		}

		m.logger.Warn("insert attempt failed, retrying",
			zap.String("op", op),
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxRetries),
		)
	}
	return classify(op, lastErr)
}

// -----------------------------------------------------------------------------
// Reads
// -----------------------------------------------------------------------------

func (m *messageRepository) ListEventMessages(ctx context.Context, eventID string, page model.Page) ([]model.EventMessage, error) {
	if eventID == "" {
		return nil, ErrInvalidEventID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("event_id", eventID)
	if page.Before > 0 {
		filter.Lt("timestamp", page.Before)
	}

	var msgs []model.EventMessage
	err := withRetry(ctx, m.logger, "messageRepo.ListEventMessages", func(ctx context.Context) error {
		var err error
		msgs, err = m.events.FindAll(ctx, filter.Build(), pageParams(page))
		return err
	})
	if err != nil {
		return nil, err
	}
	return ascending(msgs, page), nil
}

func (m *messageRepository) ListDirectMessages(ctx context.Context, a, b string, page model.Page) ([]model.DirectMessage, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	// pair_key drives the index; the participant match pins the exact pair.
	filter := db.NewFilter().
		Eq("pair_key", model.PairKey(a, b)).
		Or(
			bson.M{"sender_id": a, "receiver_id": b},
			bson.M{"sender_id": b, "receiver_id": a},
		)
	if page.Before > 0 {
		filter.Lt("timestamp", page.Before)
	}

	var msgs []model.DirectMessage
	err := withRetry(ctx, m.logger, "messageRepo.ListDirectMessages", func(ctx context.Context) error {
		var err error
		msgs, err = m.directs.FindAll(ctx, filter.Build(), pageParams(page))
		return err
	})
	if err != nil {
		return nil, err
	}
	return ascending(msgs, page), nil
}

func (m *messageRepository) MarkRead(ctx context.Context, receiverID, senderID string) (int64, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("receiver_id", receiverID).
		Eq("sender_id", senderID).
		Eq("read", false).
		Build()

	var modified int64
	err := withRetry(ctx, m.logger, "messageRepo.MarkRead", func(ctx context.Context) error {
		res, err := m.directs.UpdateMany(ctx, filter, bson.M{"read": true})
		if err != nil {
			return err
		}
		modified += res.ModifiedCount
		return nil
	})
	if err != nil {
		return modified, err
	}

	m.logger.Debug("marked direct messages read",
		zap.String("receiver_id", receiverID),
		zap.String("sender_id", senderID),
		zap.Int64("modified", modified),
	)
	return modified, nil
}

// SummarizeConversations groups the user's direct messages by counterpart on
// the server. Sorting by timestamp then _id before $group makes $first pick
// the same last message the in-memory fold picks.
func (m *messageRepository) SummarizeConversations(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	if userID == "" {
		return nil, apperr.ErrMissingID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: db.NewFilter().Or(
			bson.M{"sender_id": userID},
			bson.M{"receiver_id": userID},
		).Build()}},
		{{Key: "$sort", Value: bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$sender_id", userID}}, "$receiver_id", "$sender_id",
			}}},
			{Key: "last_message_id", Value: bson.M{"$first": "$_id"}},
			{Key: "last_message", Value: bson.M{"$first": "$content"}},
			{Key: "last_message_at", Value: bson.M{"$first": "$timestamp"}},
			{Key: "unread_count", Value: bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$receiver_id", userID}},
					bson.M{"$eq": bson.A{"$read", false}},
				}}, 1, 0,
			}}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "last_message_at", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	var out []model.ConversationSummary
	err := withRetry(ctx, m.logger, "messageRepo.SummarizeConversations", func(ctx context.Context) error {
		var err error
		out, err = db.Aggregate[model.ConversationSummary](ctx, m.directs.Collection(), pipeline)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// pageParams reads newest-first so a Limit keeps the most recent messages;
// ascending flips the slice back.
func pageParams(page model.Page) db.FindParams {
	if page.Limit > 0 {
		return db.FindParams{
			Sort:  bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}},
			Limit: int64(page.Limit),
		}
	}
	return db.FindParams{Sort: bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}}}
}

func ascending[T any](items []T, page model.Page) []T {
	if page.Limit <= 0 {
		return items
	}
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items
}
