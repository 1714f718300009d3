package repo

import (
	"context"
	"sync"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/apperr"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/db"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const EventsCollection = "events"

// EventRepository answers attendee membership for events.
type EventRepository interface {
	IsEventAttendee(ctx context.Context, eventID, userID string) (bool, error)
}

type eventRepository struct {
	events *db.Repository[model.Event]
	logger *zap.Logger
}

func NewEventRepository(con *mongo.Database, logger *zap.Logger) EventRepository {
	return &eventRepository{
		events: db.NewRepository[model.Event](con, EventsCollection),
		logger: logger,
	}
}

func (r *eventRepository) IsEventAttendee(ctx context.Context, eventID, userID string) (bool, error) {
	if eventID == "" || userID == "" {
		return false, apperr.ErrMissingID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	var ok bool
	err := withRetry(ctx, r.logger, "eventRepo.IsEventAttendee", func(ctx context.Context) error {
		var err error
		ok, err = r.events.Exists(ctx, bson.M{"_id": eventID, "attendees": userID})
		return err
	})
	return ok, err
}

// MemoryEventRepository is a fixed attendee table, for tests and the
// memory-only deployment.
type MemoryEventRepository struct {
	mu        sync.RWMutex
	attendees map[string]map[string]struct{}
}

func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{attendees: make(map[string]map[string]struct{})}
}

// AddAttendees registers userIDs on eventID.
func (r *MemoryEventRepository) AddAttendees(eventID string, userIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.attendees[eventID]
	if !ok {
		set = make(map[string]struct{})
		r.attendees[eventID] = set
	}
	for _, id := range userIDs {
		set[id] = struct{}{}
	}
}

func (r *MemoryEventRepository) IsEventAttendee(ctx context.Context, eventID, userID string) (bool, error) {
	if eventID == "" || userID == "" {
		return false, apperr.ErrMissingID
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.attendees[eventID][userID]
	return ok, nil
}
