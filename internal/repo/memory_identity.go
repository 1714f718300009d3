package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/apperr"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"
)

type memoryIdentityStore struct {
	mu    sync.Mutex
	users map[string]*model.User
}

// NewMemoryIdentityStore keeps users and the graph in process memory. One
// mutex serializes every transition, which trivially linearizes each pair.
func NewMemoryIdentityStore() IdentityStore {
	return &memoryIdentityStore{users: make(map[string]*model.User)}
}

func (s *memoryIdentityStore) EnsureIndexes(ctx context.Context) error { return nil }

func (s *memoryIdentityStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperr.ErrMissingID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, apperr.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *memoryIdentityStore) GetUsers(ctx context.Context, ids []string) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, *cloneUser(u))
		}
	}
	return out, nil
}

func (s *memoryIdentityStore) EnsureUser(ctx context.Context, identity model.Identity) (*model.User, error) {
	if identity.ID == "" {
		return nil, apperr.ErrMissingID
	}
	if !model.ValidUserID(identity.ID) {
		return nil, apperr.ErrInvalidUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	u, ok := s.users[identity.ID]
	if !ok {
		for _, other := range s.users {
			if (identity.Email != "" && other.Email == identity.Email) ||
				(identity.Username != "" && other.Username == identity.Username) {
				return nil, apperr.AlreadyExists("IdentityConflict", "email or username already belongs to another user")
			}
		}
		u = &model.User{
			ID:                 identity.ID,
			Username:           identity.Username,
			Email:              identity.Email,
			Connections:        []string{},
			ConnectionRequests: []model.ConnectionRequest{},
			IsActive:           true,
			CreatedAt:          now,
		}
		s.users[identity.ID] = u
	}
	u.DisplayName = identity.DisplayName
	u.AvatarURL = identity.AvatarURL
	u.UpdatedAt = &now
	return cloneUser(u), nil
}

func (s *memoryIdentityStore) Status(ctx context.Context, userID, otherID string) (model.ConnectionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.StatusBetween(s.users[userID], s.users[otherID]), nil
}

func (s *memoryIdentityStore) CreateRequest(ctx context.Context, requesterID, targetID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	requester, target, err := s.pair(requesterID, targetID)
	if err != nil {
		return err
	}

	switch model.StatusBetween(requester, target) {
	case model.StatusConnected:
		return apperr.ErrAlreadyConnected
	case model.StatusPendingOutgoing:
		return apperr.ErrDuplicateRequest
	case model.StatusPendingIncoming:
		return apperr.ErrReciprocalRequestExists
	}

	target.ConnectionRequests = append(target.ConnectionRequests, model.ConnectionRequest{From: requesterID, CreatedAt: at})
	requester.GraphVersion++
	target.GraphVersion++
	return nil
}

func (s *memoryIdentityStore) AcceptRequest(ctx context.Context, accepterID, requesterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accepter, requester, err := s.pair(accepterID, requesterID)
	if err != nil {
		return err
	}
	if !accepter.HasRequestFrom(requesterID) {
		return apperr.ErrRequestNotFound
	}

	accepter.ConnectionRequests = withoutRequestFrom(accepter.ConnectionRequests, requesterID)
	requester.ConnectionRequests = withoutRequestFrom(requester.ConnectionRequests, accepterID)
	accepter.Connections = addToSet(accepter.Connections, requesterID)
	requester.Connections = addToSet(requester.Connections, accepterID)
	accepter.GraphVersion++
	requester.GraphVersion++
	return nil
}

func (s *memoryIdentityStore) DeleteRequest(ctx context.Context, rejecterID, requesterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rejecter, ok := s.users[rejecterID]
	if !ok || !rejecter.HasRequestFrom(requesterID) {
		return apperr.ErrRequestNotFound
	}
	rejecter.ConnectionRequests = withoutRequestFrom(rejecter.ConnectionRequests, requesterID)
	rejecter.GraphVersion++
	return nil
}

func (s *memoryIdentityStore) DeleteConnection(ctx context.Context, userID, otherID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[userID]; ok {
		u.Connections = removeFromSet(u.Connections, otherID)
		u.GraphVersion++
	}
	if o, ok := s.users[otherID]; ok {
		o.Connections = removeFromSet(o.Connections, userID)
		o.GraphVersion++
	}
	return nil
}

func (s *memoryIdentityStore) ListConnections(ctx context.Context, userID string) ([]string, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.Strings(u.Connections)
	return u.Connections, nil
}

func (s *memoryIdentityStore) ListRequests(ctx context.Context, userID string) ([]model.ConnectionRequest, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.ConnectionRequests, nil
}

// Seed inserts or replaces a user record as-is. Test and bootstrap helper.
func Seed(store IdentityStore, users ...model.User) {
	s, ok := store.(*memoryIdentityStore)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range users {
		s.users[users[i].ID] = cloneUser(&users[i])
	}
}

func (s *memoryIdentityStore) pair(aID, bID string) (*model.User, *model.User, error) {
	a, ok := s.users[aID]
	if !ok {
		return nil, nil, apperr.ErrUserNotFound
	}
	b, ok := s.users[bID]
	if !ok {
		return nil, nil, apperr.ErrUserNotFound
	}
	return a, b, nil
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.Connections = append([]string{}, u.Connections...)
	c.ConnectionRequests = append([]model.ConnectionRequest{}, u.ConnectionRequests...)
	return &c
}

func withoutRequestFrom(reqs []model.ConnectionRequest, from string) []model.ConnectionRequest {
	out := reqs[:0]
	for _, r := range reqs {
		if r.From != from {
			out = append(out, r)
		}
	}
	return out
}

func addToSet(set []string, id string) []string {
	for _, v := range set {
		if v == id {
			return set
		}
	}
	return append(set, id)
}

func removeFromSet(set []string, id string) []string {
	out := set[:0]
	for _, v := range set {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
