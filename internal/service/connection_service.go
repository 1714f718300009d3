package service

import (
	"context"
	"time"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/apperr"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/repo"

	"go.uber.org/zap"
)

// ConnectionService runs the connection request state machine for a pair:
// none -> pending -> connected -> none.
type ConnectionService interface {
	RequestConnection(ctx context.Context, requesterID, targetID string) error
	AcceptConnection(ctx context.Context, accepterID, requesterID string) error
	RejectConnection(ctx context.Context, rejecterID, requesterID string) error
	RemoveConnection(ctx context.Context, userID, otherID string) error
	ConnectionStatus(ctx context.Context, userID, otherID string) (model.ConnectionStatus, error)
	ListConnections(ctx context.Context, userID string) ([]model.UserSummary, error)
	ListIncomingRequests(ctx context.Context, userID string) ([]model.ConnectionRequest, error)
}

type connectionService struct {
	users  repo.UserRepository
	graph  repo.ConnectionRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewConnectionService(users repo.UserRepository, graph repo.ConnectionRepository, logger *zap.Logger) ConnectionService {
	return &connectionService{
		users:  users,
		graph:  graph,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *connectionService) RequestConnection(ctx context.Context, requesterID, targetID string) error {
	if err := validatePair(requesterID, targetID); err != nil {
		return err
	}
	if _, err := s.users.GetUser(ctx, targetID); err != nil {
		return err
	}

	if err := s.graph.CreateRequest(ctx, requesterID, targetID, s.now()); err != nil {
		return err
	}

	s.logger.Info("connection requested",
		zap.String("requester_id", requesterID),
		zap.String("target_id", targetID),
	)
	return nil
}

func (s *connectionService) AcceptConnection(ctx context.Context, accepterID, requesterID string) error {
	if err := validatePair(accepterID, requesterID); err != nil {
		return err
	}
	if err := s.graph.AcceptRequest(ctx, accepterID, requesterID); err != nil {
		return err
	}

	s.logger.Info("connection accepted",
		zap.String("accepter_id", accepterID),
		zap.String("requester_id", requesterID),
	)
	return nil
}

func (s *connectionService) RejectConnection(ctx context.Context, rejecterID, requesterID string) error {
	if err := validatePair(rejecterID, requesterID); err != nil {
		return err
	}
	if err := s.graph.DeleteRequest(ctx, rejecterID, requesterID); err != nil {
		return err
	}

	s.logger.Info("connection rejected",
		zap.String("rejecter_id", rejecterID),
		zap.String("requester_id", requesterID),
	)
	return nil
}

func (s *connectionService) RemoveConnection(ctx context.Context, userID, otherID string) error {
	if err := validatePair(userID, otherID); err != nil {
		return err
	}

	err := retryTransient(ctx, func() error {
		return s.graph.DeleteConnection(ctx, userID, otherID)
	})
	if err != nil {
		s.logger.Error("failed to remove connection",
			zap.String("user_id", userID),
			zap.String("other_id", otherID),
			zap.Error(err),
		)
		return err
	}

	s.logger.Info("connection removed",
		zap.String("user_id", userID),
		zap.String("other_id", otherID),
	)
	return nil
}

func (s *connectionService) ConnectionStatus(ctx context.Context, userID, otherID string) (model.ConnectionStatus, error) {
	if err := validatePair(userID, otherID); err != nil {
		return model.StatusNone, err
	}

	var status model.ConnectionStatus
	err := retryTransient(ctx, func() error {
		var err error
		status, err = s.graph.Status(ctx, userID, otherID)
		return err
	})
	return status, err
}

// ListConnections returns the user's connections with their public profile.
// Ids with no user record left are skipped.
func (s *connectionService) ListConnections(ctx context.Context, userID string) ([]model.UserSummary, error) {
	if userID == "" {
		return nil, apperr.ErrMissingID
	}

	ids, err := s.graph.ListConnections(ctx, userID)
	if err != nil {
		return nil, err
	}
	users, err := s.users.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := make([]model.UserSummary, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u.Summary())
		}
	}
	return out, nil
}

func (s *connectionService) ListIncomingRequests(ctx context.Context, userID string) ([]model.ConnectionRequest, error) {
	if userID == "" {
		return nil, apperr.ErrMissingID
	}
	return s.graph.ListRequests(ctx, userID)
}

func validatePair(a, b string) error {
	if a == "" || b == "" {
		return apperr.ErrMissingID
	}
	if !model.ValidUserID(a) || !model.ValidUserID(b) {
		return apperr.ErrInvalidUserID
	}
	if a == b {
		return apperr.ErrSelfConnection
	}
	return nil
}
