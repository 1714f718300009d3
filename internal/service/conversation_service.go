package service

import (
	"context"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/apperr"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/repo"

	"go.uber.org/zap"
)

// ConversationService derives the inbox view from direct messages at read
// time. Nothing it returns is stored.
type ConversationService interface {
	ListConversations(ctx context.Context, userID string) ([]model.ConversationSummary, error)
}

type conversationService struct {
	messages repo.MessageRepository
	users    repo.UserRepository
	logger   *zap.Logger
}

func NewConversationService(messages repo.MessageRepository, users repo.UserRepository, logger *zap.Logger) ConversationService {
	return &conversationService{messages: messages, users: users, logger: logger}
}

func (s *conversationService) ListConversations(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	if userID == "" {
		return nil, apperr.ErrMissingID
	}

	summaries, err := s.messages.SummarizeConversations(ctx, userID)
	if err != nil {
		return nil, err
	}
	if summaries == nil {
		summaries = []model.ConversationSummary{}
	}
	s.enrich(ctx, summaries)
	return summaries, nil
}

// enrich fills in counterpart profiles. A lookup failure leaves the names
// empty rather than failing the read.
func (s *conversationService) enrich(ctx context.Context, summaries []model.ConversationSummary) {
	if len(summaries) == 0 || s.users == nil {
		return
	}

	ids := make([]string, 0, len(summaries))
	for _, c := range summaries {
		ids = append(ids, c.CounterpartID)
	}

	users, err := s.users.GetUsers(ctx, ids)
	if err != nil {
		s.logger.Warn("conversation enrichment skipped", zap.Error(err))
		return
	}

	byID := make(map[string]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for i := range summaries {
		if u, ok := byID[summaries[i].CounterpartID]; ok {
			summaries[i].CounterpartName = u.DisplayName
			summaries[i].CounterpartAvatar = u.AvatarURL
		}
	}
}
