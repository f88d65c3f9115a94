package services

import (
	"context"

	"uppypro/internal/dto"
	apperrors "uppypro/internal/errors"
	"uppypro/internal/models"
	"uppypro/internal/realtime"
	"uppypro/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type conversationService struct {
	repos     *repositories.Repositories
	messages  MessageService
	publisher realtime.Publisher
	logger    *zap.Logger
}

// NewConversationService creates the ConversationService
func NewConversationService(
	repos *repositories.Repositories,
	messages MessageService,
	publisher realtime.Publisher,
	logger *zap.Logger,
) ConversationService {
	return &conversationService{
		repos:     repos,
		messages:  messages,
		publisher: publisher,
		logger:    logger.Named("conversations"),
	}
}

func (s *conversationService) List(ctx context.Context, tenantID uuid.UUID, filter ConversationFilter, page dto.PaginationRequest) ([]models.Conversation, int64, error) {
	filters := map[string]interface{}{
		"status":  string(filter.Status),
		"channel": string(filter.Channel),
		"search":  filter.Search,
	}
	if filter.AssignedTo != nil {
		filters["assigned_to"] = *filter.AssignedTo
	}
	if filter.Unassigned {
		filters["unassigned"] = true
	}
	if filter.AIPaused != nil {
		filters["ai_paused"] = *filter.AIPaused
	}

	return s.repos.Conversations.List(ctx, tenantID, findOptions(page, "last_message_at", filters))
}

func (s *conversationService) Get(ctx context.Context, tenantID, conversationID uuid.UUID) (*models.Conversation, error) {
	conv, err := s.repos.Conversations.FindByID(ctx, tenantID, conversationID)
	return conv, notFound(err, "konuşma bulunamadı")
}

func (s *conversationService) Update(ctx context.Context, tenantID, conversationID uuid.UUID, in UpdateConversationInput) (*models.Conversation, error) {
	conv, err := s.Get(ctx, tenantID, conversationID)
	if err != nil {
		return nil, err
	}

	var columns []string
	if in.Status != nil {
		columns = append(columns, "status")
		switch *in.Status {
		case models.StatusOpen:
			conv.Reopen()
		case models.StatusClosed:
			conv.Close()
		default:
			return nil, apperrors.New(apperrors.ErrInvalidInput, "geçersiz konuşma durumu")
		}
	}

	switch {
	case in.Unassign:
		columns = append(columns, "assigned_to")
		conv.Assign(nil)
	case in.AssignedTo != nil:
		// only members of the tenant can be assigned
		if _, err := s.repos.Members.FindByTenantAndUser(ctx, tenantID, *in.AssignedTo); err != nil {
			return nil, notFound(err, "atanacak kullanıcı bu işletmenin üyesi değil")
		}
		columns = append(columns, "assigned_to")
		conv.Assign(in.AssignedTo)
	}
	if len(columns) == 0 {
		return conv, nil
	}

	if err := s.repos.Conversations.Update(ctx, conv, columns...); err != nil {
		return nil, err
	}
	publishConversationEvent(s.publisher, s.logger, conv)
	return conv, nil
}

func (s *conversationService) MarkRead(ctx context.Context, tenantID, conversationID uuid.UUID) error {
	conv, err := s.Get(ctx, tenantID, conversationID)
	if err != nil {
		return err
	}
	if conv.UnreadCount == 0 {
		return nil
	}
	if err := s.repos.Conversations.MarkRead(ctx, tenantID, conversationID); err != nil {
		return err
	}
	conv.UnreadCount = 0
	publishConversationEvent(s.publisher, s.logger, conv)
	return nil
}

func (s *conversationService) SetAIPaused(ctx context.Context, tenantID, conversationID uuid.UUID, paused bool, reason string) (*models.Conversation, error) {
	conv, err := s.Get(ctx, tenantID, conversationID)
	if err != nil {
		return nil, err
	}
	if paused {
		conv.PauseAI(reason)
	} else {
		conv.ResumeAI()
	}
	if err := s.repos.Conversations.Update(ctx, conv, "ai_paused", "ai_paused_reason"); err != nil {
		return nil, err
	}
	publishConversationEvent(s.publisher, s.logger, conv)
	return conv, nil
}

func (s *conversationService) ListMessages(ctx context.Context, tenantID, conversationID uuid.UUID, page dto.PaginationRequest) ([]models.Message, int64, error) {
	if _, err := s.Get(ctx, tenantID, conversationID); err != nil {
		return nil, 0, err
	}
	page.SetDefaults()
	return s.repos.Messages.ListByConversation(ctx, conversationID, repositories.FindOptions{
		Offset: page.Offset(),
		Limit:  page.Limit,
	})
}

func (s *conversationService) SendMessage(ctx context.Context, tenantID, conversationID, userID uuid.UUID, text string, attachment *models.Attachment) (*models.Message, error) {
	conv, err := s.Get(ctx, tenantID, conversationID)
	if err != nil {
		return nil, err
	}
	return s.messages.SendOutbound(ctx, conv, SendInput{
		Text:         text,
		Attachment:   attachment,
		SenderType:   models.SenderAgent,
		SenderUserID: &userID,
	})
}
