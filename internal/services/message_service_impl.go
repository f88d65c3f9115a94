package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"uppypro/internal/agent"
	"uppypro/internal/channel"
	apperrors "uppypro/internal/errors"
	"uppypro/internal/models"
	"uppypro/internal/realtime"
	"uppypro/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ===========================================================================
// Message Service Implementation
// ===========================================================================

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// profileFetcher channels that can resolve a customer's display name
type profileFetcher interface {
	GetUserProfile(ctx context.Context, userID, token string) (*channel.UserProfile, error)
}

type messageService struct {
	repos         *repositories.Repositories
	registry      *channel.Registry
	forwarder     AgentForwarder
	notifications NotificationService
	publisher     realtime.Publisher
	baseURL       string
	logger        *zap.Logger

	background sync.WaitGroup
}

// NewMessageService creates the MessageService. baseURL is the public URL of this
// service, used for the AI callback links.
func NewMessageService(
	repos *repositories.Repositories,
	registry *channel.Registry,
	forwarder AgentForwarder,
	notifications NotificationService,
	publisher realtime.Publisher,
	baseURL string,
	logger *zap.Logger,
) MessageService {
	return &messageService{
		repos:         repos,
		registry:      registry,
		forwarder:     forwarder,
		notifications: notifications,
		publisher:     publisher,
		baseURL:       strings.TrimRight(baseURL, "/"),
		logger:        logger.Named("messages"),
	}
}

// ===========================================================================
// Inbound
// ===========================================================================

func (s *messageService) ProcessInbound(ctx context.Context, conn *models.ChannelConnection, inbound *channel.InboundMessage) (*ProcessResult, error) {
	if inbound.SenderID == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "inbound message without sender")
	}
	result := &ProcessResult{}

	// 1. Dedup
	if inbound.ChannelMessageID != "" {
		existing, err := s.repos.Messages.FindByChannelMessageID(ctx, inbound.ChannelMessageID)
		if err == nil {
			result.Duplicate = true
			result.MessageID = existing.ID
			result.ConversationID = existing.ConversationID
			return result, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}

	// 2. Conversation
	conv, created, err := s.findOrCreateConversation(ctx, conn, inbound)
	if err != nil {
		return nil, err
	}
	result.ConversationID = conv.ID
	result.ConversationCreated = created

	// 3. Message
	msg, err := s.saveInbound(ctx, conn, conv, inbound)
	if errors.Is(err, apperrors.ErrDuplicateEntry) {
		result.Duplicate = true
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	result.MessageID = msg.ID

	if err := s.repos.Conversations.RecordInbound(ctx, conv.ID, msg.SentAt, msg.Preview()); err != nil {
		s.logger.Warn("failed to update conversation counters", zap.Error(err))
	}
	conv.Reopen()
	conv.UnreadCount++
	conv.UpdateLastMessage(msg.Preview(), msg.SentAt)

	// 4. Realtime
	s.publishMessage(conv, msg, realtime.EventMessageCreated)
	s.publishConversation(conv)

	// 5. First message of a new thread
	if created {
		name := conv.CustomerName
		if name == "" {
			name = conv.CustomerHandle
		}
		if _, err := s.notifications.Notify(ctx, NotifyInput{
			TenantID: conv.TenantID,
			Type:     models.NotifyNewConversation,
			Title:    "Yeni konuşma",
			Body:     fmt.Sprintf("%s size %s üzerinden yazdı", name, channelLabel(conv.Channel)),
			Link:     "/inbox/" + conv.ID.String(),
			Data:     map[string]interface{}{"conversation_id": conv.ID.String()},
		}); err != nil {
			s.logger.Warn("new conversation notification failed", zap.Error(err))
		}
	}

	if conv.CustomerName == "" {
		s.fetchCustomerProfile(*conv, conn)
	}

	// 6. AI
	result.Forwarded = s.maybeForward(ctx, conv, msg)

	s.logger.Info("inbound message processed",
		zap.String("tenant_id", conv.TenantID.String()),
		zap.String("conversation_id", conv.ID.String()),
		zap.String("message_id", msg.ID.String()),
		zap.Bool("conversation_created", created),
		zap.Bool("forwarded", result.Forwarded),
	)
	return result, nil
}

func (s *messageService) findOrCreateConversation(ctx context.Context, conn *models.ChannelConnection, inbound *channel.InboundMessage) (*models.Conversation, bool, error) {
	conv, err := s.repos.Conversations.FindByCustomer(ctx, conn.ID, inbound.SenderID)
	if err == nil {
		if conv.CustomerName == "" && inbound.SenderName != "" {
			conv.CustomerName = inbound.SenderName
			if err := s.repos.Conversations.Update(ctx, conv, "customer_name"); err != nil {
				s.logger.Warn("failed to store customer name", zap.Error(err))
			}
		}
		return conv, false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, err
	}

	conv = &models.Conversation{
		TenantID:            conn.TenantID,
		ChannelConnectionID: conn.ID,
		Channel:             conn.Channel,
		CustomerHandle:      inbound.SenderID,
		CustomerName:        inbound.SenderName,
		Status:              models.StatusOpen,
	}
	if err := s.repos.Conversations.Create(ctx, conv); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateEntry) {
			conv, err = s.repos.Conversations.FindByCustomer(ctx, conn.ID, inbound.SenderID)
			return conv, false, err
		}
		return nil, false, err
	}
	return conv, true, nil
}

func (s *messageService) saveInbound(ctx context.Context, conn *models.ChannelConnection, conv *models.Conversation, inbound *channel.InboundMessage) (*models.Message, error) {
	sentAt := inbound.Timestamp
	if sentAt.IsZero() {
		sentAt = timeNow()
	}
	msgType := inbound.MessageType
	if msgType == "" {
		msgType = models.MessageText
	}

	msg := &models.Message{
		TenantID:       conn.TenantID,
		ConversationID: conv.ID,
		Direction:      models.DirectionIn,
		SenderType:     models.SenderCustomer,
		Text:           inbound.Text,
		MessageType:    msgType,
		Attachments:    models.Attachments(inbound.Attachments),
		DeliveryStatus: models.DeliveryReceived,
		SentAt:         sentAt.UTC(),
	}
	if inbound.ChannelMessageID != "" {
		id := inbound.ChannelMessageID
		msg.ChannelMessageID = &id
	}

	if err := s.repos.Messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// fetchCustomerProfile resolves the customer's name in the background
func (s *messageService) fetchCustomerProfile(conv models.Conversation, conn *models.ChannelConnection) {
	ch, err := s.registry.Get(conn.Channel)
	if err != nil {
		return
	}
	fetcher, ok := ch.(profileFetcher)
	if !ok || conn.Credentials.AccessToken == "" {
		return
	}
	token := conn.Credentials.AccessToken

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()

		profile, err := fetcher.GetUserProfile(ctx, conv.CustomerHandle, token)
		if err != nil {
			s.logger.Debug("customer profile lookup failed", zap.Error(err))
			return
		}
		name := profile.DisplayName()
		if name == "" {
			return
		}

		fresh, err := s.repos.Conversations.FindAnyByID(ctx, conv.ID)
		if err != nil || fresh.CustomerName != "" {
			return
		}
		fresh.CustomerName = name
		if err := s.repos.Conversations.Update(ctx, fresh, "customer_name"); err != nil {
			s.logger.Warn("failed to store customer profile", zap.Error(err))
			return
		}
		s.publishConversation(fresh)
	}()
}

// ===========================================================================
// AI forwarding
// ===========================================================================

func (s *messageService) maybeForward(ctx context.Context, conv *models.Conversation, msg *models.Message) bool {
	if s.forwarder == nil || conv.AIPaused {
		return false
	}
	settings, err := s.repos.AgentSettings.FindByTenant(ctx, conv.TenantID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Warn("failed to load agent settings", zap.Error(err))
		}
		return false
	}
	if !settings.IsActive() {
		return false
	}

	req := &agent.Request{
		Event:          "message.received",
		TenantID:       conv.TenantID,
		ConversationID: conv.ID,
		MessageID:      msg.ID,
		Channel:        string(conv.Channel),
		Customer: agent.Customer{
			Handle: conv.CustomerHandle,
			Name:   conv.CustomerName,
		},
		Text:            msg.Text,
		MessageType:     string(msg.MessageType),
		BusinessContext: settings.BusinessContext,
		ReplyMode:       string(settings.ReplyMode),
		SentAt:          msg.SentAt,
		Callbacks:       s.callbacks(conv),
	}

	webhookURL := settings.WebhookURL
	syncReply := settings.ReplyMode == models.ReplySync
	snapshot := *conv

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()

		log := s.logger.With(
			zap.String("tenant_id", snapshot.TenantID.String()),
			zap.String("conversation_id", snapshot.ID.String()),
		)

		reply, err := s.forwarder.Forward(ctx, webhookURL, req)
		if err != nil {
			log.Warn("agent forward failed", zap.Error(err))
			return
		}

		if syncReply && reply.HasReply() {
			if _, err := s.SendOutbound(ctx, &snapshot, SendInput{
				Text:       strings.TrimSpace(reply.Reply),
				SenderType: models.SenderAI,
			}); err != nil {
				log.Warn("agent reply send failed", zap.Error(err))
			}
		}
		if reply != nil && reply.Handoff {
			if _, err := s.Handoff(ctx, snapshot.ID, reply.HandoffReason); err != nil {
				log.Warn("agent handoff failed", zap.Error(err))
			}
		}
	}()
	return true
}

func (s *messageService) callbacks(conv *models.Conversation) agent.Callbacks {
	base := s.baseURL + "/internal/v1"
	convBase := base + "/conversations/" + conv.ID.String()
	return agent.Callbacks{
		SendMessage: base + "/messages/send",
		History:     convBase + "/messages",
		Summary:     convBase + "/summary",
		Handoff:     convBase + "/handoff",
		Context:     base + "/tenants/" + conv.TenantID.String() + "/context",
		Appointment: base + "/appointments",
	}
}

// ===========================================================================
// Delivery status
// ===========================================================================

func (s *messageService) ApplyStatus(ctx context.Context, update *channel.StatusUpdate) (bool, error) {
	if update.ChannelMessageID == "" {
		return false, nil
	}
	msg, err := s.repos.Messages.FindByChannelMessageID(ctx, update.ChannelMessageID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !msg.IsOutbound() || !msg.ApplyStatus(update.Status, update.Error) {
		return false, nil
	}
	if err := s.repos.Messages.Update(ctx, msg); err != nil {
		return false, err
	}

	s.publishMessage(&models.Conversation{BaseModel: models.BaseModel{ID: msg.ConversationID}, TenantID: msg.TenantID}, msg, realtime.EventMessageStatus)
	return true, nil
}

// ===========================================================================
// Outbound
// ===========================================================================

func (s *messageService) SendOutbound(ctx context.Context, conv *models.Conversation, in SendInput) (*models.Message, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" && in.Attachment == nil {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "mesaj boş olamaz")
	}
	if in.SenderType == "" {
		in.SenderType = models.SenderAgent
	}

	conn, err := s.repos.Connections.FindAnyByID(ctx, conv.ChannelConnectionID)
	if err != nil {
		return nil, notFound(err, "kanal bağlantısı bulunamadı")
	}
	if !conn.IsConnected() {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "kanal bağlı değil")
	}
	ch, err := s.registry.Get(conn.Channel)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "kanal desteklenmiyor")
	}

	now := timeNow()
	msg := &models.Message{
		TenantID:       conv.TenantID,
		ConversationID: conv.ID,
		Direction:      models.DirectionOut,
		SenderType:     in.SenderType,
		SenderUserID:   in.SenderUserID,
		Text:           text,
		MessageType:    models.MessageText,
		DeliveryStatus: models.DeliveryPending,
		SentAt:         now,
	}
	if in.Attachment != nil {
		msg.Attachments = models.Attachments{*in.Attachment}
		msg.MessageType = models.MessageType(in.Attachment.Type)
	}
	if err := s.repos.Messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	res, sendErr := ch.Send(ctx, conn, &channel.OutboundMessage{
		RecipientID: conv.CustomerHandle,
		Text:        text,
		Attachment:  in.Attachment,
	})
	if sendErr != nil {
		msg.ApplyStatus(models.DeliveryFailed, sendErr.Error())
		if err := s.repos.Messages.Update(ctx, msg); err != nil {
			s.logger.Warn("failed to mark message failed", zap.Error(err))
		}
		s.publishMessage(conv, msg, realtime.EventMessageStatus)
		s.handleChannelFailure(ctx, conn, sendErr)

		s.logger.Warn("outbound send failed",
			zap.String("conversation_id", conv.ID.String()),
			zap.String("channel", string(conn.Channel)),
			zap.Error(sendErr),
		)
		if !errors.Is(sendErr, apperrors.ErrExternal) {
			sendErr = fmt.Errorf("%w: %v", apperrors.ErrExternal, sendErr)
		}
		return nil, sendErr
	}

	if res != nil && res.ChannelMessageID != "" {
		id := res.ChannelMessageID
		msg.ChannelMessageID = &id
	}
	msg.ApplyStatus(models.DeliverySent, "")
	if err := s.repos.Messages.Update(ctx, msg); err != nil {
		return nil, err
	}

	resetUnread := in.SenderType == models.SenderAgent
	if err := s.repos.Conversations.RecordOutbound(ctx, conv.ID, now, msg.Preview(), resetUnread); err != nil {
		s.logger.Warn("failed to update conversation preview", zap.Error(err))
	}
	conv.UpdateLastMessage(msg.Preview(), now)
	if resetUnread {
		conv.UnreadCount = 0
	}

	s.publishMessage(conv, msg, realtime.EventMessageCreated)
	s.publishConversation(conv)
	return msg, nil
}

// handleChannelFailure flags the connection when Meta rejects its token
func (s *messageService) handleChannelFailure(ctx context.Context, conn *models.ChannelConnection, err error) {
	var ext *apperrors.ExternalError
	if !apperrors.As(err, &ext) || ext.StatusCode != 401 {
		return
	}

	conn.SetError(ext.Error())
	if err := s.repos.Connections.Update(ctx, conn); err != nil {
		s.logger.Warn("failed to flag channel connection", zap.Error(err))
		return
	}
	if _, err := s.notifications.NotifyByEmail(ctx, NotifyInput{
		TenantID: conn.TenantID,
		Type:     models.NotifyChannelError,
		Title:    channelLabel(conn.Channel) + " bağlantısı koptu",
		Body:     "Mesaj gönderilemedi. Lütfen kanalı yeniden bağlayın.",
		Link:     "/settings/channels",
	}); err != nil {
		s.logger.Warn("channel error notification failed", zap.Error(err))
	}
}

// ===========================================================================
// Internal API helpers
// ===========================================================================

func (s *messageService) FindConversation(ctx context.Context, conversationID uuid.UUID) (*models.Conversation, error) {
	conv, err := s.repos.Conversations.FindAnyByID(ctx, conversationID)
	return conv, notFound(err, "konuşma bulunamadı")
}

func (s *messageService) History(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error) {
	if _, err := s.FindConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.repos.Messages.ListRecent(ctx, conversationID, limit)
}

func (s *messageService) SaveSummary(ctx context.Context, conversationID uuid.UUID, summary string) (*models.Conversation, error) {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "özet boş olamaz")
	}
	conv, err := s.FindConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	conv.SetSummary(summary, timeNow())
	if err := s.repos.Conversations.Update(ctx, conv, "summary", "summary_updated_at"); err != nil {
		return nil, err
	}
	s.publishConversation(conv)
	return conv, nil
}

func (s *messageService) Handoff(ctx context.Context, conversationID uuid.UUID, reason string) (*models.Conversation, error) {
	conv, err := s.FindConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	conv.PauseAI(strings.TrimSpace(reason))
	if err := s.repos.Conversations.Update(ctx, conv, "ai_paused", "ai_paused_reason"); err != nil {
		return nil, err
	}
	s.publishConversation(conv)

	name := conv.CustomerName
	if name == "" {
		name = conv.CustomerHandle
	}
	body := name + " ile konuşma size devredildi"
	if reason != "" {
		body += ": " + reason
	}
	if _, err := s.notifications.Notify(ctx, NotifyInput{
		TenantID: conv.TenantID,
		UserID:   conv.AssignedTo,
		Type:     models.NotifyAIHandoff,
		Title:    "Yapay zeka konuşmayı devretti",
		Body:     body,
		Link:     "/inbox/" + conv.ID.String(),
		Data:     map[string]interface{}{"conversation_id": conv.ID.String()},
	}); err != nil {
		s.logger.Warn("handoff notification failed", zap.Error(err))
	}
	return conv, nil
}

func (s *messageService) Wait() {
	s.background.Wait()
}

// ===========================================================================
// Realtime
// ===========================================================================

func (s *messageService) publishMessage(conv *models.Conversation, msg *models.Message, eventType string) {
	publishMessageEvent(s.publisher, s.logger, conv, msg, eventType)
}

func (s *messageService) publishConversation(conv *models.Conversation) {
	publishConversationEvent(s.publisher, s.logger, conv)
}

func channelLabel(c models.ChannelType) string {
	switch c {
	case models.ChannelWhatsApp:
		return "WhatsApp"
	case models.ChannelInstagram:
		return "Instagram"
	}
	return string(c)
}
