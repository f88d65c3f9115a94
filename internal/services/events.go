package services

import (
	"uppypro/internal/models"
	"uppypro/internal/realtime"

	"go.uber.org/zap"
)

// publishMessageEvent publishes asynchronously, publish errors are only logged
func publishMessageEvent(publisher realtime.Publisher, logger *zap.Logger, conv *models.Conversation, msg *models.Message, eventType string) {
	if publisher == nil {
		return
	}
	event := &realtime.MessageEvent{
		Type:           eventType,
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		Direction:      string(msg.Direction),
		SenderType:     string(msg.SenderType),
		Text:           msg.Text,
		MessageType:    string(msg.MessageType),
		DeliveryStatus: string(msg.DeliveryStatus),
		SentAt:         msg.SentAt,
		Channel:        string(conv.Channel),
		CustomerName:   conv.CustomerName,
	}
	tenantID := msg.TenantID
	go func() {
		if err := publisher.PublishMessage(tenantID, event); err != nil {
			logger.Warn("failed to publish message event", zap.Error(err))
		}
	}()
}

func publishConversationEvent(publisher realtime.Publisher, logger *zap.Logger, conv *models.Conversation) {
	if publisher == nil {
		return
	}
	event := &realtime.ConversationEvent{
		ConversationID: conv.ID,
		Status:         string(conv.Status),
		AssignedTo:     conv.AssignedTo,
		AIPaused:       conv.AIPaused,
		UnreadCount:    conv.UnreadCount,
		LastMessageAt:  conv.LastMessageAt,
	}
	if conv.LastMessagePreview != nil {
		event.LastMessagePreview = *conv.LastMessagePreview
	}
	tenantID := conv.TenantID
	go func() {
		if err := publisher.PublishConversation(tenantID, event); err != nil {
			logger.Warn("failed to publish conversation event", zap.Error(err))
		}
	}()
}
