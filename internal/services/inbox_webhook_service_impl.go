package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"uppypro/internal/channel"
	"uppypro/internal/metrics"
	"uppypro/internal/models"
	"uppypro/internal/repositories"

	"go.uber.org/zap"
)

type inboxWebhookService struct {
	repos      *repositories.Repositories
	registry   *channel.Registry
	channels   ChannelService
	messages   MessageService
	maxRetries int
	logger     *zap.Logger
}

// NewInboxWebhookService creates the InboxWebhookService
func NewInboxWebhookService(
	repos *repositories.Repositories,
	registry *channel.Registry,
	channels ChannelService,
	messages MessageService,
	maxRetries int,
	logger *zap.Logger,
) InboxWebhookService {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &inboxWebhookService{
		repos:      repos,
		registry:   registry,
		channels:   channels,
		messages:   messages,
		maxRetries: maxRetries,
		logger:     logger.Named("meta_webhook"),
	}
}

// channelForObject maps the payload "object" field to a channel
func channelForObject(object string) (models.ChannelType, bool) {
	switch object {
	case "whatsapp_business_account":
		return models.ChannelWhatsApp, true
	case "instagram", "page":
		return models.ChannelInstagram, true
	}
	return "", false
}

func (s *inboxWebhookService) HandleMeta(ctx context.Context, body []byte) (*MetaDeliveryResult, error) {
	var head struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		metrics.RecordWebhook(string(models.WebhookMeta), "malformed")
		s.logger.Warn("malformed meta delivery", zap.Error(err))
		return &MetaDeliveryResult{}, nil
	}

	channelType, ok := channelForObject(head.Object)
	if !ok || !s.registry.Has(channelType) {
		metrics.RecordWebhook(string(models.WebhookMeta), "ignored")
		s.logger.Debug("meta delivery for an unhandled object", zap.String("object", head.Object))
		return &MetaDeliveryResult{}, nil
	}
	result := &MetaDeliveryResult{Channel: channelType}

	// Meta has no delivery id, identical bodies are redeliveries
	sum := sha256.Sum256(body)
	stored, claim, err := s.repos.WebhookEvents.Claim(ctx, &models.WebhookEvent{
		Provider:  models.WebhookMeta,
		EventKey:  hex.EncodeToString(sum[:]),
		EventType: head.Object,
		Status:    models.WebhookStatusProcessing,
	}, s.maxRetries)
	if err != nil {
		return nil, err
	}
	switch claim {
	case repositories.ClaimDuplicate, repositories.ClaimInProgress, repositories.ClaimExhausted:
		metrics.RecordWebhook(string(models.WebhookMeta), "duplicate")
		result.Duplicate = true
		return result, nil
	}

	ch, err := s.registry.Get(channelType)
	if err != nil {
		return nil, err
	}
	batch, err := ch.Normalize(ctx, body)
	if err != nil {
		stored.MarkIgnored(err.Error())
		s.save(ctx, stored)
		metrics.RecordWebhook(string(models.WebhookMeta), "ignored")
		s.logger.Warn("meta delivery could not be normalized", zap.String("channel", string(channelType)), zap.Error(err))
		return result, nil
	}

	var errs []error
	for i := range batch.Messages {
		in := &batch.Messages[i]
		conn, err := s.channels.ResolveConnection(ctx, channelType, in.ExternalAccountID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if conn == nil {
			result.Skipped++
			s.logger.Info("message for an unknown connection",
				zap.String("channel", string(channelType)),
				zap.String("external_id", in.ExternalAccountID),
			)
			continue
		}
		if _, err := s.messages.ProcessInbound(ctx, conn, in); err != nil {
			errs = append(errs, err)
			continue
		}
		result.Messages++
	}

	for i := range batch.Statuses {
		if _, err := s.messages.ApplyStatus(ctx, &batch.Statuses[i]); err != nil {
			errs = append(errs, err)
			continue
		}
		result.Statuses++
	}

	if err := errors.Join(errs...); err != nil {
		stored.MarkFailed(err)
		s.save(ctx, stored)
		metrics.RecordWebhook(string(models.WebhookMeta), "failed")
		return result, err
	}

	stored.MarkProcessed()
	s.save(ctx, stored)
	metrics.RecordWebhook(string(models.WebhookMeta), "processed")
	return result, nil
}

func (s *inboxWebhookService) save(ctx context.Context, event *models.WebhookEvent) {
	if err := s.repos.WebhookEvents.Save(ctx, event); err != nil {
		s.logger.Error("failed to record meta delivery", zap.Error(err))
	}
}
