package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"sharecycle-be/internal/dto"
	"sharecycle-be/internal/model"
	"sharecycle-be/internal/pkg/apperror"
	"sharecycle-be/internal/pkg/logger"
	"sharecycle-be/internal/repository"
	"sharecycle-be/pkg/events"
	pktNats "sharecycle-be/pkg/nats" // Renamed to avoid collision

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const notificationDurable = "sharecycle-notification-worker"

// NotificationDelivery defines how to push real-time updates.
// Typically implemented by the WebSocket Hub.
type NotificationDelivery interface {
	Send(userID uuid.UUID, notification model.Notification)
}

type NotificationService struct {
	repo       repository.NotificationRepository
	subscriber *pktNats.Subscriber
	delivery   NotificationDelivery
	logger     logger.ILogger
}

func NewNotificationService(repo repository.NotificationRepository, sub *pktNats.Subscriber, delivery NotificationDelivery, log logger.ILogger) *NotificationService {
	return &NotificationService{
		repo:       repo,
		subscriber: sub,
		delivery:   delivery,
		logger:     log,
	}
}

// Start begins listening to the event bus. Without a subscriber the inbox is
// only fed by direct HandleEvent calls.
func (s *NotificationService) Start() {
	if s.subscriber == nil {
		s.logger.Warn("NotificationService", "No event bus configured, notifications disabled", nil)
		return
	}
	err := s.subscriber.Subscribe(pktNats.AllSubjects, notificationDurable, s.HandleEvent)
	if err != nil {
		s.logger.Error("NotificationService", "Failed to start notification subscriber", map[string]interface{}{"error": err.Error()})
		return
	}
	s.logger.Info("NotificationService", "Notification service started", map[string]interface{}{"subject": pktNats.AllSubjects})
}

// HandleEvent stores one inbox entry for the recipient named by the payload's
// user_id and pushes it to their open sockets. Returning an error asks the bus
// to redeliver.
func (s *NotificationService) HandleEvent(ctx context.Context, event events.Event) error {
	typeCode := pktNats.EventTypeFromSubject(event.EventType())

	config, err := s.repo.GetNotificationTypeByCode(ctx, typeCode)
	if err != nil {
		return fmt.Errorf("load notification type %s: %w", typeCode, err)
	}
	if config == nil {
		s.logger.Info("NotificationService", fmt.Sprintf("No active notification type for '%s'", typeCode), nil)
		return nil
	}

	recipient, ok := uuidFromPayload(event.Payload(), "user_id")
	if !ok {
		s.logger.Warn("NotificationService", fmt.Sprintf("Event %s has no user_id, dropping", typeCode), nil)
		return nil
	}

	notif := s.buildNotification(recipient, config, event)
	if err := s.repo.CreateNotification(ctx, &notif); err != nil {
		s.logger.Error("NotificationService", "Error saving notification", map[string]interface{}{
			"error":   err.Error(),
			"user_id": recipient,
			"type":    typeCode,
		})
		return err
	}

	if s.delivery != nil {
		s.delivery.Send(recipient, notif)
	}
	return nil
}

func (s *NotificationService) buildNotification(userID uuid.UUID, config *model.NotificationType, event events.Event) model.Notification {
	// Simple Template Engine
	msg := config.Template
	payload := event.Payload()

	for k, v := range payload {
		placeholder := fmt.Sprintf("{%s}", k)
		msg = strings.ReplaceAll(msg, placeholder, fmt.Sprintf("%v", v))
	}

	var actorID *uuid.UUID
	if aid, ok := uuidFromPayload(payload, "actor_id"); ok {
		actorID = &aid
	}

	entityType, _ := payload["entity_type"].(string)
	var entityID *uuid.UUID
	if eid, ok := uuidFromPayload(payload, "entity_id"); ok {
		entityID = &eid
	}

	// Metadata - enrich with action_url for deep linking
	metaMap := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		metaMap[k] = v
	}
	if entityType != "" && entityID != nil {
		metaMap["action_url"] = fmt.Sprintf("/%ss/%s", entityType, entityID.String())
	}
	metaJSON, _ := json.Marshal(metaMap)

	return model.Notification{
		ID:         uuid.New(),
		UserID:     userID,
		ActorID:    actorID,
		TypeCode:   config.Code,
		Title:      config.DisplayName,
		Message:    msg,
		Metadata:   datatypes.JSON(metaJSON),
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  time.Now(),
		IsRead:     false,
	}
}

// GetNotifications fetches a page of the user's inbox, newest first.
func (s *NotificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) (*dto.NotificationListResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	items, total, err := s.repo.GetNotificationsByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Notification{}
	}
	return &dto.NotificationListResponse{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.GetUnreadCount(ctx, userID)
}

// MarkAsRead only touches the caller's own notifications; anything else reads
// as not found.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	ok, err := s.repo.MarkAsRead(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.NotFound(apperror.ReasonNotificationNotFound, "notification not found")
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func uuidFromPayload(payload map[string]interface{}, key string) (uuid.UUID, bool) {
	raw, ok := payload[key].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
