package events

import (
	"context"
	"time"

	"sharecycle-be/internal/entity"
	"sharecycle-be/internal/pkg/logger"
	pkgEvents "sharecycle-be/pkg/events"

	"github.com/google/uuid"
)

// Event codes. They double as notification type codes.
const (
	RequestCreated    = "REQUEST_CREATED"
	RequestApproved   = "REQUEST_APPROVED"
	RequestRejected   = "REQUEST_REJECTED"
	RequestCancelled  = "REQUEST_CANCELLED"
	RequestCompleted  = "REQUEST_COMPLETED"
	PickupScheduled   = "PICKUP_SCHEDULED"
	DonationCancelled = "DONATION_CANCELLED"
)

// Publisher emits lifecycle events. Publishing is fire-and-forget: failures are
// logged and never undo the state change that triggered them.
type Publisher interface {
	PublishRequestCreated(ctx context.Context, request *entity.DonationRequest, donation *entity.Donation)
	PublishRequestApproved(ctx context.Context, request *entity.DonationRequest, donation *entity.Donation)
	PublishRequestRejected(ctx context.Context, request *entity.DonationRequest, donation *entity.Donation)
	PublishRequestCancelled(ctx context.Context, request *entity.DonationRequest, donation *entity.Donation)
	PublishRequestCompleted(ctx context.Context, request *entity.DonationRequest, donation *entity.Donation)
	PublishPickupScheduled(ctx context.Context, request *entity.DonationRequest, donation *entity.Donation, recipientId, actorId uuid.UUID)
	PublishDonationCancelled(ctx context.Context, request *entity.DonationRequest, donation *entity.Donation)
}

// NatsPublisher implements Publisher on top of the event bus.
type NatsPublisher struct {
	publisher pkgEvents.Publisher
	logger    logger.ILogger
}

func NewNatsPublisher(publisher pkgEvents.Publisher, logger logger.ILogger) *NatsPublisher {
	return &NatsPublisher{
		publisher: publisher,
		logger:    logger,
	}
}

func (p *NatsPublisher) PublishRequestCreated(ctx context.Context, request *entity.DonationRequest, donation *entity.Donation) {
	data := requestPayload(request, donation, request.DonorId, request.RequesterId)
	data["quantity"] = request.RequestedQuantity
	if request.Message != nil {
		data["message"] = *request.Message
	}
	p.publish(ctx, RequestCreated, data)
}

func (p *NatsPublisher) PublishRequestApproved(ctx context.Context, request *entity.DonationRequest, donation *entity.Donation) {
	data := requestPayload(request, donation, request.RequesterId, request.DonorId)
	quantity := request.RequestedQuantity
	if request.ApprovedQuantity != nil {
		quantity = *request.ApprovedQuantity
	}
	data["quantity"] = quantity
	p.publish(ctx, RequestApproved, data)
}

func (p *NatsPublisher) PublishRequestRejected(ctx context.Context, request *entity.DonationRequest, donation *entity.Donation) {
	data := requestPayload(request, donation, request.RequesterId, request.DonorId)
	data["reason"] = reasonOrDefault(request.RejectionReason)
	p.publish(ctx, RequestRejected, data)
}

func (p *NatsPublisher) PublishRequestCancelled(ctx context.Context, request *entity.DonationRequest, donation *entity.Donation) {
	p.publish(ctx, RequestCancelled, requestPayload(request, donation, request.DonorId, request.RequesterId))
}

func (p *NatsPublisher) PublishRequestCompleted(ctx context.Context, request *entity.DonationRequest, donation *entity.Donation) {
	p.publish(ctx, RequestCompleted, requestPayload(request, donation, request.RequesterId, request.DonorId))
}

func (p *NatsPublisher) PublishPickupScheduled(ctx context.Context, request *entity.DonationRequest, donation *entity.Donation, recipientId, actorId uuid.UUID) {
	data := requestPayload(request, donation, recipientId, actorId)
	if request.PickupScheduledAt != nil {
		data["pickup_at"] = request.PickupScheduledAt.Format(time.RFC3339)
	}
	p.publish(ctx, PickupScheduled, data)
}

func (p *NatsPublisher) PublishDonationCancelled(ctx context.Context, request *entity.DonationRequest, donation *entity.Donation) {
	data := requestPayload(request, donation, request.RequesterId, donation.OwnerId)
	data["reason"] = reasonOrDefault(request.RejectionReason)
	data["entity_type"] = "donation"
	data["entity_id"] = donation.Id.String()
	p.publish(ctx, DonationCancelled, data)
}

func (p *NatsPublisher) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if p.publisher == nil {
		return
	}

	now := time.Now()
	data["occurred_at"] = now.Format(time.RFC3339)
	evt := pkgEvents.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: now,
	}

	if err := p.publisher.Publish(ctx, evt); err != nil {
		p.logger.Error("EVENTS", "Failed to publish "+eventType+" event", map[string]interface{}{
			"error":     err.Error(),
			"entity_id": data["entity_id"],
		})
	}
}

// requestPayload carries user_id (the recipient of the notification) and
// actor_id (who caused it).
func requestPayload(request *entity.DonationRequest, donation *entity.Donation, recipientId, actorId uuid.UUID) map[string]interface{} {
	data := map[string]interface{}{
		"user_id":     recipientId.String(),
		"actor_id":    actorId.String(),
		"request_id":  request.Id.String(),
		"donation_id": request.DonationId.String(),
		"entity_type": "request",
		"entity_id":   request.Id.String(),
		"status":      string(request.Status),
	}
	if donation != nil {
		data["donation_title"] = donation.Title
	}
	return data
}

func reasonOrDefault(reason *string) string {
	if reason == nil || *reason == "" {
		return "no reason given"
	}
	return *reason
}
