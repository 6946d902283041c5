package service

import (
	"context"
	"encoding/json"

	"sharecycle-be/internal/dto"
	"sharecycle-be/internal/pkg/logger"
	"sharecycle-be/internal/repository/memory"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drops cached listing pages whenever a donation or request
// changes.
type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	cache     *memory.ListingCache
	logger    logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	cache *memory.ListingCache,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		cache:     cache,
		logger:    log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	var payload dto.ListingInvalidationMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		// malformed messages still flush; a stale page is worse than a miss
		cs.logger.Warn("LISTING_CACHE", "Invalid invalidation message", map[string]interface{}{"error": err.Error()})
	}

	if cs.cache != nil {
		cs.cache.Flush()
	}
	cs.logger.Debug("LISTING_CACHE", "Listing cache flushed", map[string]interface{}{
		"donation_id": payload.DonationId,
		"reason":      payload.Reason,
	})
	msg.Ack()
}

// listingInvalidator is the write side used by the donation and request services.
// The local cache is flushed before the write returns; the bus message reaches
// the remaining subscribers.
type listingInvalidator struct {
	cache     *memory.ListingCache
	publisher IPublisherService
	logger    logger.ILogger
}

func (li listingInvalidator) invalidate(ctx context.Context, payload dto.ListingInvalidationMessage) {
	if li.cache != nil {
		li.cache.Flush()
	}
	if li.publisher == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := li.publisher.Publish(ctx, data); err != nil {
		li.logger.Warn("LISTING_CACHE", "Failed to publish invalidation", map[string]interface{}{
			"error":       err.Error(),
			"donation_id": payload.DonationId,
		})
	}
}
