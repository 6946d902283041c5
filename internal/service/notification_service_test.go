package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	internalEvents "sharecycle-be/internal/events"
	"sharecycle-be/internal/model"
	"sharecycle-be/internal/pkg/apperror"
	"sharecycle-be/internal/pkg/logger"
	"sharecycle-be/internal/repository/implementation"
	"sharecycle-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedDelivery struct {
	mu   sync.Mutex
	sent map[uuid.UUID][]model.Notification
}

func (c *capturedDelivery) Send(userID uuid.UUID, n model.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sent == nil {
		c.sent = map[uuid.UUID][]model.Notification{}
	}
	c.sent[userID] = append(c.sent[userID], n)
}

func TestNotificationServiceHandlesLifecycleEvents(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	delivery := &capturedDelivery{}
	notifications := NewNotificationService(implementation.NewNotificationRepository(env.db), nil, delivery, logger.NewNopLogger())

	owner, requester := uuid.New(), uuid.New()
	d := env.createDonation(t, owner, "Winter coats")
	r := env.createRequest(t, requester, d.Id, 3)
	_, err := env.requests.Reject(ctx, owner, r.Id, nil)
	require.NoError(t, err)

	for _, evt := range env.recorder.Events() {
		require.NoError(t, notifications.HandleEvent(ctx, evt))
	}

	donorInbox, err := notifications.GetNotifications(ctx, owner, 10, 0)
	require.NoError(t, err)
	require.Len(t, donorInbox.Items, 1)
	created := donorInbox.Items[0]
	assert.Equal(t, internalEvents.RequestCreated, created.TypeCode)
	assert.Contains(t, created.Message, "3")
	assert.Contains(t, created.Message, "Winter coats")
	require.NotNil(t, created.ActorID)
	assert.Equal(t, requester, *created.ActorID)
	assert.Equal(t, "request", created.EntityType)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(created.Metadata, &meta))
	assert.Equal(t, "/requests/"+r.Id.String(), meta["action_url"])

	requesterInbox, err := notifications.GetNotifications(ctx, requester, 10, 0)
	require.NoError(t, err)
	require.Len(t, requesterInbox.Items, 1)
	assert.Equal(t, internalEvents.RequestRejected, requesterInbox.Items[0].TypeCode)
	assert.Contains(t, requesterInbox.Items[0].Message, "no reason given")

	assert.Len(t, delivery.sent[owner], 1)
	assert.Len(t, delivery.sent[requester], 1)
}

func TestNotificationServiceSkipsUnknownAndUnaddressedEvents(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	notifications := NewNotificationService(implementation.NewNotificationRepository(env.db), nil, nil, logger.NewNopLogger())
	user := uuid.New()

	require.NoError(t, notifications.HandleEvent(ctx, events.BaseEvent{
		Type: "SOMETHING_ELSE",
		Data: map[string]interface{}{"user_id": user.String()},
	}))
	require.NoError(t, notifications.HandleEvent(ctx, events.BaseEvent{
		Type: internalEvents.RequestApproved,
		Data: map[string]interface{}{"user_id": "not-a-uuid"},
	}))

	count, err := notifications.GetUnreadCount(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNotificationReadState(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	notifications := NewNotificationService(implementation.NewNotificationRepository(env.db), nil, nil, logger.NewNopLogger())
	user, stranger := uuid.New(), uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, notifications.HandleEvent(ctx, events.BaseEvent{
			Type:       "sharecycle.events." + internalEvents.RequestApproved,
			Data:       map[string]interface{}{"user_id": user.String(), "quantity": 1, "donation_title": "Chairs"},
			OccurredAt: time.Now(),
		}))
	}

	count, err := notifications.GetUnreadCount(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	inbox, err := notifications.GetNotifications(ctx, user, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, 20, inbox.Limit)
	assert.Equal(t, 0, inbox.Offset)
	require.Len(t, inbox.Items, 3)

	first := inbox.Items[0].ID
	err = notifications.MarkAsRead(ctx, stranger, first)
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))

	require.NoError(t, notifications.MarkAsRead(ctx, user, first))
	count, err = notifications.GetUnreadCount(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	updated, err := notifications.MarkAllAsRead(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)
}
