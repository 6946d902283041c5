package service

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"sharecycle-be/internal/dto"
	"sharecycle-be/internal/entity"
	"sharecycle-be/internal/events"
	"sharecycle-be/internal/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestHappyPath(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	owner, requester := uuid.New(), uuid.New()

	d := env.createDonation(t, owner, "Winter coats")
	r := env.createRequest(t, requester, d.Id, 3)
	assert.Equal(t, "pending", r.Status)
	assert.Equal(t, owner, r.DonorId)

	approved, err := env.requests.Approve(ctx, owner, r.Id, &dto.ApproveRequestRequest{ApprovedQuantity: intPtr(2)})
	require.NoError(t, err)

	assert.Equal(t, "approved", approved.Status)
	require.NotNil(t, approved.ApprovedQuantity)
	assert.Equal(t, 2, *approved.ApprovedQuantity)
	assert.Equal(t, "reserved", env.donationStatus(t, d.Id))

	stored, err := env.requests.Show(ctx, requester, r.Id)
	require.NoError(t, err)
	assert.Equal(t, 2, *stored.ApprovedQuantity)

	assert.Equal(t, []string{events.RequestCreated, events.RequestApproved}, env.recorder.Types())
}

func TestCreateRequestRejectsSelfRequestInAnyStatus(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	owner, other := uuid.New(), uuid.New()

	d := env.createDonation(t, owner, "Bookshelf")

	_, err := env.requests.Create(ctx, owner, &dto.CreateRequestRequest{DonationId: d.Id})
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))

	r := env.createRequest(t, other, d.Id, 1)
	_, err = env.requests.Approve(ctx, owner, r.Id, nil)
	require.NoError(t, err)

	// reserved donation still reports the self-request first
	_, err = env.requests.Create(ctx, owner, &dto.CreateRequestRequest{DonationId: d.Id})
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
	assert.Equal(t, apperror.ReasonOwnDonation, apperror.ReasonOf(err))
}

func TestCreateRequestDuplicatePending(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	owner, requester := uuid.New(), uuid.New()

	d := env.createDonation(t, owner, "Toy box")
	first := env.createRequest(t, requester, d.Id, 1)

	_, err := env.requests.Create(ctx, requester, &dto.CreateRequestRequest{DonationId: d.Id})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeConflict))
	assert.Equal(t, apperror.ReasonDuplicatePending, apperror.ReasonOf(err))

	// once the first resolves a new request is allowed
	_, err = env.requests.Cancel(ctx, requester, first.Id)
	require.NoError(t, err)
	env.createRequest(t, requester, d.Id, 1)
}

func TestCreateRequestValidation(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	owner, requester := uuid.New(), uuid.New()
	d := env.createDonation(t, owner, "Kitchen set")

	tests := []struct {
		name   string
		req    *dto.CreateRequestRequest
		code   apperror.Code
		reason string
	}{
		{
			name:   "zero quantity",
			req:    &dto.CreateRequestRequest{DonationId: d.Id, RequestedQuantity: intPtr(0)},
			code:   apperror.CodeValidation,
			reason: apperror.ReasonInvalidQuantity,
		},
		{
			name:   "more than donated",
			req:    &dto.CreateRequestRequest{DonationId: d.Id, RequestedQuantity: intPtr(6)},
			code:   apperror.CodeValidation,
			reason: apperror.ReasonInvalidQuantity,
		},
		{
			name:   "unknown donation",
			req:    &dto.CreateRequestRequest{DonationId: uuid.New()},
			code:   apperror.CodeNotFound,
			reason: apperror.ReasonDonationNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.requests.Create(ctx, requester, tt.req)
			require.Error(t, err)
			assert.True(t, apperror.IsCode(err, tt.code))
			assert.Equal(t, tt.reason, apperror.ReasonOf(err))
		})
	}
}

func TestRejectRevertsAvailability(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	owner, u1, u2 := uuid.New(), uuid.New(), uuid.New()

	d := env.createDonation(t, owner, "Stroller")
	r1 := env.createRequest(t, u1, d.Id, 1)
	r2 := env.createRequest(t, u2, d.Id, 1)

	_, err := env.requests.Approve(ctx, owner, r1.Id, nil)
	require.NoError(t, err)
	assert.Equal(t, "reserved", env.donationStatus(t, d.Id))

	rejected, err := env.requests.Reject(ctx, owner, r1.Id, &dto.RejectRequestRequest{RejectionReason: strPtr("changed my mind")})
	require.NoError(t, err)
	assert.Equal(t, "rejected", rejected.Status)
	assert.Equal(t, "available", env.donationStatus(t, d.Id))

	still, err := env.requests.Show(ctx, u2, r2.Id)
	require.NoError(t, err)
	assert.Equal(t, "pending", still.Status)
}

func TestCancelAfterApprovalRevertsAvailability(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	owner, requester := uuid.New(), uuid.New()

	d := env.createDonation(t, owner, "Desk lamp")
	r := env.createRequest(t, requester, d.Id, 1)
	_, err := env.requests.Approve(ctx, owner, r.Id, nil)
	require.NoError(t, err)

	_, err = env.requests.Cancel(ctx, owner, r.Id)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))

	cancelled, err := env.requests.Cancel(ctx, requester, r.Id)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Equal(t, "available", env.donationStatus(t, d.Id))

	types := env.recorder.Types()
	assert.Equal(t, events.RequestCancelled, types[len(types)-1])
}

func TestUnavailableDonationBlocksNewRequests(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	owner, u1 := uuid.New(), uuid.New()

	d := env.createDonation(t, owner, "Crib")
	r := env.createRequest(t, u1, d.Id, 1)
	_, err := env.requests.Approve(ctx, owner, r.Id, nil)
	require.NoError(t, err)

	for _, requester := range []uuid.UUID{u1, uuid.New()} {
		_, err := env.requests.Create(ctx, requester, &dto.CreateRequestRequest{DonationId: d.Id})
		require.Error(t, err)
		assert.True(t, apperror.IsCode(err, apperror.CodeConflict))
		assert.Equal(t, apperror.ReasonDonationUnavailable, apperror.ReasonOf(err))
	}
}

func TestApproveSecondRequestConflicts(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	owner := uuid.New()

	d := env.createDonation(t, owner, "Bicycle")
	r1 := env.createRequest(t, uuid.New(), d.Id, 1)
	r2 := env.createRequest(t, uuid.New(), d.Id, 1)

	_, err := env.requests.Approve(ctx, owner, r1.Id, nil)
	require.NoError(t, err)

	_, err = env.requests.Approve(ctx, owner, r2.Id, nil)
	require.Error(t, err)
	assert.Equal(t, apperror.ReasonDonationReserved, apperror.ReasonOf(err))

	// the failed approval rolled back
	r2After, err := env.requests.Show(ctx, owner, r2.Id)
	require.NoError(t, err)
	assert.Equal(t, "pending", r2After.Status)
	assert.Nil(t, r2After.ApprovedQuantity)
}

func TestConcurrentApprovalsReserveOnce(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	owner := uuid.New()

	d := env.createDonation(t, owner, "Sofa")
	ids := make([]uuid.UUID, 5)
	for i := range ids {
		ids[i] = env.createRequest(t, uuid.New(), d.Id, 1).Id
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			if _, err := env.requests.Approve(ctx, owner, id, nil); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, "reserved", env.donationStatus(t, d.Id))

	received, err := env.requests.ListReceived(ctx, owner, "approved")
	require.NoError(t, err)
	assert.Len(t, received, 1)
}

func TestTransitionGuards(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	owner, requester := uuid.New(), uuid.New()

	d := env.createDonation(t, owner, "Blender")
	r := env.createRequest(t, requester, d.Id, 2)

	_, err := env.requests.Approve(ctx, requester, r.Id, nil)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))

	_, err = env.requests.Approve(ctx, owner, r.Id, &dto.ApproveRequestRequest{ApprovedQuantity: intPtr(3)})
	assert.Equal(t, apperror.ReasonInvalidQuantity, apperror.ReasonOf(err))

	_, err = env.requests.Complete(ctx, owner, r.Id)
	assert.Equal(t, apperror.ReasonInvalidTransition, apperror.ReasonOf(err))

	_, err = env.requests.Reject(ctx, owner, r.Id, nil)
	require.NoError(t, err)

	_, err = env.requests.Approve(ctx, owner, r.Id, nil)
	assert.True(t, apperror.IsCode(err, apperror.CodeConflict))
	assert.Equal(t, apperror.ReasonInvalidTransition, apperror.ReasonOf(err))

	_, err = env.requests.Cancel(ctx, requester, r.Id)
	assert.Equal(t, apperror.ReasonInvalidTransition, apperror.ReasonOf(err))

	_, err = env.requests.Show(ctx, uuid.New(), r.Id)
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))
}

func TestCompleteDeliversDonation(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	owner, requester := uuid.New(), uuid.New()

	d := env.createDonation(t, owner, "Rice bags")
	r := env.createRequest(t, requester, d.Id, 1)
	_, err := env.requests.Approve(ctx, owner, r.Id, nil)
	require.NoError(t, err)

	done, err := env.requests.Complete(ctx, owner, r.Id)
	require.NoError(t, err)
	assert.Equal(t, "delivered", done.Status)
	assert.NotNil(t, done.PickupCompletedAt)
	assert.Equal(t, "delivered", env.donationStatus(t, d.Id))

	_, err = env.requests.Create(ctx, uuid.New(), &dto.CreateRequestRequest{DonationId: d.Id})
	assert.Equal(t, apperror.ReasonDonationDelivered, apperror.ReasonOf(err))
}

func TestSchedulePickup(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	owner, requester := uuid.New(), uuid.New()

	d := env.createDonation(t, owner, "Chairs")
	r := env.createRequest(t, requester, d.Id, 1)

	at := time.Now().Add(48 * time.Hour).Truncate(time.Second)
	_, err := env.requests.SchedulePickup(ctx, requester, r.Id, &dto.SchedulePickupRequest{PickupAt: at})
	assert.Equal(t, apperror.ReasonInvalidTransition, apperror.ReasonOf(err))

	_, err = env.requests.Approve(ctx, owner, r.Id, nil)
	require.NoError(t, err)

	_, err = env.requests.SchedulePickup(ctx, requester, r.Id, &dto.SchedulePickupRequest{PickupAt: time.Now().Add(-time.Hour)})
	assert.Equal(t, apperror.ReasonInvalidSchedule, apperror.ReasonOf(err))

	// outsiders cannot tell the request exists
	stranger := uuid.New()
	_, err = env.requests.SchedulePickup(ctx, stranger, r.Id, &dto.SchedulePickupRequest{PickupAt: at})
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))
	assert.Equal(t, apperror.ReasonRequestNotFound, apperror.ReasonOf(err))
	_, showErr := env.requests.Show(ctx, stranger, r.Id)
	assert.Equal(t, apperror.ReasonOf(showErr), apperror.ReasonOf(err))

	env.recorder.Reset()
	scheduled, err := env.requests.SchedulePickup(ctx, requester, r.Id, &dto.SchedulePickupRequest{PickupAt: at})
	require.NoError(t, err)
	require.NotNil(t, scheduled.PickupScheduledAt)
	assert.True(t, at.Equal(*scheduled.PickupScheduledAt))

	recorded := env.recorder.Events()
	require.Len(t, recorded, 1)
	assert.Equal(t, events.PickupScheduled, recorded[0].EventType())
	data := recorded[0].Payload()
	assert.Equal(t, owner.String(), data["user_id"])
}

func TestListRequests(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	owner, requester := uuid.New(), uuid.New()

	d1 := env.createDonation(t, owner, "Jacket")
	d2 := env.createDonation(t, owner, "Boots")
	r1 := env.createRequest(t, requester, d1.Id, 1)
	env.createRequest(t, requester, d2.Id, 1)
	env.createRequest(t, uuid.New(), d1.Id, 1)

	_, err := env.requests.Approve(ctx, owner, r1.Id, nil)
	require.NoError(t, err)

	sent, err := env.requests.ListSent(ctx, requester, "")
	require.NoError(t, err)
	assert.Len(t, sent, 2)

	pending, err := env.requests.ListSent(ctx, requester, "pending")
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	received, err := env.requests.ListReceived(ctx, owner, "")
	require.NoError(t, err)
	assert.Len(t, received, 3)

	_, err = env.requests.ListReceived(ctx, owner, "lost")
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	forDonation, err := env.requests.ListForDonation(ctx, owner, d1.Id)
	require.NoError(t, err)
	assert.Len(t, forDonation, 2)

	_, err = env.requests.ListForDonation(ctx, requester, d1.Id)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
}

// Random approve/reject/cancel sequences must keep the donation reserved
// exactly while some request is approved.
func TestReservationTracksApprovedRequests(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 5; round++ {
		owner := uuid.New()
		d := env.createDonation(t, owner, "Round donation")

		type participant struct {
			requester uuid.UUID
			requestId uuid.UUID
		}
		parts := make([]participant, 4)
		for i := range parts {
			requester := uuid.New()
			parts[i] = participant{requester: requester, requestId: env.createRequest(t, requester, d.Id, 1).Id}
		}

		for step := 0; step < 20; step++ {
			p := parts[rng.Intn(len(parts))]
			switch rng.Intn(3) {
			case 0:
				_, _ = env.requests.Approve(ctx, owner, p.requestId, nil)
			case 1:
				_, _ = env.requests.Reject(ctx, owner, p.requestId, nil)
			case 2:
				_, _ = env.requests.Cancel(ctx, p.requester, p.requestId)
			}

			approved, err := env.requests.ListForDonation(ctx, owner, d.Id)
			require.NoError(t, err)
			anyApproved := false
			for _, r := range approved {
				if r.Status == string(entity.RequestStatusApproved) {
					anyApproved = true
				}
			}
			assert.Equal(t, anyApproved, env.donationStatus(t, d.Id) == "reserved", "round %d step %d", round, step)
		}
	}
}
