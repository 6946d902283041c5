// internal\entity\donation_request_entity.go
package entity

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusCancelled RequestStatus = "cancelled"
	RequestStatusDelivered RequestStatus = "delivered"
)

func IsValidRequestStatus(s string) bool {
	switch RequestStatus(s) {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected, RequestStatusCancelled, RequestStatusDelivered:
		return true
	}
	return false
}

type DonationRequest struct {
	Id                uuid.UUID
	DonationId        uuid.UUID
	DonorId           uuid.UUID // snapshot of the donation owner at creation time
	RequesterId       uuid.UUID
	Message           *string
	RequestedQuantity int
	ApprovedQuantity  *int
	RejectionReason   *string
	Status            RequestStatus
	CreatedAt         time.Time
	UpdatedAt         *time.Time
	PickupScheduledAt *time.Time
	PickupCompletedAt *time.Time
}

func (r *DonationRequest) CanApprove() bool {
	return r.Status == RequestStatusPending
}

// CanReject allows pending requests and revoking an approval.
func (r *DonationRequest) CanReject() bool {
	return r.Status == RequestStatusPending || r.Status == RequestStatusApproved
}

func (r *DonationRequest) CanCancel() bool {
	return r.Status == RequestStatusPending || r.Status == RequestStatusApproved
}

func (r *DonationRequest) CanComplete() bool {
	return r.Status == RequestStatusApproved
}

func (r *DonationRequest) CanSchedulePickup() bool {
	return r.Status == RequestStatusApproved
}

// HoldsReservation is true while the request keeps its donation reserved.
func (r *DonationRequest) HoldsReservation() bool {
	return r.Status == RequestStatusApproved
}

func (r *DonationRequest) IsParticipant(userId uuid.UUID) bool {
	return r.DonorId == userId || r.RequesterId == userId
}

// RequestTransition is a conditional status change: it only applies while the
// stored status still equals From.
type RequestTransition struct {
	From              RequestStatus
	To                RequestStatus
	ApprovedQuantity  *int
	RejectionReason   *string
	PickupCompletedAt *time.Time
}
