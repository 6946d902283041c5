package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateRequestRequest struct {
	DonationId        uuid.UUID `json:"donation_id" validate:"required"`
	Message           *string   `json:"message" validate:"omitempty,max=500"`
	RequestedQuantity *int      `json:"requested_quantity"`
}

type ApproveRequestRequest struct {
	ApprovedQuantity *int `json:"approved_quantity"`
}

type RejectRequestRequest struct {
	RejectionReason *string `json:"rejection_reason" validate:"omitempty,max=500"`
}

type SchedulePickupRequest struct {
	PickupAt time.Time `json:"pickup_at" validate:"required"`
}

type ListRequestsQuery struct {
	Status string `query:"status" validate:"omitempty,oneof=pending approved rejected cancelled delivered"`
}

type DonationRequestResponse struct {
	Id                uuid.UUID  `json:"id"`
	DonationId        uuid.UUID  `json:"donation_id"`
	DonorId           uuid.UUID  `json:"donor_id"`
	RequesterId       uuid.UUID  `json:"requester_id"`
	Message           *string    `json:"message,omitempty"`
	RequestedQuantity int        `json:"requested_quantity"`
	ApprovedQuantity  *int       `json:"approved_quantity,omitempty"`
	RejectionReason   *string    `json:"rejection_reason,omitempty"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at"`
	PickupScheduledAt *time.Time `json:"pickup_scheduled_at,omitempty"`
	PickupCompletedAt *time.Time `json:"pickup_completed_at,omitempty"`
}
