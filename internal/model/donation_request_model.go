package model

import (
	"time"

	"github.com/google/uuid"
)

// PendingRequestIndexSQL backs the one-pending-request-per-requester rule at the
// database level. GORM tags cannot express a partial unique index portably.
const PendingRequestIndexSQL = `CREATE UNIQUE INDEX IF NOT EXISTS ux_donation_requests_pending
	ON donation_requests (donation_id, requester_id) WHERE status = 'pending'`

type DonationRequest struct {
	Id                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	DonationId        uuid.UUID  `gorm:"type:uuid;not null;index:idx_donation_requests_donation_status,priority:1"`
	Donation          *Donation  `gorm:"foreignKey:DonationId;references:Id;constraint:OnDelete:RESTRICT"`
	DonorId           uuid.UUID  `gorm:"type:uuid;not null;index"`
	RequesterId       uuid.UUID  `gorm:"type:uuid;not null;index"`
	Message           *string    `gorm:"type:text"`
	RequestedQuantity int        `gorm:"not null;default:1"`
	ApprovedQuantity  *int
	RejectionReason   *string    `gorm:"type:text"`
	Status            string     `gorm:"type:varchar(20);not null;default:'pending';index:idx_donation_requests_donation_status,priority:2"`
	CreatedAt         time.Time  `gorm:"autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime"`
	PickupScheduledAt *time.Time
	PickupCompletedAt *time.Time
}

func (DonationRequest) TableName() string {
	return "donation_requests"
}
