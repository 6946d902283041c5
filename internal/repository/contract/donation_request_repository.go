package contract

import (
	"context"
	"time"

	"sharecycle-be/internal/entity"
	"sharecycle-be/internal/repository/specification"

	"github.com/google/uuid"
)

type DonationRequestRepository interface {
	Create(ctx context.Context, request *entity.DonationRequest) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DonationRequest, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DonationRequest, error)

	// TransitionStatus applies t only while the row is still in t.From.
	TransitionStatus(ctx context.Context, id uuid.UUID, t entity.RequestTransition) (bool, error)
	// RejectOpenForDonation rejects every pending or approved request of a donation
	// and returns the rows it changed.
	RejectOpenForDonation(ctx context.Context, donationId uuid.UUID, reason string) ([]*entity.DonationRequest, error)
	SchedulePickup(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}
