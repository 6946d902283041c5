package contract

import (
	"context"

	"sharecycle-be/internal/entity"
	"sharecycle-be/internal/repository/specification"

	"github.com/google/uuid"
)

type DonationRepository interface {
	Create(ctx context.Context, donation *entity.Donation) error
	Update(ctx context.Context, donation *entity.Donation) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Donation, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Donation, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// UpdateStatus moves an active donation to `to` only while its status is one of `from`.
	// It reports false when no row matched.
	UpdateStatus(ctx context.Context, id uuid.UUID, from []entity.DonationStatus, to entity.DonationStatus) (bool, error)
	// ReleaseReservation flips reserved back to available when no approved request remains.
	ReleaseReservation(ctx context.Context, id uuid.UUID) (bool, error)
	Deactivate(ctx context.Context, id uuid.UUID) (bool, error)
}
