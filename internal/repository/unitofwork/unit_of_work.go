package unitofwork

import (
	"context"

	"sharecycle-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	DonationRepository() contract.DonationRepository
	DonationRequestRepository() contract.DonationRequestRepository
}
