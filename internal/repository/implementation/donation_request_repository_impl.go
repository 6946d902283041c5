package implementation

import (
	"context"
	"errors"
	"time"

	"sharecycle-be/internal/entity"
	"sharecycle-be/internal/mapper"
	"sharecycle-be/internal/model"
	"sharecycle-be/internal/repository/contract"
	"sharecycle-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DonationRequestRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DonationRequestMapper
}

func NewDonationRequestRepository(db *gorm.DB) contract.DonationRequestRepository {
	return &DonationRequestRepositoryImpl{
		db:     db,
		mapper: mapper.NewDonationRequestMapper(),
	}
}

func (r *DonationRequestRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DonationRequestRepositoryImpl) Create(ctx context.Context, request *entity.DonationRequest) error {
	if request.Id == uuid.Nil {
		request.Id = uuid.New()
	}
	m := r.mapper.ToModel(request)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*request = *r.mapper.ToEntity(m)
	return nil
}

func (r *DonationRequestRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DonationRequest, error) {
	var m model.DonationRequest
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *DonationRequestRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DonationRequest, error) {
	var models []*model.DonationRequest
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *DonationRequestRepositoryImpl) TransitionStatus(ctx context.Context, id uuid.UUID, t entity.RequestTransition) (bool, error) {
	updates := map[string]interface{}{
		"status":     string(t.To),
		"updated_at": time.Now(),
	}
	if t.ApprovedQuantity != nil {
		updates["approved_quantity"] = *t.ApprovedQuantity
	}
	if t.RejectionReason != nil {
		updates["rejection_reason"] = *t.RejectionReason
	}
	if t.PickupCompletedAt != nil {
		updates["pickup_completed_at"] = *t.PickupCompletedAt
	}

	result := r.db.WithContext(ctx).
		Model(&model.DonationRequest{}).
		Where("id = ? AND status = ?", id, string(t.From)).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *DonationRequestRepositoryImpl) RejectOpenForDonation(ctx context.Context, donationId uuid.UUID, reason string) ([]*entity.DonationRequest, error) {
	open, err := r.FindAll(ctx,
		specification.ByDonationID{DonationID: donationId},
		specification.RequestStatusIn(entity.RequestStatusPending, entity.RequestStatusApproved),
	)
	if err != nil {
		return nil, err
	}

	rejected := make([]*entity.DonationRequest, 0, len(open))
	for _, req := range open {
		ok, err := r.TransitionStatus(ctx, req.Id, entity.RequestTransition{
			From:            req.Status,
			To:              entity.RequestStatusRejected,
			RejectionReason: &reason,
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			// Already moved by someone else.
			continue
		}
		req.Status = entity.RequestStatusRejected
		req.RejectionReason = &reason
		rejected = append(rejected, req)
	}
	return rejected, nil
}

func (r *DonationRequestRepositoryImpl) SchedulePickup(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.DonationRequest{}).
		Where("id = ? AND status = ?", id, string(entity.RequestStatusApproved)).
		Updates(map[string]interface{}{
			"pickup_scheduled_at": at,
			"updated_at":          time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
