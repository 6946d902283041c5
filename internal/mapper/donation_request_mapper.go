package mapper

import (
	"time"

	"sharecycle-be/internal/entity"
	"sharecycle-be/internal/model"
)

type DonationRequestMapper struct{}

func NewDonationRequestMapper() *DonationRequestMapper {
	return &DonationRequestMapper{}
}

func (m *DonationRequestMapper) ToEntity(r *model.DonationRequest) *entity.DonationRequest {
	if r == nil {
		return nil
	}

	var updatedAt *time.Time
	if !r.UpdatedAt.IsZero() {
		t := r.UpdatedAt
		updatedAt = &t
	}

	return &entity.DonationRequest{
		Id:                r.Id,
		DonationId:        r.DonationId,
		DonorId:           r.DonorId,
		RequesterId:       r.RequesterId,
		Message:           r.Message,
		RequestedQuantity: r.RequestedQuantity,
		ApprovedQuantity:  r.ApprovedQuantity,
		RejectionReason:   r.RejectionReason,
		Status:            entity.RequestStatus(r.Status),
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         updatedAt,
		PickupScheduledAt: r.PickupScheduledAt,
		PickupCompletedAt: r.PickupCompletedAt,
	}
}

func (m *DonationRequestMapper) ToModel(r *entity.DonationRequest) *model.DonationRequest {
	if r == nil {
		return nil
	}

	var updatedAt time.Time
	if r.UpdatedAt != nil {
		updatedAt = *r.UpdatedAt
	}

	return &model.DonationRequest{
		Id:                r.Id,
		DonationId:        r.DonationId,
		DonorId:           r.DonorId,
		RequesterId:       r.RequesterId,
		Message:           r.Message,
		RequestedQuantity: r.RequestedQuantity,
		ApprovedQuantity:  r.ApprovedQuantity,
		RejectionReason:   r.RejectionReason,
		Status:            string(r.Status),
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         updatedAt,
		PickupScheduledAt: r.PickupScheduledAt,
		PickupCompletedAt: r.PickupCompletedAt,
	}
}

func (m *DonationRequestMapper) ToEntities(requests []*model.DonationRequest) []*entity.DonationRequest {
	entities := make([]*entity.DonationRequest, len(requests))
	for i, r := range requests {
		entities[i] = m.ToEntity(r)
	}
	return entities
}
