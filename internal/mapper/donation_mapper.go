package mapper

import (
	"time"

	"sharecycle-be/internal/entity"
	"sharecycle-be/internal/model"

	"gorm.io/datatypes"
)

type DonationMapper struct{}

func NewDonationMapper() *DonationMapper {
	return &DonationMapper{}
}

func (m *DonationMapper) ToEntity(d *model.Donation) *entity.Donation {
	if d == nil {
		return nil
	}

	var updatedAt *time.Time
	if !d.UpdatedAt.IsZero() {
		t := d.UpdatedAt
		updatedAt = &t
	}

	images := make([]string, 0, len(d.Images))
	images = append(images, d.Images...)

	return &entity.Donation{
		Id:                 d.Id,
		OwnerId:            d.OwnerId,
		Title:              d.Title,
		Description:        d.Description,
		Category:           entity.DonationCategory(d.Category),
		Quantity:           d.Quantity,
		Condition:          entity.DonationCondition(d.Condition),
		Images:             images,
		PickupAddress:      d.PickupAddress,
		PickupCity:         d.PickupCity,
		PickupState:        d.PickupState,
		PickupZipCode:      d.PickupZipCode,
		PickupInstructions: d.PickupInstructions,
		PickupLatitude:     d.PickupLatitude,
		PickupLongitude:    d.PickupLongitude,
		ExpiryDate:         d.ExpiryDate,
		Status:             entity.DonationStatus(d.Status),
		IsActive:           d.IsActive,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          updatedAt,
	}
}

func (m *DonationMapper) ToModel(d *entity.Donation) *model.Donation {
	if d == nil {
		return nil
	}

	var updatedAt time.Time
	if d.UpdatedAt != nil {
		updatedAt = *d.UpdatedAt
	}

	images := datatypes.JSONSlice[string]{}
	images = append(images, d.Images...)

	return &model.Donation{
		Id:                 d.Id,
		OwnerId:            d.OwnerId,
		Title:              d.Title,
		Description:        d.Description,
		Category:           string(d.Category),
		Quantity:           d.Quantity,
		Condition:          string(d.Condition),
		Images:             images,
		PickupAddress:      d.PickupAddress,
		PickupCity:         d.PickupCity,
		PickupState:        d.PickupState,
		PickupZipCode:      d.PickupZipCode,
		PickupInstructions: d.PickupInstructions,
		PickupLatitude:     d.PickupLatitude,
		PickupLongitude:    d.PickupLongitude,
		ExpiryDate:         d.ExpiryDate,
		Status:             string(d.Status),
		IsActive:           d.IsActive,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          updatedAt,
	}
}

func (m *DonationMapper) ToEntities(donations []*model.Donation) []*entity.Donation {
	entities := make([]*entity.Donation, len(donations))
	for i, d := range donations {
		entities[i] = m.ToEntity(d)
	}
	return entities
}
