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

// donationMutableColumns are the columns an owner edit may write.
// Status and is_active only change through the guarded updates below.
var donationMutableColumns = []string{
	"title", "description", "category", "quantity", "condition", "images",
	"pickup_address", "pickup_city", "pickup_state", "pickup_zip_code", "pickup_instructions",
	"pickup_latitude", "pickup_longitude", "expiry_date", "updated_at",
}

type DonationRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DonationMapper
}

func NewDonationRepository(db *gorm.DB) contract.DonationRepository {
	return &DonationRepositoryImpl{
		db:     db,
		mapper: mapper.NewDonationMapper(),
	}
}

func (r *DonationRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DonationRepositoryImpl) Create(ctx context.Context, donation *entity.Donation) error {
	if donation.Id == uuid.Nil {
		donation.Id = uuid.New()
	}
	m := r.mapper.ToModel(donation)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*donation = *r.mapper.ToEntity(m)
	return nil
}

func (r *DonationRepositoryImpl) Update(ctx context.Context, donation *entity.Donation) error {
	m := r.mapper.ToModel(donation)
	m.UpdatedAt = time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.Donation{Id: donation.Id}).
		Select(donationMutableColumns).
		Updates(m)
	if result.Error != nil {
		return result.Error
	}
	updatedAt := m.UpdatedAt
	donation.UpdatedAt = &updatedAt
	return nil
}

func (r *DonationRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Donation, error) {
	var m model.Donation
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *DonationRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Donation, error) {
	var models []*model.Donation
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *DonationRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Donation{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DonationRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, from []entity.DonationStatus, to entity.DonationStatus) (bool, error) {
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}

	result := r.db.WithContext(ctx).
		Model(&model.Donation{}).
		Where("id = ? AND is_active = ? AND status IN ?", id, true, allowed).
		Updates(map[string]interface{}{
			"status":     string(to),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ReleaseReservation re-checks approved requests inside the same statement that flips
// the status, so a concurrent approval can never be left without a reservation.
func (r *DonationRepositoryImpl) ReleaseReservation(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`UPDATE donations SET status = ?, updated_at = ?
		WHERE id = ? AND status = ? AND is_active = ?
		AND NOT EXISTS (SELECT 1 FROM donation_requests WHERE donation_id = ? AND status = ?)`,
		string(entity.DonationStatusAvailable), time.Now(),
		id, string(entity.DonationStatusReserved), true,
		id, string(entity.RequestStatusApproved),
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *DonationRepositoryImpl) Deactivate(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Donation{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
