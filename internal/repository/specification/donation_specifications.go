package specification

import (
	"sharecycle-be/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActiveDonations excludes soft-deleted donations. Every donation read path applies it.
type ActiveDonations struct{}

func (s ActiveDonations) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_active = ?", true)
}

type ByDonationStatus struct {
	Status entity.DonationStatus
}

func (s ByDonationStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", string(s.Status))
}

type OwnedBy struct {
	OwnerID uuid.UUID
}

func (s OwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("owner_id = ?", s.OwnerID)
}

type ByCategory struct {
	Category entity.DonationCategory
}

func (s ByCategory) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("category = ?", string(s.Category))
}

// CityContains matches the pickup city case-insensitively
type CityContains struct {
	City string
}

func (s CityContains) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("LOWER(pickup_city) LIKE ?"+likeEscape, containsPattern(s.City))
}

// DonationSearchQuery filters donations by title or description
type DonationSearchQuery struct {
	Query string
}

func (s DonationSearchQuery) Apply(db *gorm.DB) *gorm.DB {
	pattern := containsPattern(s.Query)
	return db.Where("(LOWER(title) LIKE ?"+likeEscape+" OR LOWER(description) LIKE ?"+likeEscape+")", pattern, pattern)
}
