package specification

import (
	"sharecycle-be/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByDonationID struct {
	DonationID uuid.UUID
}

func (s ByDonationID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("donation_id = ?", s.DonationID)
}

type ByRequester struct {
	RequesterID uuid.UUID
}

func (s ByRequester) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("requester_id = ?", s.RequesterID)
}

type ByDonor struct {
	DonorID uuid.UUID
}

func (s ByDonor) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("donor_id = ?", s.DonorID)
}

type ByRequestStatus struct {
	Statuses []entity.RequestStatus
}

func (s ByRequestStatus) Apply(db *gorm.DB) *gorm.DB {
	statuses := make([]string, len(s.Statuses))
	for i, st := range s.Statuses {
		statuses[i] = string(st)
	}
	return db.Where("status IN ?", statuses)
}

func RequestStatusIn(statuses ...entity.RequestStatus) Specification {
	return ByRequestStatus{Statuses: statuses}
}
