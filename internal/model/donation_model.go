package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Donation struct {
	Id                 uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	OwnerId            uuid.UUID                   `gorm:"type:uuid;not null;index"`
	Title              string                      `gorm:"type:varchar(100);not null"`
	Description        string                      `gorm:"type:text;not null"`
	Category           string                      `gorm:"type:varchar(30);not null;index"`
	Quantity           int                         `gorm:"not null"`
	Condition          string                      `gorm:"type:varchar(20);not null"`
	Images             datatypes.JSONSlice[string]
	PickupAddress      string                      `gorm:"type:varchar(300);not null"`
	PickupCity         string                      `gorm:"type:varchar(100);not null;index"`
	PickupState        string                      `gorm:"type:varchar(50);not null"`
	PickupZipCode      string                      `gorm:"type:varchar(9);not null"`
	PickupInstructions *string                     `gorm:"type:varchar(500)"`
	PickupLatitude     *float64
	PickupLongitude    *float64
	ExpiryDate         *time.Time
	Status             string                      `gorm:"type:varchar(20);not null;default:'available';index:idx_donations_listing,priority:2"`
	IsActive           bool                        `gorm:"not null;default:true;index:idx_donations_listing,priority:1"`
	CreatedAt          time.Time                   `gorm:"autoCreateTime"`
	UpdatedAt          time.Time                   `gorm:"autoUpdateTime"`
}

func (Donation) TableName() string {
	return "donations"
}
