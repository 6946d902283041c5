// internal\entity\donation_entity.go
package entity

import (
	"time"

	"github.com/google/uuid"
)

type DonationStatus string

const (
	DonationStatusAvailable DonationStatus = "available"
	DonationStatusReserved  DonationStatus = "reserved"
	DonationStatusDelivered DonationStatus = "delivered"
	DonationStatusCancelled DonationStatus = "cancelled"
)

type DonationCategory string

const (
	CategoryFood            DonationCategory = "food"
	CategoryClothing        DonationCategory = "clothing"
	CategoryElectronics     DonationCategory = "electronics"
	CategoryFurniture       DonationCategory = "furniture"
	CategoryBooks           DonationCategory = "books"
	CategoryToys            DonationCategory = "toys"
	CategoryHouseholdItems  DonationCategory = "household_items"
	CategoryMedicine        DonationCategory = "medicine"
	CategoryHygieneProducts DonationCategory = "hygiene_products"
	CategoryOther           DonationCategory = "other"
)

// Categories lists every accepted category, in display order.
var Categories = []DonationCategory{
	CategoryFood,
	CategoryClothing,
	CategoryElectronics,
	CategoryFurniture,
	CategoryBooks,
	CategoryToys,
	CategoryHouseholdItems,
	CategoryMedicine,
	CategoryHygieneProducts,
	CategoryOther,
}

type DonationCondition string

const (
	ConditionNew         DonationCondition = "new"
	ConditionUsedGood    DonationCondition = "used_good"
	ConditionUsedFair    DonationCondition = "used_fair"
	ConditionNeedsRepair DonationCondition = "needs_repair"
)

type Donation struct {
	Id                 uuid.UUID
	OwnerId            uuid.UUID
	Title              string
	Description        string
	Category           DonationCategory
	Quantity           int
	Condition          DonationCondition
	Images             []string
	PickupAddress      string
	PickupCity         string
	PickupState        string
	PickupZipCode      string
	PickupInstructions *string
	PickupLatitude     *float64
	PickupLongitude    *float64
	ExpiryDate         *time.Time
	Status             DonationStatus
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          *time.Time
}

// AcceptsRequests reports whether new requests may be filed against the donation.
func (d *Donation) AcceptsRequests() bool {
	return d.IsActive && d.Status == DonationStatusAvailable
}

// CanBeCancelledByOwner is true while the donation has not reached a terminal status.
func (d *Donation) CanBeCancelledByOwner() bool {
	return d.IsActive && (d.Status == DonationStatusAvailable || d.Status == DonationStatusReserved)
}

func (d *Donation) HasCoordinates() bool {
	return d.PickupLatitude != nil && d.PickupLongitude != nil
}

func (d *Donation) IsOwnedBy(userId uuid.UUID) bool {
	return d.OwnerId == userId
}

// PickupAddressLine joins the address components into one geocodable line.
func (d *Donation) PickupAddressLine() string {
	return d.PickupAddress + ", " + d.PickupCity + ", " + d.PickupState + ", " + d.PickupZipCode
}

// AddressDiffers reports whether any pickup address component differs from other.
func (d *Donation) AddressDiffers(other *Donation) bool {
	return d.PickupAddress != other.PickupAddress ||
		d.PickupCity != other.PickupCity ||
		d.PickupState != other.PickupState ||
		d.PickupZipCode != other.PickupZipCode
}

func IsValidDonationStatus(s string) bool {
	switch DonationStatus(s) {
	case DonationStatusAvailable, DonationStatusReserved, DonationStatusDelivered, DonationStatusCancelled:
		return true
	}
	return false
}

func IsValidCategory(c string) bool {
	for _, known := range Categories {
		if string(known) == c {
			return true
		}
	}
	return false
}
