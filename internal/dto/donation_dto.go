package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type CreateDonationRequest struct {
	Title              string     `json:"title" validate:"required,min=3,max=100"`
	Description        string     `json:"description" validate:"required,min=10,max=1000"`
	Category           string     `json:"category" validate:"required,oneof=food clothing electronics furniture books toys household_items medicine hygiene_products other"`
	Quantity           int        `json:"quantity" validate:"required,min=1,max=1000"`
	Condition          string     `json:"condition" validate:"required,oneof=new used_good used_fair needs_repair"`
	Images             []string   `json:"images" validate:"omitempty,max=5,dive,url"`
	PickupAddress      string     `json:"pickup_address" validate:"required,max=300"`
	PickupCity         string     `json:"pickup_city" validate:"required,max=100"`
	PickupState        string     `json:"pickup_state" validate:"required,min=2,max=50"`
	PickupZipCode      string     `json:"pickup_zip_code" validate:"required,zipcode"`
	PickupInstructions *string    `json:"pickup_instructions" validate:"omitempty,max=500"`
	ExpiryDate         *time.Time `json:"expiry_date" validate:"omitempty,notpast"`
}

// UpdateDonationRequest is a partial update; nil fields are left untouched.
type UpdateDonationRequest struct {
	Id                 uuid.UUID  `json:"-"`
	Title              *string    `json:"title" validate:"omitempty,min=3,max=100"`
	Description        *string    `json:"description" validate:"omitempty,min=10,max=1000"`
	Category           *string    `json:"category" validate:"omitempty,oneof=food clothing electronics furniture books toys household_items medicine hygiene_products other"`
	Quantity           *int       `json:"quantity" validate:"omitempty,min=1,max=1000"`
	Condition          *string    `json:"condition" validate:"omitempty,oneof=new used_good used_fair needs_repair"`
	Images             *[]string  `json:"images" validate:"omitempty,max=5,dive,url"`
	PickupAddress      *string    `json:"pickup_address" validate:"omitempty,min=1,max=300"`
	PickupCity         *string    `json:"pickup_city" validate:"omitempty,min=1,max=100"`
	PickupState        *string    `json:"pickup_state" validate:"omitempty,min=2,max=50"`
	PickupZipCode      *string    `json:"pickup_zip_code" validate:"omitempty,zipcode"`
	PickupInstructions *string    `json:"pickup_instructions" validate:"omitempty,max=500"`
	ExpiryDate         *time.Time `json:"expiry_date" validate:"omitempty,notpast"`
}

// Normalize trims free-text fields. It runs before validation so length
// bounds apply to the stored value.
func (r *CreateDonationRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.PickupAddress = strings.TrimSpace(r.PickupAddress)
	r.PickupCity = strings.TrimSpace(r.PickupCity)
	r.PickupState = strings.TrimSpace(r.PickupState)
	r.PickupZipCode = strings.TrimSpace(r.PickupZipCode)
	trimPtr(r.PickupInstructions)
}

func (r *UpdateDonationRequest) Normalize() {
	trimPtr(r.Title)
	trimPtr(r.Description)
	trimPtr(r.PickupAddress)
	trimPtr(r.PickupCity)
	trimPtr(r.PickupState)
	trimPtr(r.PickupZipCode)
	trimPtr(r.PickupInstructions)
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

type DonationResponse struct {
	Id                 uuid.UUID  `json:"id"`
	OwnerId            uuid.UUID  `json:"owner_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Category           string     `json:"category"`
	Quantity           int        `json:"quantity"`
	Condition          string     `json:"condition"`
	Images             []string   `json:"images"`
	PickupAddress      string     `json:"pickup_address"`
	PickupCity         string     `json:"pickup_city"`
	PickupState        string     `json:"pickup_state"`
	PickupZipCode      string     `json:"pickup_zip_code"`
	PickupInstructions *string    `json:"pickup_instructions,omitempty"`
	PickupLatitude     *float64   `json:"pickup_latitude,omitempty"`
	PickupLongitude    *float64   `json:"pickup_longitude,omitempty"`
	ExpiryDate         *time.Time `json:"expiry_date,omitempty"`
	Status             string     `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at"`
	DistanceKm         *float64   `json:"distance_km,omitempty"`
	DistanceLabel      *string    `json:"distance_label,omitempty"`
}

// ListDonationsQuery is bound from the query string of GET /donations.
type ListDonationsQuery struct {
	Search    string   `query:"search" validate:"omitempty,max=100"`
	Category  string   `query:"category" validate:"omitempty,oneof=food clothing electronics furniture books toys household_items medicine hygiene_products other"`
	City      string   `query:"city" validate:"omitempty,max=100"`
	OrderBy   string   `query:"orderBy" validate:"omitempty,oneof=newest oldest title category distance"`
	Page      int      `query:"page" validate:"omitempty,min=1,max=100000"`
	Latitude  *float64 `query:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude *float64 `query:"longitude" validate:"omitempty,min=-180,max=180"`
}

type DonationListResponse struct {
	Items    []*DonationResponse `json:"items"`
	Total    int64               `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
	HasNext  bool                `json:"has_next"`
}

// ListingInvalidationMessage is published on the listing topic after every
// write that can change what GET /donations returns.
type ListingInvalidationMessage struct {
	DonationId uuid.UUID `json:"donation_id"`
	Reason     string    `json:"reason"`
}
