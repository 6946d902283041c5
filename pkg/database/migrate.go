package database

import (
	"fmt"

	"sharecycle-be/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Models lists every table owned by the service, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.Donation{},
		&model.DonationRequest{},
		&model.NotificationType{},
		&model.Notification{},
	}
}

// Migrate creates the schema. The partial unique index is plain SQL that both
// postgres and sqlite accept.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec(model.PendingRequestIndexSQL).Error; err != nil {
		return fmt.Errorf("create pending request index: %w", err)
	}
	return nil
}

// DefaultNotificationTypes are the inbox templates for lifecycle events.
// Placeholders are filled from the event payload.
func DefaultNotificationTypes() []model.NotificationType {
	return []model.NotificationType{
		{
			Code:        "REQUEST_CREATED",
			DisplayName: "New Donation Request",
			Template:    "Someone asked for {quantity} of \"{donation_title}\"",
			Priority:    "HIGH",
			IsActive:    true,
		},
		{
			Code:        "REQUEST_APPROVED",
			DisplayName: "Request Approved",
			Template:    "Your request for \"{donation_title}\" was approved ({quantity} item(s))",
			Priority:    "HIGH",
			IsActive:    true,
		},
		{
			Code:        "REQUEST_REJECTED",
			DisplayName: "Request Rejected",
			Template:    "Your request for \"{donation_title}\" was rejected: {reason}",
			Priority:    "MEDIUM",
			IsActive:    true,
		},
		{
			Code:        "REQUEST_CANCELLED",
			DisplayName: "Request Cancelled",
			Template:    "A request for \"{donation_title}\" was cancelled by the requester",
			Priority:    "LOW",
			IsActive:    true,
		},
		{
			Code:        "REQUEST_COMPLETED",
			DisplayName: "Donation Delivered",
			Template:    "\"{donation_title}\" was marked as delivered",
			Priority:    "MEDIUM",
			IsActive:    true,
		},
		{
			Code:        "PICKUP_SCHEDULED",
			DisplayName: "Pickup Scheduled",
			Template:    "Pickup for \"{donation_title}\" scheduled at {pickup_at}",
			Priority:    "HIGH",
			IsActive:    true,
		},
		{
			Code:        "DONATION_CANCELLED",
			DisplayName: "Donation Cancelled",
			Template:    "\"{donation_title}\" is no longer available: {reason}",
			Priority:    "MEDIUM",
			IsActive:    true,
		},
	}
}

// SeedNotificationTypes upserts the default templates by code.
func SeedNotificationTypes(db *gorm.DB) error {
	types := DefaultNotificationTypes()
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "template", "priority", "is_active", "updated_at"}),
	}).Create(&types).Error
}
