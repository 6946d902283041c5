package scope

import "gorm.io/gorm"

// AvailableForListing restricts to donations that are active and still available.
func AvailableForListing(db *gorm.DB) *gorm.DB {
	return db.Where("is_active = ? AND status = ?", true, "available")
}
