package scope

import "gorm.io/gorm"

func OrderByCreatedDesc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC")
}

func OrderByCreatedAsc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

// OrderByTitle sorts alphabetically, newest first among equal titles.
func OrderByTitle(db *gorm.DB) *gorm.DB {
	return db.Order("LOWER(title) ASC").Order("created_at DESC")
}

func OrderByCategoryThenNewest(db *gorm.DB) *gorm.DB {
	return db.Order("category ASC").Order("created_at DESC")
}
