package models

import (
	"time"

	"gorm.io/gorm"
)

// Base model with an auto-increment key and timestamps
type Base struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SoftDelete marks a row deleted without removing it. gorm's DeletedAt scope
// hides these rows from every query that does not call Unscoped.
type SoftDelete struct {
	IsDeleted   bool           `gorm:"not null;default:false" json:"-"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	DeletedByID *uint          `json:"-"`
}

// SoftDeleteUpdates returns the column set that soft deletes a row.
func SoftDeleteUpdates(by uint, at time.Time) map[string]interface{} {
	return map[string]interface{}{
		"is_deleted":    true,
		"deleted_at":    at,
		"deleted_by_id": by,
		"updated_at":    at,
	}
}
