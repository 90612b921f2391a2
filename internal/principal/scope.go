package principal

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OwnedBy returns a GORM scope that filters rows by user_id.
func OwnedBy(userID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}
