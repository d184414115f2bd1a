// internal/storage/models/base.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel is gorm.Model with UTC timestamps set by the store.
type BaseModel struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
