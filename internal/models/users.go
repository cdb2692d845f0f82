package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the owner of a drive tree. Rows are created and updated by the
// external identity provider's webhook sync; this service only reads them
// to resolve the authenticated subject to a local owner id.
type User struct {
	ID         int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ExternalID string `gorm:"type:text;not null;uniqueIndex" json:"external_id"`
	Username   string `gorm:"type:text;not null;uniqueIndex" json:"username"`
	Email      string `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}
