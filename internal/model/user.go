// Package model contains the persistent entities.
package model

import (
	"time"

	"github.com/google/uuid"
)

// User is the service's single aggregate. Email is unique among live rows;
// DeletedAt implements soft deletion (deleted rows stay out of all queries).
type User struct {
	ID        uuid.UUID  `json:"id"                  gorm:"primaryKey;type:uuid"`
	Name      string     `json:"name"                gorm:"not null"`
	Email     string     `json:"email"               gorm:"not null;uniqueIndex:idx_users_email,where:deleted_at IS NULL"`
	Active    bool       `json:"active"              gorm:"not null;default:true"`
	CreatedAt time.Time  `json:"createdAt"           gorm:"not null"`
	UpdatedAt time.Time  `json:"updatedAt"           gorm:"not null"`
	DeletedAt *time.Time `json:"deletedAt,omitempty" gorm:"index"`
}

func (User) TableName() string { return "users" }
