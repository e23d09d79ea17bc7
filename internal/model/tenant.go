package model

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the isolation boundary. Every other entity carries a TenantID and
// all data access is scoped to exactly one tenant per logical session.
type Tenant struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is a physical location within a tenant. Receipt numbers and inventory
// are scoped per store.
type Store struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"not null"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
