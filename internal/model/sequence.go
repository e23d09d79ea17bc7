package model

import (
	"time"

	"github.com/google/uuid"
)

// StoreSequence holds the last-issued receipt number for a store. Advanced
// with a single conditional increment inside the order transaction, so
// values issued to committed orders are strictly increasing and never
// reused. A rolled-back transaction may burn a number; gaps are fine.
type StoreSequence struct {
	StoreID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	LastValue int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

// TenantSequence is the per-tenant mutation-log counter. Advanced with the
// same conditional-increment primitive as StoreSequence; never read with a
// max()+1 query.
type TenantSequence struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	LastValue int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time
}
