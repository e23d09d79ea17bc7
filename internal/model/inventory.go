package model

import (
	"time"

	"github.com/google/uuid"
)

// Ledger entry causes.
const (
	LedgerSale    = "sale"
	LedgerReceive = "receive"
	LedgerAdjust  = "adjust"
)

// InventoryRecord holds current on-hand quantity keyed by
// (store, product, variant-or-none). Quantity is mutated by atomic
// increment/decrement statements only, never read-modify-write from
// application memory.
type InventoryRecord struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	StoreID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_key"`
	ProductID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_key"`
	VariantID *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_inventory_key"`
	Quantity  int        `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InventoryLedgerEntry records every quantity delta applied to an
// InventoryRecord. Exists for audit/traceability; the invariant is that a
// record's quantity always equals the sum of its ledger deltas.
type InventoryLedgerEntry struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	InventoryID uuid.UUID  `gorm:"type:uuid;not null;index"`
	Type        string     `gorm:"not null"` // "sale" | "receive" | "adjust"
	Delta       int        `gorm:"not null"` // positive = in, negative = out
	OrderID     *uuid.UUID `gorm:"type:uuid"`
	CreatedAt   time.Time
}

func (InventoryLedgerEntry) TableName() string { return "inventory_ledger" }
