package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order lifecycle states. Received is the state assigned at creation; status
// is the only field mutated after the order row is committed.
const (
	StatusReceived  = "received"
	StatusPreparing = "preparing"
	StatusReady     = "ready"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// ValidTransition reports whether an order may move from one status to
// another. Cancelled is reachable from any non-terminal state.
func ValidTransition(from, to string) bool {
	if from == StatusCompleted || from == StatusCancelled {
		return false
	}
	switch to {
	case StatusCancelled:
		return true
	case StatusPreparing:
		return from == StatusReceived
	case StatusReady:
		return from == StatusPreparing
	case StatusCompleted:
		return from == StatusReady
	}
	return false
}

// Order is the header entity created once by the ingestion pipeline.
// TempID is the client-submitted idempotency token, unique per tenant:
// resubmission returns the original order, never a duplicate.
type Order struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_orders_tenant_temp,unique,where:temp_id IS NOT NULL;index"`
	StoreID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	StaffID    uuid.UUID  `gorm:"type:uuid;not null"`
	CustomerID *uuid.UUID `gorm:"type:uuid;index"`
	TerminalID *string

	// Monetary totals decomposed by tax category.
	GrossTotal     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TaxableTotal   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	ExemptTotal    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	ZeroRatedTotal decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	TempID        *string `gorm:"index:idx_orders_tenant_temp,unique,where:temp_id IS NOT NULL"`
	ReceiptNumber *string `gorm:"index"`
	Status        string  `gorm:"not null;default:'received'"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Lines    []OrderLine `gorm:"foreignKey:OrderID"`
	Payments []Payment   `gorm:"foreignKey:OrderID"`
}

// OrderLine is immutable after creation.
type OrderLine struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID  `gorm:"type:uuid;not null"`
	VariantID *uuid.UUID `gorm:"type:uuid"`
	Quantity  int        `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	GrossTotal     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TaxableTotal   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	ExemptTotal    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	ZeroRatedTotal decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	CreatedAt time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}

// Payment records one tender against an order.
type Payment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Method    string    `gorm:"not null"` // "cash" | "card" | "transfer"
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt time.Time
}
