package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Loyalty tiers and their point multipliers. Points earned on an order are
// floor(order total × multiplier) for the customer's tier at purchase time.
const (
	TierBase = "base"
	TierMid  = "mid"
	TierTop  = "top"
)

// TierMultiplier returns the point multiplier for a tier. Unknown tiers fall
// back to the base multiplier rather than failing the sale.
func TierMultiplier(tier string) decimal.Decimal {
	switch tier {
	case TierMid:
		return decimal.NewFromFloat(1.2)
	case TierTop:
		return decimal.NewFromFloat(1.5)
	default:
		return decimal.NewFromInt(1)
	}
}

// Customer holds the loyalty state mutated by the ingestion pipeline.
type Customer struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Name            string    `gorm:"not null"`
	Email           *string
	Tier            string          `gorm:"not null;default:'base'"` // base | mid | top
	Points          int64           `gorm:"not null;default:0"`
	CumulativeSpend decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// LoyaltyLedgerEntry is the append-only record of every point award or
// redemption. Never updated or deleted.
type LoyaltyLedgerEntry struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;index"`
	CustomerID uuid.UUID `gorm:"type:uuid;not null;index"`
	OrderID    *uuid.UUID `gorm:"type:uuid"`
	Points     int64      `gorm:"not null"` // positive = earned, negative = redeemed
	Reason     string     `gorm:"not null"` // "sale" | "redeem" | "adjust"
	CreatedAt  time.Time
}

func (LoyaltyLedgerEntry) TableName() string { return "loyalty_ledger" }
