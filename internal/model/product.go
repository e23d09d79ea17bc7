package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the sellable catalog entry. Category drives kitchen routing:
// lines whose product has RouteToKitchen=true are published to the station
// channel resolved from Category when the order fires.
type Product struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID `gorm:"type:uuid;not null;index"`
	SKU            string    `gorm:"not null;index"`
	Name           string    `gorm:"not null"`
	Category       string    `gorm:"not null"`
	Price          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	RouteToKitchen bool            `gorm:"not null;default:false"`
	Active         bool            `gorm:"not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProductVariant is an optional refinement of a product (size, flavor).
// Inventory may be tracked per variant; orders reference the variant when set.
type ProductVariant struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"not null"`
	PriceDelta decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}
