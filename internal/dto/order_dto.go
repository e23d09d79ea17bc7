package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OrderItemRequest struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	VariantID *string         `json:"variant_id" validate:"omitempty,uuid"`
	Quantity  int             `json:"quantity"   validate:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"required"`

	GrossTotal     decimal.Decimal `json:"gross_total"      validate:"required"`
	TaxableTotal   decimal.Decimal `json:"taxable_total"    validate:"min=0"`
	ExemptTotal    decimal.Decimal `json:"exempt_total"     validate:"min=0"`
	ZeroRatedTotal decimal.Decimal `json:"zero_rated_total" validate:"min=0"`
}

type PaymentRequest struct {
	Method string          `json:"method" validate:"required,oneof=cash card transfer"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

type CreateOrderRequest struct {
	TenantID   string  `json:"tenant_id"   validate:"required,uuid"`
	StoreID    string  `json:"store_id"    validate:"required,uuid"`
	StaffID    string  `json:"staff_id"    validate:"required,uuid"`
	CustomerID *string `json:"customer_id" validate:"omitempty,uuid"`
	TerminalID *string `json:"terminal_id"`

	Items    []OrderItemRequest `json:"items"    validate:"required,min=1,dive"`
	Payments []PaymentRequest   `json:"payments" validate:"required,min=1,dive"`

	// TempID is the idempotency token set by the terminal when the order was
	// created offline (or pre-generated for safe retry).
	TempID *string `json:"temp_id" validate:"omitempty,uuid"`

	GrossTotal     decimal.Decimal `json:"gross_total"      validate:"required"`
	TaxableTotal   decimal.Decimal `json:"taxable_total"    validate:"min=0"`
	ExemptTotal    decimal.Decimal `json:"exempt_total"     validate:"min=0"`
	ZeroRatedTotal decimal.Decimal `json:"zero_rated_total" validate:"min=0"`
}

type UpdateStatusRequest struct {
	TenantID string `json:"tenant_id" validate:"required,uuid"`
	Status   string `json:"status"    validate:"required"`
	// TerminalID names the terminal performing the transition; the mutation
	// log falls back to the order's creating terminal when absent.
	TerminalID *string `json:"terminal_id"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type OrderItemResponse struct {
	ProductID string          `json:"product_id"`
	VariantID *string         `json:"variant_id,omitempty"`
	Product   string          `json:"product,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	GrossTotal decimal.Decimal `json:"gross_total"`
}

type OrderResponse struct {
	ID            string              `json:"id"`
	StoreID       string              `json:"store_id"`
	ReceiptNumber *string             `json:"receipt_number"`
	Status        string              `json:"status"`
	Items         []OrderItemResponse `json:"items"`
	Payments      []PaymentRequest    `json:"payments"`
	GrossTotal    decimal.Decimal     `json:"gross_total"`
	TaxableTotal  decimal.Decimal     `json:"taxable_total"`
	ExemptTotal   decimal.Decimal     `json:"exempt_total"`
	ZeroRatedTotal decimal.Decimal    `json:"zero_rated_total"`
	PointsEarned  int64               `json:"points_earned,omitempty"`
	CreatedAt     string              `json:"created_at"`
}
