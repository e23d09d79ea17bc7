package dto

// SyncFilter is bound from the query string of GET /v1/sync.
type SyncFilter struct {
	Since int64 `form:"since,default=0" validate:"min=0"`
	Limit int   `form:"limit,default=500" validate:"min=1,max=2000"`
}

// MutationEntryResponse is one change-feed row returned by GET /v1/sync.
// It carries no payload: consumers re-fetch full record state by id.
type MutationEntryResponse struct {
	Sequence   int64  `json:"sequence"`
	TerminalID string `json:"terminal_id"`
	Table      string `json:"table"`
	RecordID   string `json:"record_id"`
	Operation  string `json:"operation"`
	CreatedAt  string `json:"created_at"`
}

type SyncResponse struct {
	Entries []MutationEntryResponse `json:"entries"`
	// Latest is the highest sequence in Entries; clients advance their
	// watermark to it only after applying the whole batch.
	Latest int64 `json:"latest"`
}

// ReceiveStockRequest adds on-hand quantity with a "receive" ledger entry.
type ReceiveStockRequest struct {
	TenantID  string  `json:"tenant_id"  validate:"required,uuid"`
	StoreID   string  `json:"store_id"   validate:"required,uuid"`
	ProductID string  `json:"product_id" validate:"required,uuid"`
	VariantID *string `json:"variant_id" validate:"omitempty,uuid"`
	Quantity  int     `json:"quantity"   validate:"required,min=1"`
}
