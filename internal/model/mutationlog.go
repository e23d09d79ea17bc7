package model

import (
	"time"

	"github.com/google/uuid"
)

// Mutation operation kinds.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// MutationLogEntry is the append-only change feed. One row per committed
// mutation of interest on a tracked table, with a per-tenant monotonically
// increasing sequence number. Clients track the highest sequence they have
// consumed and re-fetch full record state for anything newer.
type MutationLogEntry struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_mutation_tenant_seq"`
	Sequence   int64     `gorm:"not null;uniqueIndex:idx_mutation_tenant_seq"`
	TerminalID string    `gorm:"not null"`
	Table      string    `gorm:"not null;column:table_name"`
	RecordID   uuid.UUID `gorm:"type:uuid;not null"`
	Operation  string    `gorm:"not null"` // "insert" | "update" | "delete"
	CreatedAt  time.Time
}

func (MutationLogEntry) TableName() string { return "mutation_log" }
