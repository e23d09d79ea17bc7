// Package client is the terminal-side half of the sync engine: a local
// persistent queue for orders submitted while offline, a cache of server
// records, and the push/pull loop that reconciles both once connectivity
// returns.
package client

import (
	"time"
)

// Queue entry states.
const (
	EntryPending = "pending"
	EntrySyncing = "syncing"
	EntryFailed  = "failed"
)

// QueueEntry is a buffered order submission. Created when an order is
// submitted while offline; deleted on confirmed server acceptance. TempID is
// the idempotency token, preserved across retries so duplicate pushes are
// safe.
type QueueEntry struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	TempID    string `gorm:"uniqueIndex;not null"`
	TenantID  string `gorm:"not null;index"`
	Payload   []byte `gorm:"not null"` // JSON-encoded CreateOrderRequest
	Status    string `gorm:"not null;default:'pending'"`
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CachedRecord is the local copy of one server record, keyed by
// (table, record id). The pull loop overwrites it wholesale with re-fetched
// server state — deltas are never applied locally.
type CachedRecord struct {
	TableName string `gorm:"primaryKey;column:table_name"`
	RecordID  string `gorm:"primaryKey"`
	TenantID  string `gorm:"not null;index"`
	Data      []byte `gorm:"not null"`
	UpdatedAt time.Time
}

// SyncCursor stores the highest mutation-log sequence consumed per tenant.
type SyncCursor struct {
	TenantID     string `gorm:"primaryKey"`
	LastSequence int64  `gorm:"not null;default:0"`
	UpdatedAt    time.Time
}
