package client

import (
	"errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store is the terminal's local sqlite database.
type Store struct {
	db *gorm.DB
}

// OpenStore opens (or creates) the local database at path. Use
// "file::memory:?cache=shared" for tests.
func OpenStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&QueueEntry{}, &CachedRecord{}, &SyncCursor{}); err != nil {
		return nil, err
	}
	// Entries stuck in syncing belong to a run that died mid-push. The
	// idempotency token makes re-submitting them safe, so put them back in
	// line rather than stranding them.
	if err := db.Model(&QueueEntry{}).
		Where("status = ?", EntrySyncing).
		Update("status", EntryPending).Error; err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// ── Queue ─────────────────────────────────────────────────────────────────────

func (s *Store) Enqueue(e *QueueEntry) error {
	if e.Status == "" {
		e.Status = EntryPending
	}
	return s.db.Create(e).Error
}

func (s *Store) Pending(tenantID string) ([]QueueEntry, error) {
	var entries []QueueEntry
	err := s.db.Where("tenant_id = ? AND status = ?", tenantID, EntryPending).
		Order("id ASC").Find(&entries).Error
	return entries, err
}

func (s *Store) MarkSyncing(id uint) error {
	return s.setStatus(id, EntrySyncing, "")
}

func (s *Store) MarkFailed(id uint, reason string) error {
	return s.setStatus(id, EntryFailed, reason)
}

// AllEntries returns the tenant's whole queue regardless of status, oldest
// first. Used by status displays and tests.
func (s *Store) AllEntries(tenantID string) ([]QueueEntry, error) {
	var entries []QueueEntry
	err := s.db.Where("tenant_id = ?", tenantID).Order("id ASC").Find(&entries).Error
	return entries, err
}

// RetryFailed flips failed entries back to pending so the next push cycle
// picks them up.
func (s *Store) RetryFailed(tenantID string) error {
	return s.db.Model(&QueueEntry{}).
		Where("tenant_id = ? AND status = ?", tenantID, EntryFailed).
		Update("status", EntryPending).Error
}

func (s *Store) DeleteEntry(id uint) error {
	return s.db.Delete(&QueueEntry{}, id).Error
}

func (s *Store) setStatus(id uint, status, reason string) error {
	return s.db.Model(&QueueEntry{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "last_error": reason}).Error
}

// ── Record cache ──────────────────────────────────────────────────────────────

func (s *Store) UpsertRecord(rec *CachedRecord) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "table_name"}, {Name: "record_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tenant_id", "data", "updated_at"}),
	}).Create(rec).Error
}

func (s *Store) DeleteRecord(table, recordID string) error {
	return s.db.Where("table_name = ? AND record_id = ?", table, recordID).
		Delete(&CachedRecord{}).Error
}

func (s *Store) GetRecord(table, recordID string) (*CachedRecord, error) {
	var rec CachedRecord
	err := s.db.Where("table_name = ? AND record_id = ?", table, recordID).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ── Watermark ─────────────────────────────────────────────────────────────────

func (s *Store) LastSequence(tenantID string) (int64, error) {
	var cur SyncCursor
	err := s.db.First(&cur, "tenant_id = ?", tenantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return cur.LastSequence, nil
}

// SetLastSequence advances the watermark. Callers only invoke this after the
// whole batch has been applied — a partial batch must leave the old value in
// place so the next cycle retries the same range.
func (s *Store) SetLastSequence(tenantID string, seq int64) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_sequence", "updated_at"}),
	}).Create(&SyncCursor{TenantID: tenantID, LastSequence: seq}).Error
}
