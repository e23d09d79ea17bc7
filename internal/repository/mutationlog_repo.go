package repository

import (
	"context"

	"tillsync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MutationLogRepository is the change feed: append inside the business
// transaction, read back in ascending sequence order. Entries are never
// mutated or deleted.
type MutationLogRepository interface {
	AppendTx(tx *gorm.DB, e *model.MutationLogEntry) error
	// DeltasSince returns entries with sequence strictly greater than since,
	// ordered ascending. Idempotent: safe to re-call with the same cursor.
	DeltasSince(ctx context.Context, tenantID uuid.UUID, since int64, limit int) ([]model.MutationLogEntry, error)
}

type mutationLogRepo struct{ db *gorm.DB }

func NewMutationLogRepository(db *gorm.DB) MutationLogRepository {
	return &mutationLogRepo{db: db}
}

func (r *mutationLogRepo) AppendTx(tx *gorm.DB, e *model.MutationLogEntry) error {
	return tx.Create(e).Error
}

func (r *mutationLogRepo) DeltasSince(ctx context.Context, tenantID uuid.UUID, since int64, limit int) ([]model.MutationLogEntry, error) {
	if limit <= 0 {
		limit = 500
	}
	var entries []model.MutationLogEntry
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND sequence > ?", tenantID, since).
		Order("sequence ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
