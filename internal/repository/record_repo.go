package repository

import (
	"context"
	"errors"

	"tillsync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrUnknownTable is returned for tables not in the snapshot whitelist.
var ErrUnknownTable = errors.New("unknown record table")

// RecordRepository serves the pull loop's re-fetch step: given a mutation-log
// entry, a client reads the current full state of the affected record and
// overwrites its local cache. Only tracked tables are reachable.
type RecordRepository interface {
	Fetch(ctx context.Context, tenantID uuid.UUID, table string, recordID uuid.UUID) (map[string]interface{}, error)
}

type recordRepo struct{ db *gorm.DB }

func NewRecordRepository(db *gorm.DB) RecordRepository { return &recordRepo{db: db} }

// trackedTables maps change-feed table names to their models. Using model
// references (not caller-supplied names) keeps raw table strings out of SQL.
var trackedTables = map[string]interface{}{
	"orders":            &model.Order{},
	"products":          &model.Product{},
	"product_variants":  &model.ProductVariant{},
	"customers":         &model.Customer{},
	"inventory_records": &model.InventoryRecord{},
}

func (r *recordRepo) Fetch(ctx context.Context, tenantID uuid.UUID, table string, recordID uuid.UUID) (map[string]interface{}, error) {
	m, ok := trackedTables[table]
	if !ok {
		return nil, ErrUnknownTable
	}
	row := map[string]interface{}{}
	err := r.db.WithContext(ctx).Model(m).
		Where("tenant_id = ? AND id = ?", tenantID, recordID).
		Take(&row).Error
	if err != nil {
		return nil, err
	}
	return row, nil
}
