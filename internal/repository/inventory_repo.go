package repository

import (
	"context"
	"errors"

	"tillsync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrInventoryNotFound means no InventoryRecord exists for the
// (store, product, variant) key the statement targeted.
var ErrInventoryNotFound = errors.New("inventory record not found")

// InventoryRepository mutates on-hand quantities. All quantity changes are
// single atomic arithmetic updates — two concurrent decrements of the same
// record never lose an update.
type InventoryRepository interface {
	// AdjustQuantityTx applies delta (negative = out) to the matching record
	// in one conditional update. Returns ErrInventoryNotFound when the key
	// does not exist, which rolls back the enclosing transaction.
	AdjustQuantityTx(tx *gorm.DB, storeID, productID uuid.UUID, variantID *uuid.UUID, delta int) (*model.InventoryRecord, error)
	AppendLedgerTx(tx *gorm.DB, e *model.InventoryLedgerEntry) error

	Find(ctx context.Context, storeID, productID uuid.UUID, variantID *uuid.UUID) (*model.InventoryRecord, error)
	Create(ctx context.Context, rec *model.InventoryRecord) error
	SumLedger(ctx context.Context, inventoryID uuid.UUID) (int64, error)

	DB() *gorm.DB
}

type inventoryRepo struct{ db *gorm.DB }

func NewInventoryRepository(db *gorm.DB) InventoryRepository { return &inventoryRepo{db: db} }

func (r *inventoryRepo) DB() *gorm.DB { return r.db }

func variantCond(q *gorm.DB, variantID *uuid.UUID) *gorm.DB {
	if variantID == nil {
		return q.Where("variant_id IS NULL")
	}
	return q.Where("variant_id = ?", *variantID)
}

func (r *inventoryRepo) AdjustQuantityTx(tx *gorm.DB, storeID, productID uuid.UUID, variantID *uuid.UUID, delta int) (*model.InventoryRecord, error) {
	q := tx.Model(&model.InventoryRecord{}).
		Where("store_id = ? AND product_id = ?", storeID, productID)
	res := variantCond(q, variantID).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInventoryNotFound
	}

	// Re-read inside the tx only to return the record id for the ledger row;
	// the quantity change itself already happened atomically above.
	var rec model.InventoryRecord
	q = tx.Where("store_id = ? AND product_id = ?", storeID, productID)
	if err := variantCond(q, variantID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *inventoryRepo) AppendLedgerTx(tx *gorm.DB, e *model.InventoryLedgerEntry) error {
	return tx.Create(e).Error
}

func (r *inventoryRepo) Find(ctx context.Context, storeID, productID uuid.UUID, variantID *uuid.UUID) (*model.InventoryRecord, error) {
	var rec model.InventoryRecord
	q := r.db.WithContext(ctx).Where("store_id = ? AND product_id = ?", storeID, productID)
	if err := variantCond(q, variantID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *inventoryRepo) Create(ctx context.Context, rec *model.InventoryRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *inventoryRepo) SumLedger(ctx context.Context, inventoryID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&model.InventoryLedgerEntry{}).
		Where("inventory_id = ?", inventoryID).
		Select("COALESCE(SUM(delta), 0)").Scan(&sum).Error
	return sum, err
}
