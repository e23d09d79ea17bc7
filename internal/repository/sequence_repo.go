package repository

import (
	"tillsync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SequenceRepository issues monotonic counter values. Both counters advance
// with a single conditional-increment statement executed inside the caller's
// transaction — never a read-then-write. The increment takes the row lock,
// so the read-back of the new value cannot observe another transaction's
// increment in between.
type SequenceRepository interface {
	// NextReceiptTx advances the store's receipt counter. A missing
	// StoreSequence row is not an error: ok=false means the order should
	// commit without a receipt number.
	NextReceiptTx(tx *gorm.DB, storeID uuid.UUID) (value int64, ok bool, err error)

	// NextMutationSeqTx advances the per-tenant mutation-log counter,
	// creating the counter row on first use.
	NextMutationSeqTx(tx *gorm.DB, tenantID uuid.UUID) (int64, error)
}

type sequenceRepo struct{ db *gorm.DB }

func NewSequenceRepository(db *gorm.DB) SequenceRepository { return &sequenceRepo{db: db} }

func (r *sequenceRepo) NextReceiptTx(tx *gorm.DB, storeID uuid.UUID) (int64, bool, error) {
	res := tx.Model(&model.StoreSequence{}).
		Where("store_id = ?", storeID).
		Update("last_value", gorm.Expr("last_value + 1"))
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}
	var seq model.StoreSequence
	if err := tx.First(&seq, "store_id = ?", storeID).Error; err != nil {
		return 0, false, err
	}
	return seq.LastValue, true, nil
}

func (r *sequenceRepo) NextMutationSeqTx(tx *gorm.DB, tenantID uuid.UUID) (int64, error) {
	// Upsert-increment: first use inserts the counter at 1, every later use
	// bumps it under the row lock held until commit.
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_value": gorm.Expr("tenant_sequences.last_value + 1"),
		}),
	}).Create(&model.TenantSequence{TenantID: tenantID, LastValue: 1}).Error
	if err != nil {
		return 0, err
	}
	var seq model.TenantSequence
	if err := tx.First(&seq, "tenant_id = ?", tenantID).Error; err != nil {
		return 0, err
	}
	return seq.LastValue, nil
}
