package repository

import (
	"context"

	"tillsync/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CustomerRepository covers the loyalty slice of the ingestion transaction.
type CustomerRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Customer, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Customer, error)
	// AwardTx bumps point balance and cumulative spend with atomic
	// arithmetic updates and appends the loyalty ledger entry.
	AwardTx(tx *gorm.DB, customerID uuid.UUID, points int64, spend decimal.Decimal) error
	AppendLoyaltyTx(tx *gorm.DB, e *model.LoyaltyLedgerEntry) error
}

type customerRepo struct{ db *gorm.DB }

func NewCustomerRepository(db *gorm.DB) CustomerRepository { return &customerRepo{db: db} }

func (r *customerRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Customer, error) {
	var c model.Customer
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&c, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *customerRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Customer, error) {
	var c model.Customer
	if err := tx.First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *customerRepo) AwardTx(tx *gorm.DB, customerID uuid.UUID, points int64, spend decimal.Decimal) error {
	return tx.Model(&model.Customer{}).Where("id = ?", customerID).
		Updates(map[string]interface{}{
			"points":           gorm.Expr("points + ?", points),
			"cumulative_spend": gorm.Expr("cumulative_spend + ?", spend),
		}).Error
}

func (r *customerRepo) AppendLoyaltyTx(tx *gorm.DB, e *model.LoyaltyLedgerEntry) error {
	return tx.Create(e).Error
}
