package repository

import (
	"context"

	"tillsync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderRepository defines the data access contract for orders. Services
// depend on this interface, not on the concrete GORM implementation.
type OrderRepository interface {
	CreateTx(tx *gorm.DB, o *model.Order) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Order, error)
	// FindByTempID backs the idempotency check: gorm.ErrRecordNotFound means
	// the token has not been used for this tenant.
	FindByTempID(ctx context.Context, tenantID uuid.UUID, tempID string) (*model.Order, error)
	// UpdateStatusTx moves the order from one status to another with a single
	// conditional update. gorm.ErrRecordNotFound means the row no longer holds
	// the expected from-status — another terminal got there first — and the
	// caller must treat the transition as invalid, not retry it blindly.
	UpdateStatusTx(tx *gorm.DB, id uuid.UUID, from, to string) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type orderRepo struct{ db *gorm.DB }

func NewOrderRepository(db *gorm.DB) OrderRepository { return &orderRepo{db: db} }

func (r *orderRepo) DB() *gorm.DB { return r.db }

func (r *orderRepo) CreateTx(tx *gorm.DB, o *model.Order) error {
	return tx.Create(o).Error
}

func (r *orderRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Preload("Lines.Product").Preload("Payments").
		Where("tenant_id = ?", tenantID).
		First(&o, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) FindByTempID(ctx context.Context, tenantID uuid.UUID, tempID string) (*model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Preload("Lines.Product").Preload("Payments").
		Where("tenant_id = ? AND temp_id = ?", tenantID, tempID).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) UpdateStatusTx(tx *gorm.DB, id uuid.UUID, from, to string) error {
	res := tx.Model(&model.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
