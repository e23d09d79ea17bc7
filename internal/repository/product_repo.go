package repository

import (
	"context"

	"tillsync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductRepository resolves catalog entries during order pre-flight and
// kitchen routing.
type ProductRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]model.Product, error)
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = true", tenantID).
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) List(ctx context.Context, tenantID uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = true", tenantID).
		Order("name ASC").
		Find(&products).Error
	return products, err
}
