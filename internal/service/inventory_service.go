package service

import (
	"context"
	"fmt"

	"tillsync/internal/dto"
	"tillsync/internal/model"
	"tillsync/internal/repository"
	"tillsync/internal/tenantctx"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InventoryService covers the receive side of stock movement. Sales decrement
// through the order pipeline; receives mirror the same pattern — atomic
// quantity update plus ledger entry plus change-feed append, one transaction.
type InventoryService interface {
	Receive(ctx context.Context, req dto.ReceiveStockRequest) (*model.InventoryRecord, error)
}

type inventoryService struct {
	inventory repository.InventoryRepository
	sequences repository.SequenceRepository
	mutations repository.MutationLogRepository
	scope     *tenantctx.Scope
}

func NewInventoryService(
	inventory repository.InventoryRepository,
	sequences repository.SequenceRepository,
	mutations repository.MutationLogRepository,
	scope *tenantctx.Scope,
) InventoryService {
	return &inventoryService{inventory: inventory, sequences: sequences, mutations: mutations, scope: scope}
}

func (s *inventoryService) inTx(ctx context.Context, tenantID uuid.UUID, fn func(tx *gorm.DB) error) error {
	if s.scope != nil {
		return s.scope.RunTx(tenantctx.With(ctx, tenantID), fn)
	}
	return runTx(ctx, s.inventory.DB(), fn)
}

func (s *inventoryService) Receive(ctx context.Context, req dto.ReceiveStockRequest) (*model.InventoryRecord, error) {
	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad tenant_id", ErrValidation)
	}
	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad store_id", ErrValidation)
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad product_id", ErrValidation)
	}
	var variantID *uuid.UUID
	if req.VariantID != nil {
		vid, err := uuid.Parse(*req.VariantID)
		if err != nil {
			return nil, fmt.Errorf("%w: bad variant_id", ErrValidation)
		}
		variantID = &vid
	}

	var rec *model.InventoryRecord
	txErr := s.inTx(ctx, tenantID, func(tx *gorm.DB) error {
		var err error
		rec, err = s.inventory.AdjustQuantityTx(tx, storeID, productID, variantID, req.Quantity)
		if err != nil {
			return err
		}
		if err := s.inventory.AppendLedgerTx(tx, &model.InventoryLedgerEntry{
			TenantID:    tenantID,
			InventoryID: rec.ID,
			Type:        model.LedgerReceive,
			Delta:       req.Quantity,
		}); err != nil {
			return err
		}
		mseq, err := s.sequences.NextMutationSeqTx(tx, tenantID)
		if err != nil {
			return err
		}
		return s.mutations.AppendTx(tx, &model.MutationLogEntry{
			TenantID:  tenantID,
			Sequence:  mseq,
			Table:     "inventory_records",
			RecordID:  rec.ID,
			Operation: model.OpUpdate,
		})
	})
	if txErr != nil {
		return nil, fmt.Errorf("receive transaction failed: %w", txErr)
	}
	return rec, nil
}
