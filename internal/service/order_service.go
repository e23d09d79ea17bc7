package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tillsync/internal/dto"
	"tillsync/internal/model"
	"tillsync/internal/realtime"
	"tillsync/internal/repository"
	"tillsync/internal/tenantctx"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrValidation marks pre-flight failures surfaced as 4xx with no side
	// effects. Anything else that escapes CreateOrder is a transactional
	// failure and maps to a generic 500.
	ErrValidation = errors.New("validation error")

	// ErrInvalidStatus covers unknown status values and illegal transitions.
	ErrInvalidStatus = errors.New("invalid status transition")

	// ErrOrderNotFound is returned by UpdateStatus for unknown order ids.
	ErrOrderNotFound = errors.New("order not found")
)

type OrderService interface {
	// CreateOrder runs the ingestion pipeline. existing=true means the
	// temp_id matched a previously committed order, which is returned with
	// no further side effects.
	CreateOrder(ctx context.Context, req dto.CreateOrderRequest) (resp *dto.OrderResponse, existing bool, err error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, req dto.UpdateStatusRequest) error
	GetOrder(ctx context.Context, tenantID, id uuid.UUID) (*dto.OrderResponse, error)
}

type orderService struct {
	orders    repository.OrderRepository
	inventory repository.InventoryRepository
	sequences repository.SequenceRepository
	mutations repository.MutationLogRepository
	customers repository.CustomerRepository
	products  repository.ProductRepository
	publisher *realtime.Publisher
	scope     *tenantctx.Scope
}

// NewOrderService builds the ingestion pipeline. scope may be nil; when set,
// every write transaction runs on a connection scoped to the order's tenant.
func NewOrderService(
	orders repository.OrderRepository,
	inventory repository.InventoryRepository,
	sequences repository.SequenceRepository,
	mutations repository.MutationLogRepository,
	customers repository.CustomerRepository,
	products repository.ProductRepository,
	publisher *realtime.Publisher,
	scope *tenantctx.Scope,
) OrderService {
	return &orderService{
		orders:    orders,
		inventory: inventory,
		sequences: sequences,
		mutations: mutations,
		customers: customers,
		products:  products,
		publisher: publisher,
		scope:     scope,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// inTx runs fn in one atomic unit, tenant-scoped when a Scope is configured.
func (s *orderService) inTx(ctx context.Context, tenantID uuid.UUID, fn func(tx *gorm.DB) error) error {
	if s.scope != nil {
		return s.scope.RunTx(tenantctx.With(ctx, tenantID), fn)
	}
	return runTx(ctx, s.orders.DB(), fn)
}

// formatReceipt builds the human-readable receipt number: the first 8 hex
// chars of the store id, uppercased, plus the zero-padded counter value.
func formatReceipt(storeID uuid.UUID, n int64) string {
	prefix := strings.ToUpper(strings.ReplaceAll(storeID.String(), "-", "")[:8])
	return fmt.Sprintf("%s-%06d", prefix, n)
}

// stationForCategory resolves the kitchen routing station for a product
// category. Unmapped categories go to the default kitchen station.
func stationForCategory(category string) string {
	switch category {
	case "drinks", "beverages":
		return "bar"
	case "desserts", "pastry":
		return "pastry"
	default:
		return "kitchen"
	}
}

type resolvedLine struct {
	product   *model.Product
	variantID *uuid.UUID
	req       dto.OrderItemRequest
}

func (s *orderService) CreateOrder(ctx context.Context, req dto.CreateOrderRequest) (*dto.OrderResponse, bool, error) {
	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: bad tenant_id", ErrValidation)
	}
	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: bad store_id", ErrValidation)
	}
	staffID, err := uuid.Parse(req.StaffID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: bad staff_id", ErrValidation)
	}
	var customerID *uuid.UUID
	if req.CustomerID != nil {
		cid, err := uuid.Parse(*req.CustomerID)
		if err != nil {
			return nil, false, fmt.Errorf("%w: bad customer_id", ErrValidation)
		}
		customerID = &cid
	}

	// 1. Idempotency short-circuit: a matching token returns the original
	// order with no further side effects.
	if req.TempID != nil {
		if existing, err := s.orders.FindByTempID(ctx, tenantID, *req.TempID); err == nil {
			return orderToResponse(existing), true, nil
		}
	}

	// 2. Resolve products (pre-flight, outside the tx). Needed both to
	// reject unknown/inactive products early and for kitchen routing later.
	resolved := make([]resolvedLine, 0, len(req.Items))
	for _, item := range req.Items {
		pid, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, false, fmt.Errorf("%w: bad product_id", ErrValidation)
		}
		p, err := s.products.FindByID(ctx, tenantID, pid)
		if err != nil {
			return nil, false, fmt.Errorf("%w: product %s not found", ErrValidation, item.ProductID)
		}
		var variantID *uuid.UUID
		if item.VariantID != nil {
			vid, err := uuid.Parse(*item.VariantID)
			if err != nil {
				return nil, false, fmt.Errorf("%w: bad variant_id", ErrValidation)
			}
			variantID = &vid
		}
		resolved = append(resolved, resolvedLine{product: p, variantID: variantID, req: item})
	}

	terminal := ""
	if req.TerminalID != nil {
		terminal = *req.TerminalID
	}

	// 3. One atomic transaction: receipt number, order + lines, inventory
	// decrement + ledger, payments, mutation log, loyalty. Any failure rolls
	// back the whole unit.
	var order model.Order
	var pointsEarned int64
	txErr := s.inTx(ctx, tenantID, func(tx *gorm.DB) error {
		var receipt *string
		seq, ok, err := s.sequences.NextReceiptTx(tx, storeID)
		if err != nil {
			return err
		}
		if ok {
			// A missing sequence row is not an error: the order commits
			// without a receipt number.
			r := formatReceipt(storeID, seq)
			receipt = &r
		}

		order = model.Order{
			TenantID:       tenantID,
			StoreID:        storeID,
			StaffID:        staffID,
			CustomerID:     customerID,
			TerminalID:     req.TerminalID,
			GrossTotal:     req.GrossTotal,
			TaxableTotal:   req.TaxableTotal,
			ExemptTotal:    req.ExemptTotal,
			ZeroRatedTotal: req.ZeroRatedTotal,
			TempID:         req.TempID,
			ReceiptNumber:  receipt,
			Status:         model.StatusReceived,
		}
		for _, r := range resolved {
			order.Lines = append(order.Lines, model.OrderLine{
				TenantID:       tenantID,
				ProductID:      r.product.ID,
				VariantID:      r.variantID,
				Quantity:       r.req.Quantity,
				UnitPrice:      r.req.UnitPrice,
				GrossTotal:     r.req.GrossTotal,
				TaxableTotal:   r.req.TaxableTotal,
				ExemptTotal:    r.req.ExemptTotal,
				ZeroRatedTotal: r.req.ZeroRatedTotal,
			})
		}
		for _, p := range req.Payments {
			order.Payments = append(order.Payments, model.Payment{
				TenantID: tenantID,
				Method:   p.Method,
				Amount:   p.Amount,
			})
		}
		if err := s.orders.CreateTx(tx, &order); err != nil {
			return err
		}

		// Decrement stock per line: single conditional update, then the
		// ledger row that keeps quantity == Σ(deltas) auditable.
		for _, r := range resolved {
			rec, err := s.inventory.AdjustQuantityTx(tx, storeID, r.product.ID, r.variantID, -r.req.Quantity)
			if err != nil {
				return fmt.Errorf("decrement stock for %s: %w", r.product.Name, err)
			}
			orderRef := order.ID
			if err := s.inventory.AppendLedgerTx(tx, &model.InventoryLedgerEntry{
				TenantID:    tenantID,
				InventoryID: rec.ID,
				Type:        model.LedgerSale,
				Delta:       -r.req.Quantity,
				OrderID:     &orderRef,
			}); err != nil {
				return err
			}
		}

		// Change feed entry for the order insert, sequenced by the
		// per-tenant atomic counter.
		mseq, err := s.sequences.NextMutationSeqTx(tx, tenantID)
		if err != nil {
			return err
		}
		if err := s.mutations.AppendTx(tx, &model.MutationLogEntry{
			TenantID:   tenantID,
			Sequence:   mseq,
			TerminalID: terminal,
			Table:      "orders",
			RecordID:   order.ID,
			Operation:  model.OpInsert,
		}); err != nil {
			return err
		}

		// Loyalty: points = floor(total × tier multiplier).
		if customerID != nil {
			c, err := s.customers.FindByIDTx(tx, *customerID)
			if err != nil {
				return fmt.Errorf("load customer: %w", err)
			}
			pointsEarned = req.GrossTotal.Mul(model.TierMultiplier(c.Tier)).Floor().IntPart()
			orderRef := order.ID
			if err := s.customers.AppendLoyaltyTx(tx, &model.LoyaltyLedgerEntry{
				TenantID:   tenantID,
				CustomerID: *customerID,
				OrderID:    &orderRef,
				Points:     pointsEarned,
				Reason:     "sale",
			}); err != nil {
				return err
			}
			if err := s.customers.AwardTx(tx, *customerID, pointsEarned, req.GrossTotal); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, ErrValidation) {
			return nil, false, txErr
		}
		return nil, false, fmt.Errorf("order transaction failed: %w", txErr)
	}

	// 4. After commit — never before: kitchen fan-out. Best-effort.
	s.fanOutFired(ctx, &order, resolved)

	resp := orderToResponse(&order)
	resp.PointsEarned = pointsEarned
	for i, r := range resolved {
		resp.Items[i].Product = r.product.Name
	}
	return resp, false, nil
}

// fanOutFired publishes the full order to the store channel and per-station
// line subsets to each station channel.
func (s *orderService) fanOutFired(ctx context.Context, order *model.Order, resolved []resolvedLine) {
	if s.publisher == nil {
		return
	}
	full := orderToResponse(order)
	for i, r := range resolved {
		full.Items[i].Product = r.product.Name
	}
	s.publisher.Publish(ctx, realtime.StoreChannel(order.StoreID), realtime.EventOrderFired, full)

	// Group kitchen-routed lines by station.
	byStation := map[string][]dto.OrderItemResponse{}
	for i, r := range resolved {
		if !r.product.RouteToKitchen {
			continue
		}
		station := stationForCategory(r.product.Category)
		byStation[station] = append(byStation[station], full.Items[i])
	}
	for station, items := range byStation {
		subset := *full
		subset.Items = items
		s.publisher.Publish(ctx, realtime.StationChannel(order.StoreID, station), realtime.EventOrderFired, struct {
			dto.OrderResponse
			Station string `json:"station"`
		}{subset, station})
	}
}

// StatusEvent is the payload of a status_update push.
type StatusEvent struct {
	Type    string `json:"type"`
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

func (s *orderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, req dto.UpdateStatusRequest) error {
	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		return fmt.Errorf("%w: bad tenant_id", ErrValidation)
	}
	switch req.Status {
	case model.StatusReceived, model.StatusPreparing, model.StatusReady, model.StatusCompleted, model.StatusCancelled:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidStatus, req.Status)
	}

	order, err := s.orders.FindByID(ctx, tenantID, orderID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if !model.ValidTransition(order.Status, req.Status) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidStatus, order.Status, req.Status)
	}

	// The mutation entry names the terminal that performed the transition,
	// falling back to the one that created the order.
	terminal := ""
	if order.TerminalID != nil {
		terminal = *order.TerminalID
	}
	if req.TerminalID != nil {
		terminal = *req.TerminalID
	}
	txErr := s.inTx(ctx, tenantID, func(tx *gorm.DB) error {
		// Conditional on the status we validated against: a concurrent
		// transition that committed in between makes this a no-op and the
		// whole update fails instead of overwriting the newer state.
		if err := s.orders.UpdateStatusTx(tx, orderID, order.Status, req.Status); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: order is no longer %s", ErrInvalidStatus, order.Status)
			}
			return err
		}
		mseq, err := s.sequences.NextMutationSeqTx(tx, tenantID)
		if err != nil {
			return err
		}
		return s.mutations.AppendTx(tx, &model.MutationLogEntry{
			TenantID:   tenantID,
			Sequence:   mseq,
			TerminalID: terminal,
			Table:      "orders",
			RecordID:   orderID,
			Operation:  model.OpUpdate,
		})
	})
	if txErr != nil {
		if errors.Is(txErr, ErrInvalidStatus) {
			return txErr
		}
		return fmt.Errorf("status transaction failed: %w", txErr)
	}

	if s.publisher != nil {
		s.publisher.Publish(ctx, realtime.StoreChannel(order.StoreID), realtime.EventStatusUpdate, StatusEvent{
			Type:    realtime.EventStatusUpdate,
			OrderID: orderID.String(),
			Status:  req.Status,
		})
	}
	return nil
}

func (s *orderService) GetOrder(ctx context.Context, tenantID, id uuid.UUID) (*dto.OrderResponse, error) {
	order, err := s.orders.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return orderToResponse(order), nil
}

func orderToResponse(o *model.Order) *dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(o.Lines))
	for _, line := range o.Lines {
		name := ""
		if line.Product != nil {
			name = line.Product.Name
		}
		var variantID *string
		if line.VariantID != nil {
			v := line.VariantID.String()
			variantID = &v
		}
		items = append(items, dto.OrderItemResponse{
			ProductID:  line.ProductID.String(),
			VariantID:  variantID,
			Product:    name,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			GrossTotal: line.GrossTotal,
		})
	}
	payments := make([]dto.PaymentRequest, 0, len(o.Payments))
	for _, p := range o.Payments {
		payments = append(payments, dto.PaymentRequest{Method: p.Method, Amount: p.Amount})
	}
	return &dto.OrderResponse{
		ID:             o.ID.String(),
		StoreID:        o.StoreID.String(),
		ReceiptNumber:  o.ReceiptNumber,
		Status:         o.Status,
		Items:          items,
		Payments:       payments,
		GrossTotal:     o.GrossTotal,
		TaxableTotal:   o.TaxableTotal,
		ExemptTotal:    o.ExemptTotal,
		ZeroRatedTotal: o.ZeroRatedTotal,
		CreatedAt:      o.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
