package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"tillsync/internal/dto"
	"tillsync/internal/infra"
	"tillsync/internal/model"
	"tillsync/internal/realtime"
	"tillsync/internal/repository"
	"tillsync/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ── Test environment ─────────────────────────────────────────────────────────

// newTestDB opens a per-test in-memory database with the full schema, so
// service tests run against real transactions and real rollback.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))
	return db
}

type env struct {
	db        *gorm.DB
	svc       service.OrderService
	inventory repository.InventoryRepository
	mutations repository.MutationLogRepository
	customers repository.CustomerRepository
	hub       *realtime.Hub

	tenantID uuid.UUID
	storeID  uuid.UUID
	staffID  uuid.UUID
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := newTestDB(t)
	hub := realtime.NewHub()

	orders := repository.NewOrderRepository(db)
	inventory := repository.NewInventoryRepository(db)
	sequences := repository.NewSequenceRepository(db)
	mutations := repository.NewMutationLogRepository(db)
	customers := repository.NewCustomerRepository(db)
	products := repository.NewProductRepository(db)

	publisher := realtime.NewPublisher(nil, hub)
	svc := service.NewOrderService(orders, inventory, sequences, mutations, customers, products, publisher, nil)

	e := &env{
		db: db, svc: svc,
		inventory: inventory, mutations: mutations, customers: customers,
		hub:      hub,
		tenantID: uuid.New(), storeID: uuid.New(), staffID: uuid.New(),
	}
	require.NoError(t, db.Create(&model.Tenant{ID: e.tenantID, Name: "Acme Foods", Active: true}).Error)
	require.NoError(t, db.Create(&model.Store{ID: e.storeID, TenantID: e.tenantID, Name: "Downtown", Active: true}).Error)
	require.NoError(t, db.Create(&model.StoreSequence{StoreID: e.storeID, TenantID: e.tenantID}).Error)
	return e
}

func (e *env) seedProduct(t *testing.T, name, category string, kitchen bool, stock int) *model.Product {
	t.Helper()
	p := &model.Product{
		TenantID:       e.tenantID,
		SKU:            strings.ToUpper(strings.ReplaceAll(name, " ", "-")),
		Name:           name,
		Category:       category,
		Price:          decimal.NewFromInt(10),
		RouteToKitchen: kitchen,
		Active:         true,
	}
	require.NoError(t, e.db.Create(p).Error)
	if stock >= 0 {
		require.NoError(t, e.db.Create(&model.InventoryRecord{
			TenantID: e.tenantID, StoreID: e.storeID, ProductID: p.ID, Quantity: stock,
		}).Error)
	}
	return p
}

func (e *env) seedCustomer(t *testing.T, tier string) *model.Customer {
	t.Helper()
	c := &model.Customer{TenantID: e.tenantID, Name: "Dana", Tier: tier}
	require.NoError(t, e.db.Create(c).Error)
	return c
}

func (e *env) orderReq(items ...dto.OrderItemRequest) dto.CreateOrderRequest {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.GrossTotal)
	}
	return dto.CreateOrderRequest{
		TenantID:     e.tenantID.String(),
		StoreID:      e.storeID.String(),
		StaffID:      e.staffID.String(),
		Items:        items,
		Payments:     []dto.PaymentRequest{{Method: "cash", Amount: total}},
		GrossTotal:   total,
		TaxableTotal: total,
	}
}

func line(p *model.Product, qty int) dto.OrderItemRequest {
	total := p.Price.Mul(decimal.NewFromInt(int64(qty)))
	return dto.OrderItemRequest{
		ProductID:    p.ID.String(),
		Quantity:     qty,
		UnitPrice:    p.Price,
		GrossTotal:   total,
		TaxableTotal: total,
	}
}

func (e *env) stock(t *testing.T, p *model.Product) int {
	t.Helper()
	rec, err := e.inventory.Find(context.Background(), e.storeID, p.ID, nil)
	require.NoError(t, err)
	return rec.Quantity
}

func (e *env) deltas(t *testing.T) []model.MutationLogEntry {
	t.Helper()
	entries, err := e.mutations.DeltasSince(context.Background(), e.tenantID, 0, 100)
	require.NoError(t, err)
	return entries
}

// ── CreateOrder ──────────────────────────────────────────────────────────────

func TestCreateOrder_HappyPath(t *testing.T) {
	e := newEnv(t)
	p := e.seedProduct(t, "Club Sandwich", "food", true, 10)

	resp, existing, err := e.svc.CreateOrder(context.Background(), e.orderReq(line(p, 3)))
	require.NoError(t, err)
	assert.False(t, existing)
	assert.Equal(t, model.StatusReceived, resp.Status)

	// Receipt: first-use counter, store-derived prefix.
	require.NotNil(t, resp.ReceiptNumber)
	wantPrefix := strings.ToUpper(strings.ReplaceAll(e.storeID.String(), "-", "")[:8])
	assert.Equal(t, wantPrefix+"-000001", *resp.ReceiptNumber)

	// Stock decremented and mirrored by exactly one sale ledger row.
	assert.Equal(t, 7, e.stock(t, p))
	var ledger []model.InventoryLedgerEntry
	require.NoError(t, e.db.Find(&ledger, "tenant_id = ?", e.tenantID).Error)
	require.Len(t, ledger, 1)
	assert.Equal(t, model.LedgerSale, ledger[0].Type)
	assert.Equal(t, -3, ledger[0].Delta)
	require.NotNil(t, ledger[0].OrderID)
	assert.Equal(t, resp.ID, ledger[0].OrderID.String())

	// Change feed: one insert entry at sequence 1.
	entries := e.deltas(t)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].Sequence)
	assert.Equal(t, "orders", entries[0].Table)
	assert.Equal(t, model.OpInsert, entries[0].Operation)
	assert.Equal(t, resp.ID, entries[0].RecordID.String())
}

func TestCreateOrder_ReceiptsAreMonotonic(t *testing.T) {
	e := newEnv(t)
	p := e.seedProduct(t, "Espresso", "drinks", false, 100)

	var receipts []string
	for i := 0; i < 3; i++ {
		resp, _, err := e.svc.CreateOrder(context.Background(), e.orderReq(line(p, 1)))
		require.NoError(t, err)
		require.NotNil(t, resp.ReceiptNumber)
		receipts = append(receipts, *resp.ReceiptNumber)
	}
	assert.True(t, strings.HasSuffix(receipts[0], "-000001"))
	assert.True(t, strings.HasSuffix(receipts[1], "-000002"))
	assert.True(t, strings.HasSuffix(receipts[2], "-000003"))
}

func TestCreateOrder_ConcurrentSubmissionsGetDistinctSequences(t *testing.T) {
	e := newEnv(t)
	// Single connection: sqlite allows one writer, so commits serialize at
	// the pool instead of failing with a busy error. The submissions still
	// race through the full pipeline concurrently.
	sqlDB, err := e.db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	p := e.seedProduct(t, "Flat White", "drinks", false, 100)

	const n = 8
	receipts := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, _, err := e.svc.CreateOrder(context.Background(), e.orderReq(line(p, 1)))
			if assert.NoError(t, err) && resp.ReceiptNumber != nil {
				receipts <- *resp.ReceiptNumber
			}
		}()
	}
	wg.Wait()
	close(receipts)

	// Every committed order got its own receipt number and its own
	// mutation-log sequence; no value was issued twice.
	seen := map[string]bool{}
	for r := range receipts {
		assert.False(t, seen[r], "receipt %s issued twice", r)
		seen[r] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, 100-n, e.stock(t, p))

	entries := e.deltas(t)
	require.Len(t, entries, n)
	for i, entry := range entries {
		assert.Equal(t, int64(i+1), entry.Sequence)
	}
}

func TestCreateOrder_MissingSequenceRowMeansNoReceipt(t *testing.T) {
	e := newEnv(t)
	// Second store with inventory but no receipt counter provisioned.
	bareStore := uuid.New()
	require.NoError(t, e.db.Create(&model.Store{ID: bareStore, TenantID: e.tenantID, Name: "Pop-up", Active: true}).Error)
	p := e.seedProduct(t, "Lemonade", "drinks", false, -1)
	require.NoError(t, e.db.Create(&model.InventoryRecord{
		TenantID: e.tenantID, StoreID: bareStore, ProductID: p.ID, Quantity: 5,
	}).Error)

	req := e.orderReq(line(p, 1))
	req.StoreID = bareStore.String()
	resp, _, err := e.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, resp.ReceiptNumber)
	assert.Equal(t, model.StatusReceived, resp.Status)
}

func TestCreateOrder_IdempotentResubmit(t *testing.T) {
	e := newEnv(t)
	p := e.seedProduct(t, "Burger", "food", true, 10)

	tempID := uuid.NewString()
	req := e.orderReq(line(p, 3))
	req.TempID = &tempID

	first, existing, err := e.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	require.False(t, existing)

	second, existing, err := e.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, existing)
	assert.Equal(t, first.ID, second.ID)

	// No side effects ran twice.
	assert.Equal(t, 7, e.stock(t, p))
	assert.Len(t, e.deltas(t), 1)
	var count int64
	require.NoError(t, e.db.Model(&model.Order{}).Where("tenant_id = ?", e.tenantID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateOrder_RollbackLeavesNothingBehind(t *testing.T) {
	e := newEnv(t)
	good := e.seedProduct(t, "Salad", "food", false, 10)
	noStock := e.seedProduct(t, "Truffle Pasta", "food", false, -1) // no inventory record

	_, _, err := e.svc.CreateOrder(context.Background(), e.orderReq(line(good, 2), line(noStock, 1)))
	require.Error(t, err)

	// The whole transaction rolled back: no order, no lines, no ledger, no
	// change-feed entry, and the first line's decrement was undone.
	assert.Equal(t, 10, e.stock(t, good))
	assert.Empty(t, e.deltas(t))
	var orders, ledger int64
	require.NoError(t, e.db.Model(&model.Order{}).Count(&orders).Error)
	require.NoError(t, e.db.Model(&model.InventoryLedgerEntry{}).Count(&ledger).Error)
	assert.Zero(t, orders)
	assert.Zero(t, ledger)
}

func TestCreateOrder_QuantityMatchesLedgerSum(t *testing.T) {
	e := newEnv(t)
	p := e.seedProduct(t, "Ramen", "food", true, 20)

	for _, qty := range []int{3, 5, 1} {
		_, _, err := e.svc.CreateOrder(context.Background(), e.orderReq(line(p, qty)))
		require.NoError(t, err)
	}
	rec, err := e.inventory.Find(context.Background(), e.storeID, p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 11, rec.Quantity)

	sum, err := e.inventory.SumLedger(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.EqualValues(t, -9, sum)
}

func TestCreateOrder_OversellCommitsWithNegativeStock(t *testing.T) {
	e := newEnv(t)
	p := e.seedProduct(t, "Daily Special", "food", true, 2)

	// Offline terminals can sell past on-hand; the decrement still applies
	// and the ledger keeps the books consistent.
	_, _, err := e.svc.CreateOrder(context.Background(), e.orderReq(line(p, 5)))
	require.NoError(t, err)
	assert.Equal(t, -3, e.stock(t, p))
}

func TestCreateOrder_UnknownProductIsValidationError(t *testing.T) {
	e := newEnv(t)
	ghost := &model.Product{ID: uuid.New(), Price: decimal.NewFromInt(10)}

	_, _, err := e.svc.CreateOrder(context.Background(), e.orderReq(line(ghost, 1)))
	require.ErrorIs(t, err, service.ErrValidation)
}

func TestCreateOrder_LoyaltyAward(t *testing.T) {
	e := newEnv(t)
	p := e.seedProduct(t, "Tasting Menu", "food", false, 50)
	c := e.seedCustomer(t, model.TierMid)

	// 10.00 × 21 = 210.00 total; mid tier ×1.2 = 252 points.
	req := e.orderReq(line(p, 21))
	cid := c.ID.String()
	req.CustomerID = &cid

	resp, _, err := e.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	assert.EqualValues(t, 252, resp.PointsEarned)

	stored, err := e.customers.FindByID(context.Background(), e.tenantID, c.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 252, stored.Points)
	assert.Equal(t, "210", stored.CumulativeSpend.String())

	var entries []model.LoyaltyLedgerEntry
	require.NoError(t, e.db.Find(&entries, "customer_id = ?", c.ID).Error)
	require.Len(t, entries, 1)
	assert.EqualValues(t, 252, entries[0].Points)
	assert.Equal(t, "sale", entries[0].Reason)
}

func TestCreateOrder_LoyaltyPointsAreFloored(t *testing.T) {
	e := newEnv(t)
	p := e.seedProduct(t, "Petit Four", "desserts", false, 50)
	p.Price = decimal.RequireFromString("10.25")
	require.NoError(t, e.db.Save(p).Error)
	c := e.seedCustomer(t, model.TierTop)

	// 10.25 × 1.5 = 15.375 → 15 points.
	req := e.orderReq(line(p, 1))
	cid := c.ID.String()
	req.CustomerID = &cid

	resp, _, err := e.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	assert.EqualValues(t, 15, resp.PointsEarned)
}

// ── Fan-out ──────────────────────────────────────────────────────────────────

func TestCreateOrder_FanOutAfterCommit(t *testing.T) {
	e := newEnv(t)
	beer := e.seedProduct(t, "Lager", "drinks", true, 10)
	cake := e.seedProduct(t, "Cheesecake", "desserts", true, 10)
	napkins := e.seedProduct(t, "Napkins", "supplies", false, 10)

	storeCh, cancelStore := e.hub.Subscribe(realtime.StoreChannel(e.storeID))
	defer cancelStore()
	barCh, cancelBar := e.hub.Subscribe(realtime.StationChannel(e.storeID, "bar"))
	defer cancelBar()
	pastryCh, cancelPastry := e.hub.Subscribe(realtime.StationChannel(e.storeID, "pastry"))
	defer cancelPastry()
	kitchenCh, cancelKitchen := e.hub.Subscribe(realtime.StationChannel(e.storeID, "kitchen"))
	defer cancelKitchen()

	resp, _, err := e.svc.CreateOrder(context.Background(), e.orderReq(line(beer, 2), line(cake, 1), line(napkins, 1)))
	require.NoError(t, err)

	// Store channel sees the full order.
	var msg realtime.Message
	require.NoError(t, json.Unmarshal(<-storeCh, &msg))
	assert.Equal(t, realtime.EventOrderFired, msg.Type)
	var full dto.OrderResponse
	require.NoError(t, json.Unmarshal(msg.Payload, &full))
	assert.Equal(t, resp.ID, full.ID)
	assert.Len(t, full.Items, 3)

	// Stations see only their own lines; non-kitchen products route nowhere.
	require.NoError(t, json.Unmarshal(<-barCh, &msg))
	var barOrder dto.OrderResponse
	require.NoError(t, json.Unmarshal(msg.Payload, &barOrder))
	require.Len(t, barOrder.Items, 1)
	assert.Equal(t, beer.ID.String(), barOrder.Items[0].ProductID)

	require.NoError(t, json.Unmarshal(<-pastryCh, &msg))
	var pastryOrder dto.OrderResponse
	require.NoError(t, json.Unmarshal(msg.Payload, &pastryOrder))
	require.Len(t, pastryOrder.Items, 1)
	assert.Equal(t, cake.ID.String(), pastryOrder.Items[0].ProductID)

	select {
	case m := <-kitchenCh:
		t.Fatalf("kitchen station should be silent, got %s", m)
	default:
	}
}

func TestCreateOrder_NoFanOutOnRollback(t *testing.T) {
	e := newEnv(t)
	p := e.seedProduct(t, "Stew", "food", true, -1) // no inventory record

	storeCh, cancel := e.hub.Subscribe(realtime.StoreChannel(e.storeID))
	defer cancel()

	_, _, err := e.svc.CreateOrder(context.Background(), e.orderReq(line(p, 1)))
	require.Error(t, err)

	select {
	case m := <-storeCh:
		t.Fatalf("fan-out must not fire for a rolled-back order, got %s", m)
	default:
	}
}

// ── UpdateStatus ─────────────────────────────────────────────────────────────

func TestUpdateStatus_FullLifecycle(t *testing.T) {
	e := newEnv(t)
	p := e.seedProduct(t, "Pizza", "food", true, 10)
	resp, _, err := e.svc.CreateOrder(context.Background(), e.orderReq(line(p, 1)))
	require.NoError(t, err)
	orderID := uuid.MustParse(resp.ID)

	for _, status := range []string{model.StatusPreparing, model.StatusReady, model.StatusCompleted} {
		require.NoError(t, e.svc.UpdateStatus(context.Background(), orderID, dto.UpdateStatusRequest{
			TenantID: e.tenantID.String(), Status: status,
		}))
	}

	// A terminal order refuses further transitions.
	err = e.svc.UpdateStatus(context.Background(), orderID, dto.UpdateStatusRequest{
		TenantID: e.tenantID.String(), Status: model.StatusCancelled,
	})
	require.ErrorIs(t, err, service.ErrInvalidStatus)

	// Each transition appended one change-feed entry after the insert.
	entries := e.deltas(t)
	require.Len(t, entries, 4)
	for i, entry := range entries {
		assert.Equal(t, int64(i+1), entry.Sequence)
	}
	assert.Equal(t, model.OpUpdate, entries[3].Operation)
}

func TestUpdateStatus_SkippingAStageIsRejected(t *testing.T) {
	e := newEnv(t)
	p := e.seedProduct(t, "Tacos", "food", true, 10)
	resp, _, err := e.svc.CreateOrder(context.Background(), e.orderReq(line(p, 1)))
	require.NoError(t, err)

	err = e.svc.UpdateStatus(context.Background(), uuid.MustParse(resp.ID), dto.UpdateStatusRequest{
		TenantID: e.tenantID.String(), Status: model.StatusReady,
	})
	require.ErrorIs(t, err, service.ErrInvalidStatus)
}

func TestUpdateStatus_UnknownValue(t *testing.T) {
	e := newEnv(t)
	err := e.svc.UpdateStatus(context.Background(), uuid.New(), dto.UpdateStatusRequest{
		TenantID: e.tenantID.String(), Status: "burnt",
	})
	require.ErrorIs(t, err, service.ErrInvalidStatus)
}

func TestUpdateStatus_UnknownOrder(t *testing.T) {
	e := newEnv(t)
	err := e.svc.UpdateStatus(context.Background(), uuid.New(), dto.UpdateStatusRequest{
		TenantID: e.tenantID.String(), Status: model.StatusPreparing,
	})
	require.ErrorIs(t, err, service.ErrOrderNotFound)
}

func TestUpdateStatus_LostRaceDoesNotOverwriteNewerState(t *testing.T) {
	e := newEnv(t)
	p := e.seedProduct(t, "Udon", "food", true, 10)
	resp, _, err := e.svc.CreateOrder(context.Background(), e.orderReq(line(p, 1)))
	require.NoError(t, err)
	orderID := uuid.MustParse(resp.ID)

	require.NoError(t, e.svc.UpdateStatus(context.Background(), orderID, dto.UpdateStatusRequest{
		TenantID: e.tenantID.String(), Status: model.StatusCancelled,
	}))

	// A terminal that validated against the pre-cancel state writes with a
	// stale from-status: the conditional update matches nothing and the
	// cancelled order stays cancelled.
	orders := repository.NewOrderRepository(e.db)
	txErr := e.db.Transaction(func(tx *gorm.DB) error {
		return orders.UpdateStatusTx(tx, orderID, model.StatusReceived, model.StatusPreparing)
	})
	require.ErrorIs(t, txErr, gorm.ErrRecordNotFound)

	stored, err := e.svc.GetOrder(context.Background(), e.tenantID, orderID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, stored.Status)

	// No change-feed entry for the transition that never happened.
	assert.Len(t, e.deltas(t), 2)
}

func TestUpdateStatus_MutationNamesTheActingTerminal(t *testing.T) {
	e := newEnv(t)
	p := e.seedProduct(t, "Bibimbap", "food", true, 10)
	creator := "till-1"
	req := e.orderReq(line(p, 1))
	req.TerminalID = &creator
	resp, _, err := e.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	orderID := uuid.MustParse(resp.ID)

	// Kitchen display advances the order: its id lands on the feed entry.
	kitchen := "kds-3"
	require.NoError(t, e.svc.UpdateStatus(context.Background(), orderID, dto.UpdateStatusRequest{
		TenantID: e.tenantID.String(), Status: model.StatusPreparing, TerminalID: &kitchen,
	}))
	// No terminal on the request: fall back to the creating terminal.
	require.NoError(t, e.svc.UpdateStatus(context.Background(), orderID, dto.UpdateStatusRequest{
		TenantID: e.tenantID.String(), Status: model.StatusReady,
	}))

	entries := e.deltas(t)
	require.Len(t, entries, 3)
	assert.Equal(t, "kds-3", entries[1].TerminalID)
	assert.Equal(t, "till-1", entries[2].TerminalID)
}

func TestUpdateStatus_CancelFromAnyActiveState(t *testing.T) {
	e := newEnv(t)
	p := e.seedProduct(t, "Curry", "food", true, 10)
	resp, _, err := e.svc.CreateOrder(context.Background(), e.orderReq(line(p, 1)))
	require.NoError(t, err)
	orderID := uuid.MustParse(resp.ID)

	require.NoError(t, e.svc.UpdateStatus(context.Background(), orderID, dto.UpdateStatusRequest{
		TenantID: e.tenantID.String(), Status: model.StatusPreparing,
	}))
	require.NoError(t, e.svc.UpdateStatus(context.Background(), orderID, dto.UpdateStatusRequest{
		TenantID: e.tenantID.String(), Status: model.StatusCancelled,
	}))

	stored, err := e.svc.GetOrder(context.Background(), e.tenantID, orderID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, stored.Status)
}
