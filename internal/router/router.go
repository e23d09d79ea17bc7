package router

import (
	"time"

	"tillsync/internal/config"
	"tillsync/internal/handler"
	"tillsync/internal/middleware"
	"tillsync/internal/realtime"
	"tillsync/internal/repository"
	"tillsync/internal/service"
	"tillsync/internal/tenantctx"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, hub *realtime.Hub) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	orderRepo := repository.NewOrderRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	mutationRepo := repository.NewMutationLogRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	productRepo := repository.NewProductRepository(db)
	recordRepo := repository.NewRecordRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	publisher := realtime.NewPublisher(rdb, hub)
	scope := tenantctx.NewScope(db)
	orderSvc := service.NewOrderService(orderRepo, inventoryRepo, sequenceRepo, mutationRepo, customerRepo, productRepo, publisher, scope)
	syncSvc := service.NewSyncService(mutationRepo, recordRepo)
	inventorySvc := service.NewInventoryService(inventoryRepo, sequenceRepo, mutationRepo, scope)

	// ── Handlers ─────────────────────────────────────────────────────────────
	ordersH := handler.NewOrdersHandler(orderSvc)
	syncH := handler.NewSyncHandler(syncSvc)
	inventoryH := handler.NewInventoryHandler(inventorySvc)
	streamH := handler.NewStreamHandler(hub)

	// ── Routes ───────────────────────────────────────────────────────────────

	r.GET("/health", handler.Health(db, rdb))

	v1 := r.Group("/v1")
	{
		// Writes carry tenant_id in the body.
		v1.POST("/orders", ordersH.Create)
		v1.PUT("/orders/:id/status", ordersH.UpdateStatus)
		v1.POST("/inventory/receive", inventoryH.Receive)

		// Tenant-scoped reads require X-Tenant-ID.
		scoped := v1.Group("", middleware.TenantHeader())
		{
			scoped.GET("/orders/:id", ordersH.Get)
			scoped.GET("/sync", syncH.Deltas)
			scoped.GET("/records/:table/:id", syncH.Record)
		}

		// Kitchen display stream: join a store or station channel.
		v1.GET("/stream", streamH.Join)
	}

	return r
}
