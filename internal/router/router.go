package router

import (
	"time"

	"github.com/zerofarias/varo-pos-sub000/internal/config"
	"github.com/zerofarias/varo-pos-sub000/internal/handler"
	"github.com/zerofarias/varo-pos-sub000/internal/infra"
	"github.com/zerofarias/varo-pos-sub000/internal/middleware"
	"github.com/zerofarias/varo-pos-sub000/internal/model"
	"github.com/zerofarias/varo-pos-sub000/internal/repository"
	"github.com/zerofarias/varo-pos-sub000/internal/service"
	"github.com/zerofarias/varo-pos-sub000/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, afipCB *infra.CircuitBreaker) *gin.Engine {
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
	userRepo := repository.NewUserRepository(db)
	branchRepo := repository.NewBranchRepository(db)
	productRepo := repository.NewProductRepository(db)
	stockMovRepo := repository.NewStockMovementRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	shiftRepo := repository.NewShiftRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	methodRepo := repository.NewPaymentMethodRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)

	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpirationHours, cfg.JWTRefreshHours)
	saleSvc := service.NewSaleService(saleRepo, productRepo, stockMovRepo, shiftRepo, customerRepo, methodRepo, branchRepo, dispatcher, cfg.TaxRatePct)
	shiftSvc := service.NewShiftService(shiftRepo)
	customerSvc := service.NewCustomerService(customerRepo, shiftRepo)
	stockSvc := service.NewStockService(productRepo, stockMovRepo)
	invoicingSvc := service.NewInvoicingService(invoiceRepo, dispatcher)
	methodSvc := service.NewPaymentMethodService(methodRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	salesH := handler.NewSalesHandler(saleSvc)
	shiftsH := handler.NewShiftsHandler(shiftSvc)
	customersH := handler.NewCustomersHandler(customerSvc)
	stockH := handler.NewStockHandler(stockSvc)
	invoicesH := handler.NewInvoicesHandler(invoicingSvc)
	methodsH := handler.NewPaymentMethodsHandler(methodSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, afipCB))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.RequireAuth(cfg.JWTSecret)
	anyRole := middleware.RequireRole(model.RoleCashier, model.RoleSupervisor, model.RoleAdmin)
	supervisorUp := middleware.RequireRole(model.RoleSupervisor, model.RoleAdmin)

	v1 := r.Group("/v1", jwtMW)
	{
		// Sales — cancellation and credit notes need supervisor+
		v1.POST("/sales", anyRole, salesH.CreateSale)
		v1.GET("/sales", anyRole, salesH.ListSales)
		v1.GET("/sales/:id", anyRole, salesH.GetSale)
		v1.DELETE("/sales/:id", supervisorUp, salesH.CancelSale)
		v1.POST("/sales/:id/credit-note", supervisorUp, salesH.CreateCreditNote)
		v1.GET("/sales/:id/invoice", anyRole, invoicesH.GetBySale)

		// Cash shifts
		shifts := v1.Group("/shifts")
		{
			shifts.POST("/open", anyRole, shiftsH.OpenShift)
			shifts.POST("/:id/close", anyRole, shiftsH.CloseShift)
			shifts.POST("/movements", anyRole, shiftsH.AddCashMovement)
			shifts.GET("/active", anyRole, shiftsH.ActiveShift)
			shifts.GET("/:id/report", anyRole, shiftsH.ShiftReport)
		}

		// Customer accounts
		customers := v1.Group("/customers")
		{
			customers.POST("/:id/payments", anyRole, customersH.RegisterPayment)
			customers.GET("/:id/balance", anyRole, customersH.Balance)
			customers.GET("/:id/movements", anyRole, customersH.Movements)
		}

		// Stock ledger
		v1.PATCH("/products/:id/stock", supervisorUp, stockH.AdjustStock)
		v1.GET("/stock/movements", supervisorUp, stockH.ListMovements)

		// Catalog support
		v1.GET("/payment-methods", anyRole, methodsH.List)

		// Fiscal records
		v1.POST("/invoices/:id/retry", supervisorUp, invoicesH.Retry)
	}

	return r
}
