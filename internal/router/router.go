package router

import (
	"context"
	"time"

	"github.com/eoivo/embala-fest-sub001/internal/config"
	"github.com/eoivo/embala-fest-sub001/internal/handler"
	"github.com/eoivo/embala-fest-sub001/internal/metrics"
	"github.com/eoivo/embala-fest-sub001/internal/middleware"
	"github.com/eoivo/embala-fest-sub001/internal/model"
	"github.com/eoivo/embala-fest-sub001/internal/repository"
	"github.com/eoivo/embala-fest-sub001/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	admin   = model.RoleAdmin
	manager = model.RoleManager
	cashier = model.RoleCashier
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// ctx bounds the rate limiters' purge goroutines.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client, mail handler.MailStatus, scheduler handler.AutoCloseScheduler) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	apiLimiter := middleware.APIRateLimiter(1000, time.Minute) // 1000 req/min per IP
	loginLimiter := middleware.LoginRateLimiter()
	go apiLimiter.Purge(ctx, 5*time.Minute)
	go loginLimiter.Purge(ctx, 5*time.Minute)

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()...))
	r.Use(metrics.Middleware())
	r.Use(middleware.ErrorHandler())
	r.Use(apiLimiter.Middleware())

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	registerRepo := repository.NewRegisterRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	productRepo := repository.NewProductRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	consumerRepo := repository.NewConsumerRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, cfg)
	registerSvc := service.NewRegisterService(registerRepo, authSvc)
	saleSvc := service.NewSaleService(saleRepo, registerSvc, productRepo, consumerRepo)
	productSvc := service.NewProductService(productRepo, supplierRepo)
	supplierSvc := service.NewSupplierService(supplierRepo)
	consumerSvc := service.NewConsumerService(consumerRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usersH := handler.NewUsersHandler(authSvc)
	registerH := handler.NewRegisterHandler(registerSvc, cfg.StoreName)
	settingsH := handler.NewSettingsHandler(scheduler)
	saleH := handler.NewSaleHandler(saleSvc)
	productH := handler.NewProductHandler(productSvc)
	supplierH := handler.NewSupplierHandler(supplierSvc)
	consumerH := handler.NewConsumerHandler(consumerSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, mail))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	auth := r.Group("/auth")
	{
		auth.POST("/login", loginLimiter.Middleware(), authH.Login)
		auth.POST("/refresh", loginLimiter.Middleware(), authH.Refresh)
	}

	// Protected routes
	api := r.Group("", middleware.JWTAuth(cfg.JWTSecret))
	anyRole := middleware.RequireRole(admin, manager, cashier)
	managers := middleware.RequireRole(admin, manager)

	RegisterRoutes(api, registerH, anyRole, managers)
	SettingsRoutes(api, settingsH, anyRole, middleware.RequireRole(admin))

	sales := api.Group("/sales", anyRole)
	{
		sales.POST("", saleH.Create)
		sales.GET("", saleH.ListCurrent)
		sales.GET("/:id", saleH.Get)
		sales.POST("/:id/cancel", managers, saleH.Cancel)
	}

	products := api.Group("/products", anyRole)
	{
		products.GET("", productH.List)
		products.GET("/:id", productH.Get)
		products.POST("", managers, productH.Create)
		products.PUT("/:id", managers, productH.Update)
		products.DELETE("/:id", managers, productH.Deactivate)
	}

	suppliers := api.Group("/suppliers", anyRole)
	{
		suppliers.GET("", supplierH.List)
		suppliers.GET("/:id", supplierH.Get)
		suppliers.POST("", managers, supplierH.Create)
		suppliers.PUT("/:id", managers, supplierH.Update)
		suppliers.DELETE("/:id", managers, supplierH.Deactivate)
	}

	consumers := api.Group("/consumers", anyRole)
	{
		consumers.GET("", consumerH.Search)
		consumers.GET("/:id", consumerH.Get)
		consumers.POST("", consumerH.Create)
		consumers.PUT("/:id", managers, consumerH.Update)
		consumers.DELETE("/:id", managers, consumerH.Delete)
	}

	users := api.Group("/users", middleware.RequireRole(admin))
	{
		users.POST("", usersH.Create)
		users.GET("", usersH.List)
		users.PUT("/:id", usersH.Update)
		users.DELETE("/:id", usersH.Deactivate)
		users.PATCH("/:id/reactivate", usersH.Reactivate)
	}

	// Swagger UI, only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}

// RegisterRoutes mounts the cash-register endpoints. Reports are restricted
// to managers and admins.
func RegisterRoutes(g *gin.RouterGroup, h *handler.RegisterHandler, anyRole, managers gin.HandlerFunc) {
	reg := g.Group("/register", anyRole)
	reg.POST("/open", h.Open)
	reg.POST("/close", h.Close)
	reg.POST("/withdrawal", h.Withdrawal)
	reg.GET("/current", h.Current)
	reg.GET("/history", h.History)
	reg.GET("/dashboard", h.Dashboard)
	reg.GET("/:id/report", managers, h.Report)
}

// SettingsRoutes mounts the auto-close settings; writes are admin-only.
func SettingsRoutes(g *gin.RouterGroup, h *handler.SettingsHandler, anyRole, admins gin.HandlerFunc) {
	s := g.Group("/settings", anyRole)
	s.GET("/auto-close", h.GetAutoClose)
	s.PUT("/auto-close", admins, h.SetAutoClose)
}
