package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"medibill/internal/config"
	"medibill/internal/domain"
	"medibill/internal/handler"
	"medibill/internal/middleware"
	"medibill/internal/service"
)

// Handlers groups the HTTP handlers mounted by Setup.
type Handlers struct {
	Auth   *handler.AuthHandler
	Bill   *handler.BillHandler
	Report *handler.ReportHandler
	Health *handler.HealthHandler
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(cfg *config.Config, log *zap.Logger, authSvc service.AuthService, h Handlers) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Health checks
	r.GET("/healthz", h.Health.Liveness)
	r.GET("/readyz", h.Health.Readiness)

	// API docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	var limit gin.HandlerFunc
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limit = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst).Middleware()
	}

	v1 := r.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	if limit != nil {
		auth.Use(limit)
	}
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.RefreshToken)

	// Protected routes - require valid JWT
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(authSvc))
	if limit != nil {
		protected.Use(limit)
	}

	supervisors := middleware.RequireRole(domain.RoleAdmin, domain.RoleAccountant)

	// Bill routes: any staff member bills and takes payments; edits and
	// cancellations need a supervisor.
	bills := protected.Group("/bills")
	bills.POST("", h.Bill.Create)
	bills.GET("", h.Bill.List)
	bills.GET("/:id", h.Bill.GetByID)
	bills.GET("/number/:billNumber", h.Bill.GetByNumber)
	bills.GET("/number/:billNumber/receipts", h.Bill.ListReceipts)
	bills.POST("/:id/payments", h.Bill.AddPayment)
	bills.PUT("/:id/items", supervisors, h.Bill.UpdateItems)
	bills.POST("/:id/cancel", supervisors, h.Bill.Cancel)

	// Report routes
	reports := protected.Group("/reports")
	reports.Use(supervisors)
	reports.GET("/doctor-payouts", h.Report.DoctorPayouts)
	reports.GET("/discount-refunds", h.Report.DiscountRefunds)
	reports.GET("/summary", h.Report.Summary)
	reports.GET("/:report/export", h.Report.Export)
	reports.POST("/:report/archive", h.Report.Archive)

	return r
}
