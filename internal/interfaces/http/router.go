// Package http wires the gin engine, its middleware chain and the REST routes.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/advisorhub/internal/application/dto"
	"github.com/turtacn/advisorhub/internal/config"
	"github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/internal/infrastructure/monitoring"
	"github.com/turtacn/advisorhub/internal/interfaces/http/handlers"
	"github.com/turtacn/advisorhub/internal/interfaces/http/middleware"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
)

// Handlers groups the HTTP handlers served by the router.
type Handlers struct {
	Health     *handlers.HealthHandler
	Auth       *handlers.AuthHandler
	Firm       *handlers.FirmHandler
	Client     *handlers.ClientHandler
	Engagement *handlers.EngagementHandler
	Document   *handlers.DocumentHandler
	Report     *handlers.ReportHandler
	Workbook   *handlers.WorkbookHandler
	Audit      *handlers.AuditHandler
}

// Dependencies are the infrastructure pieces the middleware chain needs.
type Dependencies struct {
	Tokens      service.TokenManager
	Blacklist   service.TokenBlacklistStore
	RateLimiter service.RateLimitService
	Idempotency middleware.IdempotencyStore
	Metrics     *monitoring.Metrics
	Tracer      trace.Tracer
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	config   *config.Config
	logger   logger.Logger
	handlers *Handlers
	deps     *Dependencies
	server   *http.Server
}

// NewRouter 创建路由器
func NewRouter(cfg *config.Config, log logger.Logger, h *Handlers, deps *Dependencies) *Router {
	// 设置 Gin 模式
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer("advisorhub/http")
	}

	r := &Router{
		engine:   gin.New(),
		config:   cfg,
		logger:   log.WithComponent("HTTPRouter"),
		handlers: h,
		deps:     deps,
	}
	r.setupRoutes()
	return r
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	h := r.handlers
	metrics := monitoring.NewMetricsAdapter(r.deps.Metrics)

	// 全局中间件
	r.engine.Use(
		middleware.RequestID(),
		middleware.Recovery(r.logger),
		middleware.Observability(r.deps.Tracer, metrics),
		middleware.Logging(r.logger),
		cors.New(r.corsConfig()),
	)

	// 健康检查路由（不需要认证）
	r.engine.GET("/health", h.Health.HealthCheck)
	r.engine.GET("/ready", h.Health.ReadinessCheck)
	r.engine.GET("/live", h.Health.LivenessCheck)

	// Prometheus metrics
	if r.deps.Metrics != nil {
		r.engine.GET("/metrics", gin.WrapH(r.deps.Metrics.Handler()))
	}

	// Pprof 性能分析（仅在非生产环境）
	if !r.config.IsProduction() {
		pprof.Register(r.engine)
	}

	rateLimit := middleware.RateLimit(r.deps.RateLimiter, &r.config.RateLimit, metrics, r.logger)
	idempotency := middleware.Idempotency(r.deps.Idempotency, &r.config.Idempotency, r.logger)
	requireAdmin := middleware.RequireRoles(constants.RoleFirmAdmin)

	v1 := r.engine.Group("/api/v1")

	// Public routes are limited per client IP
	public := v1.Group("/auth", rateLimit, idempotency)
	{
		public.POST("/register", h.Auth.Register)
		public.POST("/login", h.Auth.Login)
	}

	// Authenticated routes are limited per user
	api := v1.Group("", middleware.RequireJWT(r.deps.Tokens, r.deps.Blacklist, r.logger), rateLimit, idempotency)

	auth := api.Group("/auth")
	{
		auth.POST("/logout", h.Auth.Logout)
		auth.GET("/me", h.Auth.Me)
		auth.POST("/password", h.Auth.ChangePassword)
	}

	users := api.Group("/users", requireAdmin)
	{
		users.GET("", h.Auth.ListUsers)
		users.POST("", h.Auth.InviteUser)
		users.POST("/:user_id/deactivate", h.Auth.DeactivateUser)
	}

	firm := api.Group("/firm")
	{
		firm.GET("", h.Firm.GetFirm)
		firm.PUT("", requireAdmin, h.Firm.UpdateFirm)
		firm.GET("/usage", h.Firm.GetUsage)
		firm.PUT("/subscription", requireAdmin, h.Firm.ChangePlan)
	}

	clients := api.Group("/clients")
	{
		clients.GET("", h.Client.List)
		clients.POST("", h.Client.Create)
		clients.GET("/:client_id", h.Client.Get)
		clients.PUT("/:client_id", h.Client.Update)
		clients.DELETE("/:client_id", h.Client.Delete)
	}

	engagements := api.Group("/engagements")
	{
		engagements.GET("", h.Engagement.List)
		engagements.POST("", h.Engagement.Create)
		engagements.GET("/:engagement_id", h.Engagement.Get)
		engagements.PUT("/:engagement_id", h.Engagement.Update)
		engagements.POST("/:engagement_id/transition", h.Engagement.Transition)
		engagements.GET("/:engagement_id/documents", h.Document.List)
		engagements.POST("/:engagement_id/documents", h.Document.Upload)
		engagements.GET("/:engagement_id/reports", h.Report.List)
		engagements.GET("/:engagement_id/workbooks", h.Workbook.List)
	}

	documents := api.Group("/documents")
	{
		documents.GET("/:document_id/content", h.Document.Download)
		documents.DELETE("/:document_id", h.Document.Delete)
	}

	api.GET("/bba/catalog", middleware.ETagCache(5*time.Minute), h.Report.Catalog)
	reports := api.Group("/reports")
	{
		reports.POST("", h.Report.Start)
		reports.GET("/:report_id", h.Report.Get)
		reports.GET("/:report_id/status", h.Report.Status)
		reports.PUT("/:report_id/responses", h.Report.SubmitResponses)
		reports.POST("/:report_id/steps", h.Report.RunStep)
		reports.POST("/:report_id/cancel", h.Report.Cancel)
		reports.GET("/:report_id/export", h.Report.Export)
	}

	workbooks := api.Group("/workbooks")
	{
		workbooks.POST("", h.Workbook.Extract)
		workbooks.GET("/:workbook_id", h.Workbook.Get)
		workbooks.PATCH("/:workbook_id", h.Workbook.Update)
		workbooks.GET("/:workbook_id/export", h.Workbook.Export)
	}

	api.GET("/audit-events", requireAdmin, h.Audit.List)

	platform := api.Group("/admin", middleware.RequireRoles(constants.RolePlatformAdmin))
	{
		platform.GET("/firms", h.Firm.ListFirms)
		platform.PUT("/firms/:firm_id/status", h.Firm.SetFirmStatus)
	}

	// 404 处理
	r.engine.NoRoute(func(c *gin.Context) {
		dto.SendError(c, errors.ErrNotFound("route", c.Request.URL.Path))
	})
}

// corsConfig allows the configured origins; bearer tokens travel in headers so credentials stay off.
func (r *Router) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", constants.HeaderRequestID, constants.HeaderIdempotencyKey},
		ExposeHeaders: []string{constants.HeaderRequestID, constants.HeaderRateLimitLimit, constants.HeaderRateLimitRemaining, constants.HeaderRetryAfter},
		MaxAge:        12 * time.Hour,
	}
	origins := r.config.Server.CORSOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// Engine exposes the gin engine, mainly for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Start 启动 HTTP 服务器; it blocks until the server stops.
func (r *Router) Start() error {
	addr := r.config.Server.Addr()
	r.server = &http.Server{
		Addr:              addr,
		Handler:           r.engine,
		ReadTimeout:       r.config.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      r.config.Server.WriteTimeout,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	r.logger.Info(context.Background(), "Starting HTTP server", logger.String("address", addr))
	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop 停止 HTTP 服务器
func (r *Router) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	r.logger.Info(ctx, "Stopping HTTP server...")
	return r.server.Shutdown(ctx)
}

//Personal.AI order the ending
