// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/variance"
	"stockledger/internal/infrastructure/http/v1/handlers"
	"stockledger/internal/infrastructure/http/v1/middleware"
	"stockledger/pkg/logger"
)

// Catalog is the catalog read side the API needs.
type Catalog interface {
	handlers.CatalogReader
	handlers.LocationReader
}

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// Release switches gin to release mode
	Release bool

	// AppName and Version are reported by /health/info
	AppName string
	Version string

	// HealthChecks must all pass for /health/ready
	HealthChecks map[string]handlers.Pinger

	// Idempotency enables X-Idempotency-Key replay when non-nil
	Idempotency middleware.IdempotencyStore

	// MaxBodySize caps request bodies (0 disables)
	MaxBodySize int64

	// Variance is the configured NCR trigger policy used by the calculator
	Variance *variance.Config

	Periods         handlers.PeriodService
	Deliveries      handlers.DeliveryService
	Issues          handlers.IssueService
	Transfers       handlers.TransferService
	NCRs            handlers.NCRService
	Reconciliations handlers.ReconciliationService
	Stock           handlers.StockReader
	Catalog         Catalog
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Order matters: errors recorded by Recovery are rendered by ErrorHandler.
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())

	health := handlers.NewHealthHandler(cfg.AppName, cfg.Version, cfg.HealthChecks)
	hg := router.Group("/health")
	{
		hg.GET("/live", health.Live)
		hg.GET("/ready", health.Ready)
		hg.GET("/info", health.Info)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.BodyLimit(cfg.MaxBodySize))
	api.Use(middleware.Actor())
	if cfg.Idempotency != nil {
		api.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()

	periodHandler := handlers.NewPeriodHandler(base, cfg.Periods, cfg.Catalog)
	periods := api.Group("/periods")
	periodHandler.RegisterRoutes(periods)
	handlers.NewReconciliationHandler(base, cfg.Reconciliations, cfg.Periods, cfg.Catalog).RegisterRoutes(periods)
	api.POST("/approvals/:id/resolve", periodHandler.ResolveApproval)

	Mount(api, map[string]RouteRegistrar{
		"/deliveries":  handlers.NewDeliveryHandler(base, cfg.Deliveries),
		"/issues":      handlers.NewIssueHandler(base, cfg.Issues),
		"/transfers":   handlers.NewTransferHandler(base, cfg.Transfers),
		"/ncrs":        handlers.NewNCRHandler(base, cfg.NCRs),
		"/stock":       handlers.NewStockHandler(base, cfg.Stock),
		"/catalog":     handlers.NewCatalogHandler(base, cfg.Catalog),
		"/calculators": handlers.NewCalculatorHandler(base, cfg.Variance),
	})

	return router
}
