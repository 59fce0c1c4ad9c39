// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"kardex/internal/domain/documents"
	"kardex/internal/domain/documents/adjustment"
	"kardex/internal/domain/documents/purchase"
	"kardex/internal/domain/documents/sale"
	"kardex/internal/domain/documents/salesreturn"
	"kardex/internal/domain/documents/transfer"
	"kardex/internal/domain/ledger"
	"kardex/internal/domain/posting"
	"kardex/internal/infrastructure/http/v1/handlers"
	"kardex/internal/infrastructure/http/v1/middleware"
	"kardex/internal/infrastructure/storage/postgres"
	"kardex/internal/infrastructure/storage/postgres/document_repo"
	"kardex/internal/infrastructure/storage/postgres/ledger_repo"
	"kardex/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Pool      *postgres.Pool
	TxManager *postgres.TxManager
	Logger    *logger.Logger
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(cfg.Pool.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Liveness)
		health.GET("/ready", healthHandler.Readiness)
	}

	// Repositories
	purchaseRepo := document_repo.NewPurchaseRepo(cfg.TxManager)
	saleRepo := document_repo.NewSaleRepo(cfg.TxManager)
	returnRepo := document_repo.NewSalesReturnRepo(cfg.TxManager)
	adjustmentRepo := document_repo.NewAdjustmentRepo(cfg.TxManager)
	transferRepo := document_repo.NewTransferRepo(cfg.TxManager)
	ledgerRepo := ledger_repo.NewLedgerRepo(cfg.TxManager)

	// Ledger machinery
	resolver := documents.NewResolver(purchaseRepo, saleRepo, returnRepo, adjustmentRepo, transferRepo)
	writer := ledger.NewWriter(ledgerRepo, resolver)
	guard := ledger.NewGuard(ledgerRepo)
	reprocessEngine := ledger.NewEngine(ledgerRepo, resolver, cfg.TxManager)
	postingEngine := posting.NewEngine(writer, guard, reprocessEngine, cfg.TxManager)

	// Services
	purchaseService := purchase.NewService(purchaseRepo, postingEngine, cfg.TxManager)
	saleService := sale.NewService(saleRepo, postingEngine, cfg.TxManager)
	returnService := salesreturn.NewService(returnRepo, postingEngine, cfg.TxManager)
	adjustmentService := adjustment.NewService(adjustmentRepo, postingEngine, cfg.TxManager)
	transferService := transfer.NewService(transferRepo, postingEngine, cfg.TxManager)

	baseHandler := handlers.NewBaseHandler()

	// API v1
	apiV1 := router.Group("/api/v1")
	{
		docsGroup := apiV1.Group("/document")

		RegisterDocumentRoutes(docsGroup.Group("/purchase"),
			handlers.NewPurchaseHandler(baseHandler, purchaseService))
		RegisterDocumentRoutes(docsGroup.Group("/sale"),
			handlers.NewSaleHandler(baseHandler, saleService))
		RegisterDocumentRoutes(docsGroup.Group("/sales-return"),
			handlers.NewSalesReturnHandler(baseHandler, returnService))
		RegisterDocumentRoutes(docsGroup.Group("/adjustment"),
			handlers.NewAdjustmentHandler(baseHandler, adjustmentService))
		RegisterDocumentRoutes(docsGroup.Group("/transfer"),
			handlers.NewTransferHandler(baseHandler, transferService))

		ledgerHandler := handlers.NewLedgerHandler(ledgerRepo, reprocessEngine)
		ledgerGroup := apiV1.Group("/ledger")
		{
			ledgerGroup.GET("/balances", ledgerHandler.ListBalances)
			ledgerGroup.GET("/balances/:storeId/:productId", ledgerHandler.GetBalance)
			ledgerGroup.GET("/entries", ledgerHandler.ListEntries)
			ledgerGroup.POST("/reprocess", ledgerHandler.Reprocess)
		}
	}

	return router
}
