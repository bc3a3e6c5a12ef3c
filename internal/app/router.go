package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"fleetops/internal/handler"
	"fleetops/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	DriverHandler   *handler.DriverHandler
	BondHandler     *handler.BondHandler
	IncidentHandler *handler.IncidentHandler
	UserHandler     *handler.UserHandler
	RedisClient     *redis.Client
	NewRelicApp     *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// User routes.
		users := v1.Group("/users")
		{
			users.POST("/register", deps.UserHandler.Register)
			users.GET("", deps.UserHandler.GetAll)
		}

		// Driver routes.
		drivers := v1.Group("/drivers")
		{
			drivers.POST("/register", deps.DriverHandler.Register)
			drivers.GET("", deps.DriverHandler.GetAll)
			drivers.GET("/:id", deps.DriverHandler.Get)

			// Security bond routes.
			drivers.GET("/:id/bond", deps.BondHandler.GetBalance)
			drivers.GET("/:id/bond/sufficiency", deps.BondHandler.CheckSufficiency)
			drivers.GET("/:id/bond/burn-alert", deps.BondHandler.CheckBurnAlert)
			drivers.GET("/:id/bond/audit", deps.BondHandler.AuditLedger)
			drivers.POST("/:id/bond/deposits", deps.BondHandler.PostDeposit)
			drivers.POST("/:id/bond/deductions", deps.BondHandler.PostDeduction)
		}

		// Ledger routes.
		bond := v1.Group("/bond")
		{
			bond.GET("/transactions", deps.BondHandler.ListTransactions)
		}

		// Incident routes.
		incidents := v1.Group("/incidents")
		{
			incidents.POST("", deps.IncidentHandler.Create)
			incidents.GET("", deps.IncidentHandler.List)
			incidents.GET("/:id", deps.IncidentHandler.Get)
			incidents.GET("/:id/activities", deps.IncidentHandler.Activities)
			incidents.POST("/:id/assign", deps.IncidentHandler.Assign)
			incidents.POST("/:id/escalate", deps.IncidentHandler.Escalate)
			incidents.POST("/:id/resolve", deps.IncidentHandler.Resolve)
			incidents.POST("/:id/evidence", deps.IncidentHandler.AddEvidence)
			incidents.POST("/:id/deduction", deps.IncidentHandler.ProcessDeduction)
		}
	}

	return router
}
