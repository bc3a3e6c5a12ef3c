package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"fleetops/internal/app"
	"fleetops/internal/config"
	"fleetops/internal/handler"
	internalRedis "fleetops/internal/redis"
	"fleetops/internal/repository/postgres"
	"fleetops/internal/service"
)

func main() {
	cfg := config.Load()
	log := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic first so the database driver can be instrumented.
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.WithError(err).Warn("failed to initialize New Relic")
		} else {
			log.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled")
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()
	log.Info("connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info("connected to Redis")

	server := wireServer(db, redisClient, nrApp, cfg, log)

	go func() {
		log.WithField("port", cfg.Server.Port).Info("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config, log *logrus.Logger) *http.Server {
	// Initialize Redis stores.
	cacheStore := internalRedis.NewCacheStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)

	// Initialize repositories.
	uow := postgres.NewUnitOfWork(db)
	driverRepo := postgres.NewDriverRepository(db)
	ledgerRepo := postgres.NewLedgerRepository(db)
	incidentRepo := postgres.NewIncidentRepository(db)
	activityRepo := postgres.NewIncidentActivityRepository(db)
	shiftRepo := postgres.NewShiftRepository(db)
	userRepo := postgres.NewUserRepository(db)

	// Initialize services.
	sla := service.NewSLAClock()
	bondService := service.NewBondService(uow, driverRepo, ledgerRepo, cacheStore, log, cfg.Bond.BurnAlertThreshold)
	incidentService := service.NewIncidentService(uow, incidentRepo, activityRepo, userRepo, sla, log)
	deductionService := service.NewDeductionService(uow, driverRepo, shiftRepo, incidentRepo, lockStore, cacheStore, sla, log)

	// Initialize handlers.
	driverHandler := handler.NewDriverHandler(driverRepo)
	bondHandler := handler.NewBondHandler(bondService)
	incidentHandler := handler.NewIncidentHandler(incidentService, deductionService)
	userHandler := handler.NewUserHandler(userRepo)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		DriverHandler:   driverHandler,
		BondHandler:     bondHandler,
		IncidentHandler: incidentHandler,
		UserHandler:     userHandler,
		RedisClient:     redisClient,
		NewRelicApp:     nrApp,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
