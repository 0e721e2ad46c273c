package main

import (
	"context"
	"fmt"
	"net/http"

	"chronos/app/handler"
	"chronos/app/router"
	"chronos/internal/service"
	"chronos/pkg/config"
	"chronos/pkg/lock"
	"chronos/pkg/logger"
	"chronos/pkg/notification"
	mysqlstore "chronos/pkg/store/mysql"
	redisstore "chronos/pkg/store/redis"
	sheetsstore "chronos/pkg/store/sheets"

	"github.com/gin-gonic/gin"
)

// initConfig initializes configuration
func (app *Application) initConfig() error {
	if err := config.Init(); err != nil {
		return err
	}
	app.config = config.GlobalConfig
	return nil
}

// initLogger initializes logging
func (app *Application) initLogger() error {
	if err := logger.Init(); err != nil {
		return err
	}
	app.registerCleanup(func() {
		_ = logger.Sync()
	})
	return nil
}

// initSheets connects to the spreadsheet holding the dataset
func (app *Application) initSheets() error {
	if app.config.Sheets.SpreadsheetID == "" {
		return fmt.Errorf("sheets.spreadsheet_id is required (or set CHRONOS_SPREADSHEET_ID)")
	}

	client, err := sheetsstore.NewClient(app.ctx, app.config.Sheets)
	if err != nil {
		return err
	}
	app.sheetsStore = sheetsstore.NewStore(client, sheetsstore.SheetNamesFromConfig(app.config.Sheets))

	// Missing worksheets are created on the first save as well
	ctx, cancel := context.WithTimeout(app.ctx, app.config.SheetsTimeout())
	defer cancel()
	if err := app.sheetsStore.EnsureSheets(ctx); err != nil {
		logger.WarnCtx(app.ctx, "Failed to prepare worksheets: %v (non-critical, continuing)", err)
	}
	return nil
}

// initRedis initializes Redis, which is optional
func (app *Application) initRedis() error {
	if app.config.Redis.Addr == "" {
		logger.InfoCtx(app.ctx, "Redis not configured, using in-process cache and lock")
		return nil
	}

	client, err := redisstore.NewRedisClient(app.config)
	if err != nil {
		logger.WarnCtx(app.ctx, "Redis unavailable: %v (continuing without shared cache and lock)", err)
		return nil
	}

	app.redisClient = client
	app.registerCleanup(func() {
		_ = client.Close()
		logger.InfoCtx(app.ctx, "Redis connection has been closed")
	})
	return nil
}

// initMySQL initializes the audit trail store, which is optional
func (app *Application) initMySQL() error {
	if app.config.MySQL.Host == "" {
		logger.InfoCtx(app.ctx, "MySQL not configured, audit trail disabled")
		return nil
	}

	repo, err := mysqlstore.NewRepository(app.ctx, mysqlstore.DSN(app.config.MySQL))
	if err != nil {
		logger.WarnCtx(app.ctx, "MySQL unavailable: %v (audit trail disabled)", err)
		return nil
	}

	app.mysqlRepo = repo
	app.registerCleanup(func() {
		_ = repo.Close()
		logger.InfoCtx(app.ctx, "MySQL connection has been closed")
	})
	return nil
}

// initNotifications sets up the change event publisher and the alert webhook
func (app *Application) initNotifications() error {
	app.notifier = notification.NewFeishuNotifier(app.config.Notification.FeishuWebhookURL)

	if len(app.config.Kafka.Brokers) == 0 {
		logger.InfoCtx(app.ctx, "Kafka not configured, change events will not be published")
		return nil
	}

	publisher := notification.NewKafkaPublisher(app.config.Kafka.Brokers, app.config.Kafka.Topic)
	app.publisher = publisher
	app.registerCleanup(func() {
		if err := publisher.Close(); err != nil {
			logger.WarnCtx(app.ctx, "Kafka publisher close error: %v", err)
		}
	})
	logger.InfoCtx(app.ctx, "Publishing change events to topic %s", app.config.Kafka.Topic)
	return nil
}

// initServices initializes service layer
func (app *Application) initServices() error {
	cache := redisstore.NewSnapshotCache(app.config.CacheTTL())
	if app.redisClient != nil {
		cache.WithRedis(app.redisClient.GetClient())
	}

	app.trackerService = service.NewTrackerService(app.sheetsStore, cache, app.config.Location())

	// Serialize saves across replicas
	if app.redisClient != nil {
		app.trackerService.WithWriteLock(lock.NewRedisDistributedLock(app.redisClient.GetClient(), lock.DatasetWriteLockKey))
	}
	if app.mysqlRepo != nil {
		app.trackerService.WithAuditRecorder(app.mysqlRepo.ChangeEvent)
	}
	if app.publisher != nil {
		app.trackerService.WithEventPublisher(app.publisher)
	}

	app.reportService = service.NewReportService(app.trackerService)

	logger.InfoCtx(app.ctx, "Tracker ready: today is %s (%s)", app.trackerService.Today(), app.config.Tracker.Timezone)
	return nil
}

// initHandlers initializes handler layer
func (app *Application) initHandlers() error {
	app.taskHandler = handler.NewTaskHandler(app.trackerService)
	app.rosterHandler = handler.NewRosterHandler(app.trackerService)
	app.reportHandler = handler.NewReportHandler(app.reportService)
	app.auditHandler = handler.NewAuditHandler(app.trackerService)
	return nil
}

// initHTTPServer initializes the router and the HTTP server
func (app *Application) initHTTPServer() error {
	r := router.NewRouter(app.taskHandler, app.rosterHandler, app.reportHandler, app.auditHandler).
		WithAPIKey(app.config.Server.APIKey).
		WithCORSOrigins(app.config.Server.CORSOrigins)

	// Set Gin mode
	if app.config.Server.Mode != "" {
		gin.SetMode(app.config.Server.Mode)
	}

	app.ginEngine = gin.New()
	r.Setup(app.ginEngine)

	app.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
		Handler: app.ginEngine,
	}
	return nil
}
