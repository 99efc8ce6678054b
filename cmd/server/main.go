// cmd/server/main.go
package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/paynudge/reminder-backend/internal/accounting"
	"github.com/paynudge/reminder-backend/internal/config"
	"github.com/paynudge/reminder-backend/internal/controller"
	"github.com/paynudge/reminder-backend/internal/db"
	"github.com/paynudge/reminder-backend/internal/handler"
	"github.com/paynudge/reminder-backend/internal/provider"
	"github.com/paynudge/reminder-backend/internal/queue"
	"github.com/paynudge/reminder-backend/internal/repository"
	"github.com/paynudge/reminder-backend/internal/service"
	"github.com/paynudge/reminder-backend/pkg/logger"
	"github.com/paynudge/reminder-backend/pkg/middleware"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on OS environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration:", err)
	}

	zlog, err := logger.New(cfg.LogPath, zapcore.InfoLevel)
	if err != nil {
		log.Fatal("failed to init logger:", err)
	}
	defer zlog.Sync()

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("failed to connect to DB", zap.Error(err))
	}
	defer conn.Close()

	// Repositories
	accountRepo := &repository.AccountRepository{DB: conn}
	settingsRepo := &repository.SettingsRepository{DB: conn}
	customerRepo := &repository.CustomerRepository{DB: conn}
	invoiceRepo := &repository.InvoiceRepository{DB: conn}
	reminderRepo := &repository.ReminderRepository{DB: conn}
	syncMetaRepo := &repository.SyncMetadataRepository{DB: conn}

	// External collaborators
	providerTimeout := time.Duration(cfg.ProviderTimeoutSeconds) * time.Second
	accountingClient := accounting.NewHTTPClient(cfg.AccountingAPIURL, cfg.AccountingAPIKey, providerTimeout)
	voiceProvider := provider.NewHTTPVoiceProvider(cfg.VoiceProviderURL, cfg.ProviderAPIKey, providerTimeout)
	smsProvider := provider.NewHTTPSMSProvider(cfg.SMSProviderURL, cfg.ProviderAPIKey, providerTimeout)

	// Queue: in-memory runs syncs in-process; amqp hands them to cmd/worker.
	var q queue.Queue
	switch cfg.QueueDriver {
	case "amqp":
		amqpQueue, amqpConn, err := queue.NewAMQPQueue(cfg.AMQPURL)
		if err != nil {
			zlog.Fatal("failed to connect to RabbitMQ", zap.Error(err))
		}
		defer amqpConn.Close()
		q = amqpQueue
	default:
		q = queue.NewInMemoryQueue()
	}

	settingsService := &service.SettingsService{Repo: settingsRepo, Log: zlog}
	syncService := &service.SyncService{
		Accounts:   accountRepo,
		Settings:   settingsService,
		Customers:  customerRepo,
		Invoices:   invoiceRepo,
		Reminders:  reminderRepo,
		SyncMeta:   syncMetaRepo,
		Accounting: accountingClient,
		Queue:      q,
		SyncTopic:  cfg.SyncQueueName,
		Log:        zlog,
	}
	processorService := &service.ProcessorService{
		Accounts:           accountRepo,
		Customers:          customerRepo,
		Invoices:           invoiceRepo,
		Reminders:          reminderRepo,
		Settings:           settingsService,
		Accounting:         accountingClient,
		Voice:              voiceProvider,
		SMS:                smsProvider,
		DefaultCountryCode: cfg.DefaultCountryCode,
		Log:                zlog,
	}
	outcomeService := &service.OutcomeService{
		Reminders: reminderRepo,
		Settings:  settingsService,
		Log:       zlog,
	}

	if cfg.QueueDriver != "amqp" {
		queue.StartInvoiceSyncSubscriber(q, cfg.SyncQueueName, syncService, zlog)
	}

	settingsController := &controller.SettingsController{SettingsService: settingsService}
	syncController := &controller.SyncController{
		SyncService:      syncService,
		ProcessorService: processorService,
		AccountRepo:      accountRepo,
	}
	reminderController := &controller.ReminderController{ReminderRepo: reminderRepo}
	webhookHandler := &handler.WebhookHandler{
		OutcomeService: outcomeService,
		Secret:         cfg.WebhookSecret,
		Log:            zlog,
	}

	r := chi.NewRouter()

	// Account-facing routes
	r.Get("/accounts/{accountID}/settings", settingsController.GetSettings)
	r.Put("/accounts/{accountID}/settings", settingsController.UpdateSettings)
	r.Post("/accounts/{accountID}/sync", syncController.SyncAccount)
	r.Get("/accounts/{accountID}/reminders", reminderController.ListReminders)

	// Scheduled triggers, authenticated by shared secret
	r.Route("/internal/triggers", func(r chi.Router) {
		r.Use(middleware.RequireTriggerSecret(cfg.TriggerSecret))
		r.Post("/sync", syncController.TriggerSync)
		r.Post("/process", syncController.TriggerProcess)
	})

	// Provider delivery-status callbacks, authenticated by HMAC signature
	r.Post("/webhooks/provider", webhookHandler.HandleProviderCallback)

	addr := fmt.Sprintf(":%d", cfg.Port)
	zlog.Info("server running", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, r); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}
