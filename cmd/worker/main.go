// cmd/worker/main.go
package main

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/paynudge/reminder-backend/internal/accounting"
	"github.com/paynudge/reminder-backend/internal/config"
	"github.com/paynudge/reminder-backend/internal/db"
	"github.com/paynudge/reminder-backend/internal/queue"
	"github.com/paynudge/reminder-backend/internal/repository"
	"github.com/paynudge/reminder-backend/internal/service"
	"github.com/paynudge/reminder-backend/pkg/logger"
)

const maxJobRetries = 3

func main() {
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

	accountingClient := accounting.NewHTTPClient(
		cfg.AccountingAPIURL, cfg.AccountingAPIKey,
		time.Duration(cfg.ProviderTimeoutSeconds)*time.Second)

	settingsService := &service.SettingsService{Repo: settingsRepo, Log: zlog}
	syncService := &service.SyncService{
		Accounts:   accountRepo,
		Settings:   settingsService,
		Customers:  customerRepo,
		Invoices:   invoiceRepo,
		Reminders:  reminderRepo,
		SyncMeta:   syncMetaRepo,
		Accounting: accountingClient,
		Log:        zlog,
	}

	// Connect to RabbitMQ
	amqpConn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		zlog.Fatal("failed to connect to RabbitMQ", zap.Error(err))
	}
	defer amqpConn.Close()

	ch, err := amqpConn.Channel()
	if err != nil {
		zlog.Fatal("failed to open a channel", zap.Error(err))
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		cfg.SyncQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		zlog.Fatal("failed to declare queue", zap.Error(err))
	}

	// Bounded prefetch keeps concurrent account syncs from bursting the
	// external API.
	if err := ch.Qos(cfg.SyncWorkerCount, 0, false); err != nil {
		zlog.Fatal("failed to set QoS", zap.Error(err))
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		zlog.Fatal("failed to register consumer", zap.Error(err))
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var job queue.SyncJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				zlog.Warn("invalid sync job, dropping", zap.Error(err))
				d.Ack(false)
				continue
			}

			err := syncService.RunAccountSync(context.Background(), job.AccountID, job.OrgID)
			if err != nil {
				zlog.Error("account sync failed",
					zap.Int("account_id", job.AccountID),
					zap.String("run_id", job.RunID),
					zap.Error(err))

				var retryCount int
				if v, ok := d.Headers["x-retry-count"].(int32); ok {
					retryCount = int(v)
				}
				if retryCount < maxJobRetries {
					d.Nack(false, true) // requeue
					continue
				}
			}
			d.Ack(false)
		}
	}()

	zlog.Info("sync worker running, waiting for jobs",
		zap.String("queue", cfg.SyncQueueName),
		zap.Int("concurrency", cfg.SyncWorkerCount))
	<-forever
}
