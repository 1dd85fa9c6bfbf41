package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/merchkit/storefront-api/internal/api"
	"github.com/merchkit/storefront-api/internal/cache"
	"github.com/merchkit/storefront-api/internal/config"
	"github.com/merchkit/storefront-api/internal/database"
	"github.com/merchkit/storefront-api/internal/docstore"
	"github.com/merchkit/storefront-api/internal/handlers"
	"github.com/merchkit/storefront-api/internal/models"
	"github.com/merchkit/storefront-api/internal/outbox"
	"github.com/merchkit/storefront-api/internal/repository"
	"github.com/merchkit/storefront-api/internal/service"
	"github.com/merchkit/storefront-api/internal/store"
	"github.com/merchkit/storefront-api/pkg/circuitbreaker"
	"github.com/merchkit/storefront-api/pkg/kafka"
	"github.com/merchkit/storefront-api/pkg/logger"
	"github.com/merchkit/storefront-api/pkg/retry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.NewLogger(cfg.LogLevel)
	l.Info("Starting storefront API", "backend", cfg.StorageBackend)

	st, closeStore, err := openStore(cfg, l)
	if err != nil {
		l.Error("Failed to open store", "error", err)
		os.Exit(1)
	}

	var snapshotCache service.SnapshotCache
	var redisCache *cache.SnapshotCache
	if cfg.Redis.Addr != "" {
		redisCache, err = cache.NewSnapshotCache(cfg.Redis.Addr,
			time.Duration(cfg.Redis.TTLSeconds)*time.Second, l)
		if err != nil {
			// analytics works uncached; keep going
			l.Warn("Redis unavailable, running without analytics cache", "error", err)
		} else {
			snapshotCache = redisCache
		}
	}

	var publisher *eventPublisher
	if cfg.Kafka.Enabled {
		publisher, err = startEventPublisher(cfg, st, l)
		if err != nil {
			l.Error("Failed to start event publisher", "error", err)
			os.Exit(1)
		}
	}

	server := api.NewServer(cfg, st, snapshotCache, l)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			l.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	l.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		l.Error("Server forced to shutdown", "error", err)
	}

	if publisher != nil {
		publisher.stop(l)
	}
	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			l.Error("Error closing Redis client", "error", err)
		}
	}
	if err := closeStore(ctx); err != nil {
		l.Error("Error closing store", "error", err)
	}

	l.Info("Server exiting")
}

// openStore connects the configured persistence backend and returns the store
// bundle plus its close function
func openStore(cfg *config.Config, l logger.Logger) (*store.Store, func(context.Context) error, error) {
	switch cfg.StorageBackend {
	case config.BackendMongo:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		ds, err := docstore.Connect(ctx, cfg, l)
		if err != nil {
			return nil, nil, err
		}
		if err := ds.EnsureIndexes(ctx); err != nil {
			return nil, nil, err
		}
		return ds.NewStore(), ds.Close, nil

	default:
		db, err := database.New(cfg, l)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(); err != nil {
			return nil, nil, err
		}
		return repository.NewStore(db, l), func(context.Context) error { return db.Close() }, nil
	}
}

// eventPublisher bundles the Kafka side of the service: the outbox pollers
// pushing events out and the consumer feeding the metric series back in
type eventPublisher struct {
	producer            *kafka.Producer
	consumer            *kafka.Consumer
	outboxProcessor     *outbox.Processor
	deadLetterProcessor *outbox.DeadLetterProcessor
}

func startEventPublisher(cfg *config.Config, st *store.Store, l logger.Logger) (*eventPublisher, error) {
	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, l)
	if err != nil {
		return nil, err
	}

	breaker := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		HalfOpenMaxCalls: 3,
	})
	kafkaHandler := outbox.NewKafkaHandler(producer, breaker, cfg.Kafka.EventsTopic, l)

	processor := outbox.NewProcessor(st.Outbox, st.DeadLetters, outbox.ProcessorConfig{
		PollingInterval: 5 * time.Second,
		BatchSize:       10,
		MaxRetries:      3,
	}, l)

	dlqProcessor := outbox.NewDeadLetterProcessor(st.DeadLetters, outbox.DeadLetterProcessorConfig{
		PollingInterval: 30 * time.Second,
		BatchSize:       5,
		MaxRetries:      5,
		BackoffStrategy: &retry.ExponentialBackoff{
			InitialInterval: 1 * time.Second,
			MaxInterval:     2 * time.Minute,
			Multiplier:      2.0,
			JitterFactor:    0.1,
		},
	}, l)

	eventTypes := []string{
		models.EventOrderCreated,
		models.EventOrderStatusChanged,
		models.EventProductStockDepleted,
		models.EventCustomerCreated,
	}
	for _, eventType := range eventTypes {
		processor.RegisterHandler(eventType, kafkaHandler)
		dlqProcessor.RegisterHandler(eventType, kafkaHandler)
	}

	consumer, err := kafka.NewConsumer(&kafka.ConsumerConfig{
		Brokers:       cfg.Kafka.Brokers,
		Topics:        []string{cfg.Kafka.EventsTopic},
		ConsumerGroup: cfg.Kafka.ConsumerGroup,
	}, l)
	if err != nil {
		producer.Close()
		return nil, err
	}
	consumer.RegisterHandler(cfg.Kafka.EventsTopic, handlers.NewOrderEventsHandler(st.Metrics, l))

	processor.Start()
	dlqProcessor.Start()
	if err := consumer.Start(); err != nil {
		// the outbox keeps publishing; metrics just stop accruing
		l.Error("Failed to start Kafka consumer", "error", err)
	}

	return &eventPublisher{
		producer:            producer,
		consumer:            consumer,
		outboxProcessor:     processor,
		deadLetterProcessor: dlqProcessor,
	}, nil
}

func (p *eventPublisher) stop(l logger.Logger) {
	p.outboxProcessor.Stop()
	p.deadLetterProcessor.Stop()
	if err := p.consumer.Stop(); err != nil {
		l.Error("Error stopping Kafka consumer", "error", err)
	}
	if err := p.producer.Close(); err != nil {
		l.Error("Error closing Kafka producer", "error", err)
	}
}
