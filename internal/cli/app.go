package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/eshaffer321/finance-reconciler/internal/application/service"
	"github.com/eshaffer321/finance-reconciler/internal/infrastructure/config"
	"github.com/eshaffer321/finance-reconciler/internal/infrastructure/currency"
	"github.com/eshaffer321/finance-reconciler/internal/infrastructure/events"
	"github.com/eshaffer321/finance-reconciler/internal/infrastructure/logging"
	"github.com/eshaffer321/finance-reconciler/internal/infrastructure/storage"
)

// App bundles the wired dependencies shared by the binaries.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     storage.Repository
	Service   *service.ReconciliationService
	publisher events.Publisher
}

// LoadConfig reads .env (if present), then configPath, falling back to
// environment variables when the path is empty or unreadable.
func LoadConfig(configPath string) (*config.Config, error) {
	// Missing .env is normal outside local development
	_ = godotenv.Load()

	var cfg *config.Config
	if configPath == "" {
		cfg = config.LoadOrEnv()
	} else {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", configPath, err)
		}
		cfg = loaded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// NewApp opens storage, builds the converter and event publisher, and wires
// the reconciliation service. Call Close when done.
func NewApp(cfg *config.Config, system string) (*App, error) {
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, system)

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	app, err := newApp(cfg, store, publisher, logger)
	if err != nil {
		_ = publisher.Close()
		_ = store.Close()
		return nil, err
	}
	return app, nil
}

func newApp(cfg *config.Config, store storage.Repository, publisher events.Publisher, logger *slog.Logger) (*App, error) {
	converter, err := currency.NewStaticRates(cfg.Reconciliation.BaseCurrency, cfg.Currency.Rates)
	if err != nil {
		return nil, fmt.Errorf("invalid currency rates: %w", err)
	}

	svc := service.NewReconciliationService(store, store, service.Options{
		BaseCurrency: cfg.Reconciliation.BaseCurrency,
		Converter:    converter,
		Profiles:     cfg.Reconciliation.Profiles(),
		Publisher:    publisher,
		Logger:       logger,
	})

	return &App{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Service:   svc,
		publisher: publisher,
	}, nil
}

func newPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	if !cfg.Events.Enabled {
		return events.NopPublisher{}, nil
	}

	url := cfg.GetSecret(cfg.Events.AMQPURL, "AMQP_URL", "RABBITMQ_URL")
	publisher, err := events.NewAMQPPublisher(url, cfg.Events.Exchange, logger.With("component", logging.SystemEvents))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize event publisher: %w", err)
	}
	logger.Info("publishing match events", "exchange", cfg.Events.Exchange)
	return publisher, nil
}

// Close releases the publisher and the store
func (a *App) Close() error {
	return errors.Join(a.publisher.Close(), a.Store.Close())
}
