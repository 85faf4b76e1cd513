// Package bootstrap builds the runtime dependencies shared by the server and
// cronjob binaries from configuration.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	_ "github.com/lib/pq"
	"google.golang.org/api/option"

	"harvest-wallet-backend/internal/config"
	"harvest-wallet-backend/internal/events/kafka"
	"harvest-wallet-backend/internal/idempotency"
	"harvest-wallet-backend/internal/logger"
	"harvest-wallet-backend/internal/notify"
	"harvest-wallet-backend/internal/repository"
	"harvest-wallet-backend/internal/repository/firestore"
	"harvest-wallet-backend/internal/repository/memory"
	"harvest-wallet-backend/internal/repository/postgres"
	"harvest-wallet-backend/internal/security"
	"harvest-wallet-backend/internal/service"
)

// Runtime holds the opened dependencies and closes them in reverse order.
type Runtime struct {
	Store     repository.LedgerStore
	Verifier  security.TokenVerifier
	Publisher service.EventPublisher
	Cache     service.IdempotencyCache
	Alerts    service.AlertNotifier

	firebaseApp *firebase.App
	closers     []func() error
}

// Open wires every dependency named by cfg. Optional integrations (Redis,
// Kafka, SendGrid) are skipped when unconfigured.
func Open(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{}
	if err := rt.open(ctx, cfg); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) open(ctx context.Context, cfg *config.Config) error {
	var err error
	if rt.Store, err = rt.openLedgerStore(ctx, cfg); err != nil {
		return err
	}
	rt.closers = append(rt.closers, rt.Store.Close)

	if rt.Verifier, err = rt.newVerifier(ctx, cfg); err != nil {
		return err
	}

	if rt.Cache, err = rt.newCache(ctx, cfg); err != nil {
		return err
	}
	rt.Publisher = rt.newPublisher(cfg)
	rt.Alerts = newAlerts(cfg)
	return nil
}

// WalletService builds the ledger service over the opened dependencies.
func (rt *Runtime) WalletService(cfg *config.Config) service.WalletService {
	return service.NewWalletService(rt.Store, rt.Publisher, rt.Cache, service.MissingWalletPolicy(cfg.Ledger.MissingWalletPolicy))
}

func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			logger.Warn("Failed to close dependency", "error", err)
		}
	}
	rt.closers = nil
}

func (rt *Runtime) app(ctx context.Context, cfg *config.Config) (*firebase.App, error) {
	if rt.firebaseApp != nil {
		return rt.firebaseApp, nil
	}
	var opts []option.ClientOption
	if cfg.Firebase.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.Firebase.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	logger.Info("Firebase app initialized", "project_id", cfg.Firebase.ProjectID)
	rt.firebaseApp = app
	return app, nil
}

func (rt *Runtime) openLedgerStore(ctx context.Context, cfg *config.Config) (repository.LedgerStore, error) {
	switch cfg.Storage.Type {
	case config.StorageMemory:
		logger.Warn("Using in-memory ledger storage; balances are lost on restart")
		return memory.NewStore(cfg.Ledger.MaxAttempts), nil

	case config.StoragePostgres:
		logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
		db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		store := postgres.NewStore(db, cfg.Ledger.MaxAttempts)
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("Database connection established")
		return store, nil

	case config.StorageFirestore:
		app, err := rt.app(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return firestore.NewStoreFromApp(ctx, app, cfg.Ledger.MaxAttempts)

	default:
		return nil, fmt.Errorf("unsupported storage type: %q", cfg.Storage.Type)
	}
}

func (rt *Runtime) newVerifier(ctx context.Context, cfg *config.Config) (security.TokenVerifier, error) {
	switch cfg.Auth.Mode {
	case config.AuthJWT:
		return security.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer), nil
	case config.AuthFirebase:
		app, err := rt.app(ctx, cfg)
		if err != nil {
			return nil, err
		}
		client, err := app.Auth(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize firebase auth: %w", err)
		}
		return security.NewFirebaseVerifier(client), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode: %q", cfg.Auth.Mode)
	}
}

func (rt *Runtime) newCache(ctx context.Context, cfg *config.Config) (service.IdempotencyCache, error) {
	if cfg.Redis.Addr == "" {
		return nil, nil
	}
	client, err := idempotency.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, client.Close)
	return idempotency.NewRedisCache(client, time.Duration(cfg.Redis.TTLMinutes)*time.Minute, cfg.Redis.KeyPrefix), nil
}

func (rt *Runtime) newPublisher(cfg *config.Config) service.EventPublisher {
	if len(cfg.Kafka.Brokers) == 0 {
		logger.Info("Kafka not configured; ledger events are not published")
		return nil
	}
	publisher := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	rt.closers = append(rt.closers, publisher.Close)
	logger.Info("Publishing ledger events", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	return publisher
}

func newAlerts(cfg *config.Config) service.AlertNotifier {
	if cfg.SendGrid.APIKey == "" {
		return notify.LogNotifier{}
	}
	return notify.NewEmailNotifier(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName, cfg.SendGrid.AlertEmail)
}
