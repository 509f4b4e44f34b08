package main

// @title           Sercha Connect API
// @version         1.0
// @description     Connector credential and sync-state manager. Tracks connected accounts, keeps their access tokens fresh and records sync progress.

// @contact.name   Sercha OSS
// @contact.url    https://github.com/custodia-labs/sercha-connect/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/posthog/posthog-go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	_ "github.com/custodia-labs/sercha-connect/docs"
	"github.com/custodia-labs/sercha-connect/internal/adapters/driven/auth"
	"github.com/custodia-labs/sercha-connect/internal/adapters/driven/crypto"
	"github.com/custodia-labs/sercha-connect/internal/adapters/driven/keychain"
	"github.com/custodia-labs/sercha-connect/internal/adapters/driven/notify"
	"github.com/custodia-labs/sercha-connect/internal/adapters/driven/providers"
	redisadapter "github.com/custodia-labs/sercha-connect/internal/adapters/driven/redis"
	"github.com/custodia-labs/sercha-connect/internal/adapters/driven/sqlstore"
	"github.com/custodia-labs/sercha-connect/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-connect/internal/config"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-connect/internal/core/services"
)

var version = "dev"

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	authAdapter := auth.NewAdapter(cfg.JWTSecret)

	// Token mode prints an API token and exits
	if cfg.Mode == config.ModeToken {
		token, err := authAdapter.IssueToken(cfg.TokenSubject, cfg.TokenTTL)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	log.Printf("sercha-connect %s starting in %s mode", version, cfg.Mode)
	logger := slog.Default()

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutdown signal received, stopping...")
		cancel()
	}()

	checks := map[string]http.Pinger{}

	// ===== SQL store (local backend and/or sql encryption metadata) =====
	var sqlStore *sqlstore.Store
	if cfg.PersistenceBackend == config.BackendLocal || cfg.MetadataBackend == config.MetadataSQL {
		log.Println("Opening database...")
		sqlStore = sqlstore.NewStore(sqlstore.Config{
			URL:             cfg.DatabaseURL,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
			ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		})
		if err := sqlStore.Init(ctx); err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer sqlStore.Close()
		checks["database"] = sqlStore
		log.Printf("Database ready (%s)", sqlStore.DB().Dialect())
	}

	// ===== Redis (optional) =====
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Redis connected")
	}

	// ===== Persistence backend =====
	var backend driven.Backend
	switch cfg.PersistenceBackend {
	case config.BackendReplicated:
		shared := redisadapter.NewSharedMapBackend(redisadapter.SharedMapConfig{
			Client:    redisClient,
			Namespace: cfg.ReplicationNamespace,
			Logger:    logger.With("component", "shared_map"),
		})
		checks["redis"] = shared
		backend = shared
		log.Printf("Using replicated shared map (namespace=%s)", cfg.ReplicationNamespace)
	default:
		backend = sqlStore
		log.Println("Using local SQL persistence")
	}

	// ===== Credentials =====
	var keySource crypto.KeySource
	if cfg.CredentialKey != "" {
		key, err := crypto.ParseKey(cfg.CredentialKey)
		if err != nil {
			log.Fatalf("Invalid CREDENTIAL_KEY: %v", err)
		}
		keySource = key
		log.Println("Using credential key from environment")
	} else {
		keySource = keychain.NewKeySource(cfg.KeychainService)
		log.Printf("Using credential key from OS keyring (service=%s)", cfg.KeychainService)
	}
	encryptor := crypto.NewEncryptor(keySource)

	var metadata driven.EncryptionMetadataStore
	if cfg.MetadataBackend == config.MetadataKeychain {
		metadata = keychain.NewMetadataStore(cfg.KeychainService)
		log.Println("Using OS keyring for encryption metadata")
	} else {
		metadata = sqlStore.Metadata()
		log.Println("Using SQL encryption metadata")
	}

	providerConfigs, err := config.LoadProviders(cfg.ProvidersFile)
	if err != nil {
		log.Fatalf("Failed to load providers: %v", err)
	}
	providerRegistry, err := providers.Build(providerConfigs, encryptor, logger.With("component", "providers"))
	if err != nil {
		log.Fatalf("Failed to configure providers: %v", err)
	}
	log.Printf("Providers configured: %v", providerRegistry.SupportedTypes())

	// ===== Notifications =====
	notifier, closeNotifier := buildNotifier(cfg, logger)
	defer closeNotifier()

	// ===== Services =====
	connectorService := services.NewConnectorService(services.ConnectorServiceConfig{
		Backend:               backend,
		Providers:             providerRegistry,
		Encryptor:             encryptor,
		Metadata:              metadata,
		Notifier:              notifier,
		Logger:                logger,
		ValidationConcurrency: cfg.TokenValidationConcurrency,
	})
	if err := connectorService.Initialize(ctx); err != nil {
		log.Fatalf("Failed to load connectors: %v", err)
	}
	defer connectorService.Close()
	log.Printf("Loaded %d connectors", len(connectorService.GetConnectors()))

	// ===== Distributed lock (Redis if available, otherwise SQL lease) =====
	var lock driven.DistributedLock
	switch {
	case redisClient != nil:
		lock = redisadapter.NewLock(redisClient, cfg.ReplicationNamespace)
		log.Println("Using Redis distributed lock")
	case sqlStore != nil:
		lock = sqlstore.NewLeaseLock(sqlStore)
		log.Println("Using SQL lease lock")
	}

	var scheduler *services.TokenValidationScheduler
	if cfg.SchedulerEnabled {
		scheduler = services.NewTokenValidationScheduler(services.TokenValidationSchedulerConfig{
			Validator:    connectorService,
			Lock:         lock,
			Logger:       logger.With("component", "scheduler"),
			Interval:     cfg.TokenValidationInterval,
			LockRequired: cfg.SchedulerLockRequired,
		})
		log.Printf("Token validation scheduler enabled (interval=%s, lock_required=%t)",
			cfg.TokenValidationInterval, cfg.SchedulerLockRequired)
	} else {
		log.Println("Scheduler disabled via SCHEDULER_ENABLED=false")
	}

	switch cfg.Mode {
	case config.ModeAPI:
		runAPI(ctx, cfg, connectorService, authAdapter, checks, logger)

	case config.ModeWorker:
		runWorkerMode(ctx, scheduler)

	case config.ModeAll:
		go runWorkerMode(ctx, scheduler)
		runAPI(ctx, cfg, connectorService, authAdapter, checks, logger)
	}
}

func runAPI(
	ctx context.Context,
	cfg *config.Config,
	connectorService driving.ConnectorService,
	authAdapter driven.AuthAdapter,
	checks map[string]http.Pinger,
	logger *slog.Logger,
) {
	server := http.NewServer(http.Config{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        version,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger.With("component", "http"),
	}, connectorService, authAdapter, checks)

	log.Printf("API server starting on %s:%d", cfg.Host, cfg.Port)
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// runWorkerMode runs the token validation scheduler until ctx is done.
func runWorkerMode(ctx context.Context, scheduler *services.TokenValidationScheduler) {
	if scheduler == nil {
		log.Println("Worker has nothing to run")
		<-ctx.Done()
		return
	}

	log.Println("Starting worker mode...")
	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	<-ctx.Done()

	log.Println("Stopping worker...")
	scheduler.Stop()
	log.Println("Worker stopped")
}

// buildNotifier fans out to the log and any configured external sinks.
// The returned func flushes and closes them.
func buildNotifier(cfg *config.Config, logger *slog.Logger) (driven.Notifier, func()) {
	sinks := notify.Multi{notify.NewLogNotifier(logger.With("component", "notifications"))}
	var closers []func()

	if cfg.SlackWebhookURL != "" {
		slackNotifier := notify.NewSlackNotifier(cfg.SlackWebhookURL, logger)
		sinks = append(sinks, slackNotifier)
		closers = append(closers, slackNotifier.Close)
		log.Println("Slack notifications enabled")
	}

	if cfg.PosthogAPIKey != "" {
		client, err := posthog.NewWithConfig(cfg.PosthogAPIKey, posthog.Config{
			Endpoint: cfg.PosthogEndpoint,
			// Feature flags are unused
			DefaultFeatureFlagsPollingInterval: math.MaxInt64,
		})
		if err != nil {
			log.Printf("Warning: PostHog disabled: %v", err)
		} else {
			host, _ := os.Hostname()
			sinks = append(sinks, notify.NewPosthogNotifier(client, host, logger))
			closers = append(closers, func() { _ = client.Close() })
			log.Println("PostHog events enabled")
		}
	}

	return sinks, func() {
		for _, c := range closers {
			c()
		}
	}
}
