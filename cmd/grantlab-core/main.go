package main

// @title           GrantLab Core API
// @version         1.0
// @description     Educational OAuth 2.0 / OpenID Connect playground API. GrantLab Core walks each grant type step by step against a live identity provider, keeping every protocol artifact inspectable.

// @contact.name   GrantLab OSS
// @contact.url    https://github.com/grantlab/grantlab-core/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	_ "github.com/grantlab/grantlab-core/docs" // generated OpenAPI document
	"github.com/grantlab/grantlab-core/internal/adapters/driven/bunt"
	"github.com/grantlab/grantlab-core/internal/adapters/driven/idp"
	"github.com/grantlab/grantlab-core/internal/adapters/driven/memory"
	"github.com/grantlab/grantlab-core/internal/adapters/driven/postgres"
	redisadapter "github.com/grantlab/grantlab-core/internal/adapters/driven/redis"
	httpadapter "github.com/grantlab/grantlab-core/internal/adapters/driving/http"
	"github.com/grantlab/grantlab-core/internal/config"
	"github.com/grantlab/grantlab-core/internal/core/ports/driven"
	"github.com/grantlab/grantlab-core/internal/core/services"
	"github.com/grantlab/grantlab-core/internal/runtime"
	"github.com/grantlab/grantlab-core/internal/worker"
)

// encryptionSalt keys the passphrase derivation; it only has to be
// stable per installation, not secret.
const encryptionSalt = "github.com/grantlab/grantlab-core"

var version = "dev"

func main() {
	// Config file path from environment (GRANTLAB_CONFIG) or command line arg
	configPath := getEnv("GRANTLAB_CONFIG", "config.yaml")
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	logger := cfg.Log.NewLogger()
	slog.SetDefault(logger)
	logger.Info("grantlab-core starting", "version", version)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals for background components; the HTTP
	// server catches the same signal for its own graceful stop
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// ===== Storage backends =====
	fast := memory.NewArtifactBackend()
	defer fast.Close()

	var durable []driven.ArtifactBackend

	if cfg.Storage.RedisURL != "" {
		logger.Info("connecting to redis")
		opts, err := redis.ParseURL(cfg.Storage.RedisURL)
		if err != nil {
			fatal(logger, "parse redis url", "error", err)
		}
		redisClient := redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			fatal(logger, "connect to redis", "error", err)
		}
		defer redisClient.Close()
		durable = append(durable, redisadapter.NewArtifactBackend(redisClient))
		logger.Info("redis connected")
	}

	if cfg.Storage.BuntPath != "" {
		buntBackend, err := bunt.NewArtifactBackend(cfg.Storage.BuntPath)
		if err != nil {
			fatal(logger, "open buntdb", "path", cfg.Storage.BuntPath, "error", err)
		}
		defer buntBackend.Close()
		durable = append(durable, buntBackend)
		logger.Info("buntdb opened", "path", cfg.Storage.BuntPath)
	}

	var (
		pgArtifacts *postgres.ArtifactBackend
		pgSessions  *postgres.FlowSessionStore
	)
	if cfg.Storage.PostgresURL != "" {
		if cfg.Storage.Passphrase == "" {
			fatal(logger, "storage.passphrase is required when postgres is configured")
		}
		logger.Info("connecting to postgres")
		db, err := postgres.Connect(ctx, postgres.DefaultConfig(cfg.Storage.PostgresURL))
		if err != nil {
			fatal(logger, "connect to postgres", "error", err)
		}
		defer db.Close()
		if err := db.InitSchema(ctx); err != nil {
			fatal(logger, "initialize schema", "error", err)
		}
		enc, err := postgres.NewSecretEncryptor(postgres.KeyFromPassphrase(cfg.Storage.Passphrase, encryptionSalt))
		if err != nil {
			fatal(logger, "build secret encryptor", "error", err)
		}
		pgArtifacts = postgres.NewArtifactBackend(db, enc)
		pgSessions = postgres.NewFlowSessionStore(db, enc)
		durable = append(durable, pgArtifacts)
		logger.Info("postgres connected and schema initialized")
	}

	// ===== Session store (postgres if available, otherwise memory) =====
	var sessionStore driven.FlowSessionStore
	if pgSessions != nil {
		sessionStore = pgSessions
		logger.Info("using postgres session store")
	} else {
		sessionStore = memory.NewFlowSessionStore()
		logger.Info("using in-memory session store")
	}

	// ===== Artifact redundancy layer =====
	artifacts := services.NewArtifactStore(services.ArtifactStoreConfig{
		Fast:    fast,
		Durable: durable,
		TTL:     cfg.Artifacts.TTL,
		Logger:  logger,
	})
	defer artifacts.Close()

	// ===== Provider adapters =====
	overrides := runtime.NewOverrides()
	idpConfig := idp.Config{
		AuthBase: cfg.Provider.AuthBase,
		APIBase:  cfg.Provider.APIBase,
		Timeout:  cfg.Provider.Timeout,
	}
	resolver := idp.NewResolver(idp.ResolverConfig{
		Config:    idpConfig,
		Overrides: overrides,
		Logger:    logger,
	})
	gateway := idp.NewGateway(idp.GatewayConfig{
		Config: idpConfig,
		Logger: logger,
	})
	management := idp.NewManagementClient(idp.ManagementClientConfig{
		Config:             idpConfig,
		WorkerClientID:     cfg.Provider.WorkerClientID,
		WorkerClientSecret: cfg.Provider.WorkerClientSecret,
		Logger:             logger,
	})
	directAuth := idp.NewDirectAuthClient(idp.DirectAuthClientConfig{
		Config: idpConfig,
		Logger: logger,
	})

	// ===== Services (core business logic) =====
	guard := services.NewSessionGuard()

	preflightService := services.NewPreflightService(services.PreflightServiceConfig{
		Sessions:   sessionStore,
		Management: management,
		Guard:      guard,
		Logger:     logger,
	})
	deviceService := services.NewDeviceService(services.DeviceServiceConfig{
		Sessions:      sessionStore,
		Artifacts:     artifacts,
		Guard:         guard,
		Gateway:       gateway,
		Resolver:      resolver,
		SlowDownStep:  cfg.Polling.SlowDownStep,
		AttemptBuffer: cfg.Polling.AttemptBuffer,
		Logger:        logger,
	})
	if d, ok := deviceService.(interface{ Shutdown() }); ok {
		defer d.Shutdown()
	}
	flowService := services.NewFlowService(services.FlowServiceConfig{
		Sessions:   sessionStore,
		Artifacts:  artifacts,
		Guard:      guard,
		Preflight:  preflightService,
		Poller:     deviceService,
		Resolver:   resolver,
		SessionTTL: cfg.Sessions.TTL,
		Logger:     logger,
	})
	authorizeService := services.NewAuthorizeService(services.AuthorizeServiceConfig{
		Sessions:  sessionStore,
		Artifacts: artifacts,
		Guard:     guard,
		Resolver:  resolver,
		Logger:    logger,
	})
	tokenService := services.NewTokenService(services.TokenServiceConfig{
		Sessions:  sessionStore,
		Artifacts: artifacts,
		Guard:     guard,
		Gateway:   gateway,
		Resolver:  resolver,
		Verifier:  resolver,
		Logger:    logger,
	})
	redirectlessService := services.NewRedirectlessService(services.RedirectlessServiceConfig{
		Sessions:   sessionStore,
		Artifacts:  artifacts,
		Guard:      guard,
		Gateway:    directAuth,
		Resolver:   resolver,
		Management: management,
		Logger:     logger,
	})

	// ===== Janitor =====
	var pruners []worker.Pruner
	if pgArtifacts != nil {
		pruners = append(pruners, pgArtifacts)
	}
	janitor := worker.NewJanitor(worker.JanitorConfig{
		Sessions: sessionStore,
		Poller:   deviceService,
		Guard:    guard,
		Pruners:  pruners,
		Interval: cfg.Janitor.SweepInterval,
		Logger:   logger,
	})
	if err := janitor.Start(ctx); err != nil {
		fatal(logger, "start janitor", "error", err)
	}
	defer janitor.Stop()
	// Clear anything that expired while the process was down
	janitor.Sweep(ctx)

	// ===== HTTP server =====
	backends := append([]driven.ArtifactBackend{fast}, durable...)
	server := httpadapter.NewServer(
		httpadapter.Config{
			Host:        cfg.Server.Host,
			Port:        cfg.Server.Port,
			Version:     version,
			CORSOrigins: cfg.Server.CORSOrigins,
			Logger:      logger,
		},
		flowService,
		preflightService,
		authorizeService,
		tokenService,
		deviceService,
		redirectlessService,
		overrides,
		backends,
		janitor,
	)

	if err := server.Start(); err != nil {
		fatal(logger, "server error", "error", err)
	}
}

// Helper functions

func fatal(logger *slog.Logger, msg string, args ...any) {
	logger.Error(msg, args...)
	os.Exit(1)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
