// Package app assembles the infrastructure and application services shared by the server and the admin CLI.
package app

import (
	"context"
	"fmt"
	"io"

	"gorm.io/gorm"

	appService "github.com/turtacn/advisorhub/internal/application/service"
	"github.com/turtacn/advisorhub/internal/config"
	domainService "github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/internal/infrastructure/audit"
	"github.com/turtacn/advisorhub/internal/infrastructure/crypto"
	"github.com/turtacn/advisorhub/internal/infrastructure/export"
	"github.com/turtacn/advisorhub/internal/infrastructure/llm"
	"github.com/turtacn/advisorhub/internal/infrastructure/monitoring"
	"github.com/turtacn/advisorhub/internal/infrastructure/persistence/postgres"
	redisstore "github.com/turtacn/advisorhub/internal/infrastructure/persistence/redis"
	"github.com/turtacn/advisorhub/internal/infrastructure/ratelimit"
	"github.com/turtacn/advisorhub/internal/infrastructure/storage"
	"github.com/turtacn/advisorhub/pkg/logger"
)

// Services are the application services behind the REST, gRPC and CLI surfaces.
type Services struct {
	Identity   appService.IdentityAppService
	Firm       appService.FirmAppService
	Client     appService.ClientAppService
	Engagement appService.EngagementAppService
	Document   appService.DocumentAppService
	BBA        appService.BBAAppService
	Workbook   appService.WorkbookAppService
	Audit      appService.AuditAppService
}

// Container owns every long-lived dependency of the process.
// Container 持有进程内所有长生命周期的依赖。
type Container struct {
	Config      *config.Config
	Logger      logger.Logger
	DB          *gorm.DB
	Store       *postgres.Store
	Redis       *redisstore.RedisConnection
	Vault       *crypto.VaultClient
	Metrics     *monitoring.Metrics
	Tokens      *crypto.JWTManager
	Blacklist   domainService.TokenBlacklistStore
	RateLimiter *ratelimit.RedisRateLimiter
	Idempotency *redisstore.IdempotencyStore
	// Subscriptions is shared by the services and the Kafka eviction consumer.
	Subscriptions *redisstore.SubscriptionCache
	Services      Services

	closers []func() error
}

// LoadConfig reads the configuration, overlays Vault secrets when enabled and validates the result.
// The returned Vault client is nil when Vault is disabled.
func LoadConfig(ctx context.Context, path string, log logger.Logger) (*config.Config, *crypto.VaultClient, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}

	var vault *crypto.VaultClient
	if cfg.Vault.Enabled {
		vault, err = crypto.NewVaultClient(&cfg.Vault, log)
		if err != nil {
			return nil, nil, fmt.Errorf("create vault client: %w", err)
		}
		if err := vault.ApplySecrets(ctx, cfg); err != nil {
			return nil, nil, fmt.Errorf("load vault secrets: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.JWT.Secret == "" {
		return nil, nil, fmt.Errorf("jwt.secret is empty after loading secrets")
	}
	return cfg, vault, nil
}

// OpenDatabase connects to the configured database only; it is enough for schema migrations.
func OpenDatabase(ctx context.Context, cfg *config.Config, log logger.Logger) (*gorm.DB, error) {
	return postgres.NewDB(ctx, &cfg.Database, log)
}

// New connects to the database, Redis and the object store, then builds the application services.
// On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config, vault *crypto.VaultClient, log logger.Logger) (_ *Container, err error) {
	c := &Container{Config: cfg, Logger: log, Vault: vault}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	// 1. Storage backends
	c.DB, err = OpenDatabase(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	db := c.DB
	c.closers = append(c.closers, func() error { return postgres.Close(db) })
	c.Store = postgres.NewStore(c.DB, log)

	c.Redis, err = redisstore.NewRedisConnection(ctx, &cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	c.closers = append(c.closers, c.Redis.Close)

	documents, err := storage.NewDocumentStore(ctx, &cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("create document store: %w", err)
	}

	// 2. Cross-cutting infrastructure
	c.Metrics = monitoring.NewMetrics()
	metrics := monitoring.NewMetricsAdapter(c.Metrics)
	c.Tokens = crypto.NewJWTManager(&cfg.JWT, log)
	c.Blacklist = redisstore.NewTokenBlacklistStore(c.Redis)
	c.RateLimiter = ratelimit.NewRedisRateLimiter(c.Redis.Client(), cfg.Redis.KeyPrefix, &cfg.RateLimit, log)
	c.Idempotency = redisstore.NewIdempotencyStore(c.Redis)
	hasher := crypto.NewBcryptHasher(0)
	c.Subscriptions = redisstore.NewSubscriptionCache(c.Redis, metrics, log)
	cache := c.Subscriptions

	var publisher domainService.EventPublisher
	if cfg.Kafka.Enabled {
		publisher = audit.NewKafkaPublisher(&cfg.Kafka, log)
		if closer, ok := publisher.(io.Closer); ok {
			c.closers = append(c.closers, closer.Close)
		}
	}
	var signer *audit.Signer
	if cfg.Audit.SigningKey != "" {
		signer = audit.NewSigner(cfg.Audit.SigningKey)
	}
	auditSvc := audit.NewService(c.Store.Repositories().AuditEvents, publisher, signer, log)

	// 3. Model, scoring and export
	var model domainService.AdvisorModel = llm.Unavailable{}
	if cfg.LLM.APIKey != "" {
		gemini, err := llm.NewGeminiAdvisor(ctx, &cfg.LLM, metrics, log)
		if err != nil {
			return nil, fmt.Errorf("create advisor model: %w", err)
		}
		model = gemini
	} else {
		log.Warn(ctx, "llm.api_key is not set; AI steps will answer service_unavailable")
	}
	scorer, err := domainService.NewScorer(domainService.DefaultCatalog(), cfg.Scoring.RedBelow, cfg.Scoring.AmberBelow)
	if err != nil {
		return nil, err
	}
	exporter := export.NewExcelExporter(cfg.Scoring.CapacityWarnRatio)

	// 4. Application services
	repos := c.Store.Repositories()
	c.Services = Services{
		Identity:   appService.NewIdentityAppService(c.Store, repos, hasher, c.Tokens, c.Blacklist, cache, auditSvc, log),
		Firm:       appService.NewFirmAppService(c.Store, repos, hasher, cache, auditSvc, log),
		Client:     appService.NewClientAppService(c.Store, repos, log),
		Engagement: appService.NewEngagementAppService(c.Store, repos, cache, auditSvc, log),
		Document:   appService.NewDocumentAppService(repos, documents, cfg.Upload.MaxBytes, metrics, auditSvc, log),
		BBA: appService.NewBBAAppService(c.Store, repos, scorer, model, redisstore.NewWorkflowLock(c.Redis),
			exporter, cache, metrics, auditSvc, appService.BBAOptions{MaxConcurrency: cfg.LLM.MaxConcurrency}, log),
		Workbook: appService.NewWorkbookAppService(repos, documents, model, exporter, cfg.Scoring.CapacityWarnRatio, metrics, auditSvc, log),
		Audit:    appService.NewAuditAppService(repos.AuditEvents),
	}
	return c, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.Logger.Warn(context.Background(), "close failed", logger.Err(err))
		}
	}
	c.closers = nil
}

//Personal.AI order the ending
