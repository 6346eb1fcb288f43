package container

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"library-backend/internal/config"
	infraCache "library-backend/internal/infrastructure/cache"
	"library-backend/internal/infrastructure/database"
	"library-backend/internal/infrastructure/metrics"
	"library-backend/internal/infrastructure/queue"
	"library-backend/internal/shared/middleware"
	"library-backend/pkg/cache"
	"library-backend/pkg/logger"

	"library-backend/internal/domains/author"
	authorHandler "library-backend/internal/domains/author/handler"
	authorRepo "library-backend/internal/domains/author/repository"
	authorService "library-backend/internal/domains/author/service"

	bookHandler "library-backend/internal/domains/book/handler"
	bookRepo "library-backend/internal/domains/book/repository"
	bookService "library-backend/internal/domains/book/service"

	leaseHandler "library-backend/internal/domains/lease/handler"
	leaseRepo "library-backend/internal/domains/lease/repository"
	leaseService "library-backend/internal/domains/lease/service"
)

// ========================================
// CONTAINER STRUCT
// ========================================

// Container holds every long-lived dependency of the api and worker processes.
//
// With LEASE_STORE=memory no database is opened: DB, the catalog services and
// their handlers stay nil and the lease store doubles as the catalog.
type Container struct {
	// ========================================
	// INFRASTRUCTURE LAYER
	// ========================================
	Config      *config.Config
	DB          *database.PostgresDB
	Cache       cache.Cache
	Redis       *infraCache.RedisCache
	AsynqClient *asynq.Client
	RateLimiter *middleware.RateLimiter

	// ========================================
	// REPOSITORY LAYER
	// ========================================
	AuthorRepo author.Repository
	BookRepo   bookRepo.RepositoryInterface
	LeaseStore leaseRepo.Store

	// ========================================
	// SERVICE LAYER
	// ========================================
	AuthorService author.Service
	BookService   bookService.ServiceInterface
	Catalog       leaseService.CatalogLookup
	Engine        *leaseService.TransitionEngine
	Resolver      *leaseService.Resolver

	// ========================================
	// HANDLER LAYER
	// ========================================
	AuthorHandler *authorHandler.AuthorHandler
	BookHandler   *bookHandler.Handler
	LeaseHandler  *leaseHandler.LeaseHandler
}

// ========================================
// CONSTRUCTOR: BUILD CONTAINER
// ========================================

// NewContainer builds the graph in dependency order:
// config, infrastructure, repositories, services, handlers.
func NewContainer(cfg *config.Config) (*Container, error) {
	logger.Info("Initializing DI container", map[string]interface{}{
		"environment": cfg.App.Environment,
		"lease_store": cfg.Lease.StoreDriver,
	})

	c := &Container{Config: cfg}

	// ========================================
	// STEP 1: DATABASE
	// ========================================
	if cfg.Lease.StoreDriver == "postgres" {
		if err := c.initDatabase(); err != nil {
			return nil, err
		}
	}

	// ========================================
	// STEP 2: CACHE + QUEUE CLIENT
	// ========================================
	c.initCache()
	c.initQueueClient()

	if cfg.RateLimit.Enabled {
		c.RateLimiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}

	// ========================================
	// STEP 3: REPOSITORIES
	// ========================================
	c.initRepositories()

	// ========================================
	// STEP 4: SERVICES
	// ========================================
	c.initServices()

	// ========================================
	// STEP 5: HANDLERS
	// ========================================
	c.initHandlers()

	logger.Info("DI container initialized", nil)
	return c, nil
}

func (c *Container) initDatabase() error {
	db := database.NewPostgresDB(c.Config.Database.PoolConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.HealthCheck(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("database health check failed: %w", err)
	}

	c.DB = db
	return nil
}

// initCache falls back to the process-local cache when Redis is disabled.
// A Redis that is configured but down is kept: cache errors are logged and
// every reader falls through to the database.
func (c *Container) initCache() {
	if !c.Config.Redis.Enabled {
		logger.Warn("Redis disabled, using in-memory cache", nil)
		c.Cache = cache.NewMemoryCache()
		return
	}

	rc := infraCache.NewRedisCache(c.Config.Redis.Host, c.Config.Redis.Password, c.Config.Redis.DB)
	if err := rc.Connect(context.Background()); err != nil {
		logger.Warn("Redis connection failed (non-critical)", map[string]interface{}{
			"error": err.Error(),
		})
	}
	c.Redis = rc
	c.Cache = rc
}

func (c *Container) initQueueClient() {
	if !c.Config.Job.Enabled || !c.Config.Redis.Enabled {
		return
	}
	c.AsynqClient = asynq.NewClient(c.RedisClientOpt())
}

// RedisClientOpt is shared by the asynq client, server and scheduler.
func (c *Container) RedisClientOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     c.Config.Redis.Host,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	}
}

func (c *Container) initRepositories() {
	if c.DB == nil {
		store := leaseRepo.NewMemoryStore()
		for id := int64(1); id <= int64(c.Config.Lease.MemoryBooks); id++ {
			store.AddBook(id)
		}
		c.LeaseStore = store
		return
	}

	sqlDB := c.DB.SQLX()
	c.AuthorRepo = authorRepo.NewPostgresRepository(sqlDB)
	c.BookRepo = bookRepo.NewPostgresRepository(sqlDB)
	c.LeaseStore = leaseRepo.NewPostgresStore(c.DB.Pool,
		leaseRepo.WithLockTimeout(c.Config.Lease.LockTimeout),
	)
}

func (c *Container) initServices() {
	var bookCatalog *bookService.CatalogLookup
	if c.BookRepo != nil {
		bookCatalog = bookService.NewCatalogLookup(c.BookRepo, c.Cache, bookService.DefaultExistsTTL)
		c.Catalog = bookCatalog
	} else {
		c.Catalog = c.LeaseStore.(*leaseRepo.MemoryStore)
	}

	// ----------------------------------------
	// LEASE ENGINE + RESOLVER
	// ----------------------------------------
	opts := []leaseService.EngineOption{
		leaseService.WithMetrics(metrics.LeaseRecorder{}),
		leaseService.WithRetry(
			leaseService.WithMaxAttempts(c.Config.Lease.RetryMaxAttempts),
			leaseService.WithBaseDelay(c.Config.Lease.RetryBaseDelay),
			leaseService.WithJitterFactor(c.Config.Lease.RetryJitter),
		),
	}
	if c.AsynqClient != nil {
		opts = append(opts, leaseService.WithPublisher(
			queue.NewLeasePublisher(c.AsynqClient, c.Config.Job.Queue, c.Config.Job.TaskMaxRetry),
		))
	}

	c.Engine = leaseService.NewTransitionEngine(c.LeaseStore, c.Catalog, opts...)
	c.Resolver = leaseService.NewResolver(c.LeaseStore, c.Catalog)

	// ----------------------------------------
	// CATALOG
	// ----------------------------------------
	if c.AuthorRepo != nil {
		c.AuthorService = authorService.NewAuthorService(c.AuthorRepo)
		c.BookService = bookService.NewService(c.BookRepo, c.AuthorService, bookCatalog, c.Resolver)
	}
}

func (c *Container) initHandlers() {
	c.LeaseHandler = leaseHandler.NewLeaseHandler(c.Engine, c.Resolver)

	if c.AuthorService != nil {
		c.AuthorHandler = authorHandler.NewAuthorHandler(c.AuthorService)
		c.BookHandler = bookHandler.NewHandler(c.BookService)
	}
}

// HealthCheck reports each dependency; an absent dependency is skipped.
func (c *Container) HealthCheck(ctx context.Context) map[string]error {
	status := map[string]error{}
	if c.DB != nil {
		status["database"] = c.DB.Ping(ctx)
	}
	if c.Redis != nil {
		status["redis"] = c.Redis.HealthCheck(ctx)
	}
	return status
}

// Cleanup releases connections on shutdown.
func (c *Container) Cleanup() {
	logger.Info("Cleaning up container resources", nil)

	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil {
			logger.Error("Failed to close asynq client", err)
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logger.Error("Failed to close Redis", err)
		}
	}

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logger.Error("Failed to close database", err)
		}
	}
}
