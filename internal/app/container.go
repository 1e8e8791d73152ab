// Package app wires configuration, adapters and use cases together.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/user/image-scraper-service/internal/adapter/azureblob"
	"github.com/user/image-scraper-service/internal/adapter/filestore"
	"github.com/user/image-scraper-service/internal/adapter/httpfetch"
	"github.com/user/image-scraper-service/internal/adapter/memory"
	"github.com/user/image-scraper-service/internal/adapter/postgres"
	redis_adapter "github.com/user/image-scraper-service/internal/adapter/redis"
	"github.com/user/image-scraper-service/internal/delivery/http/handler"
	"github.com/user/image-scraper-service/internal/delivery/http/router"
	"github.com/user/image-scraper-service/internal/repository"
	"github.com/user/image-scraper-service/internal/usecase"
	"github.com/user/image-scraper-service/pkg/config"
)

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Scraper usecase.Scraper
	Images  usecase.ImageService
	Syncer  usecase.Syncer

	closers []func()
}

type records struct {
	addresses repository.AddressRepository
	images    repository.ImageRepository
}

type coordination struct {
	cache  repository.DedupCache
	locker repository.Locker
}

// New connects to the configured backends and builds the use cases.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	recs, err := c.openRecords(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	coord, err := c.openCoordination(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	blobs, err := c.openBlobs(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}

	client := httpfetch.NewClient(max(cfg.PageFetchTimeout(), cfg.ImageFetchTimeout()))
	extractor := httpfetch.NewPageExtractor(client, cfg.PageFetchTimeout(), cfg.UserAgent, logger)
	fetcher := httpfetch.NewImageFetcher(client, cfg.ImageFetchTimeout(), cfg.MaxImageBytes, cfg.MaxImagePixels, cfg.UserAgent)

	store := usecase.NewImageStore(recs.images, blobs, logger)
	c.Scraper = usecase.NewScraper(
		recs.addresses, recs.images, coord.cache, extractor, fetcher, store, coord.locker, logger,
		usecase.ScraperOptions{
			Workers:               cfg.FetchWorkers,
			ScopeRestoreToAddress: cfg.RestoreScopeToAddress,
		},
	)

	c.Images, err = usecase.NewImageService(recs.addresses, recs.images, blobs, coord.cache, store, cfg.RenderCacheSize, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Syncer = usecase.NewSyncer(recs.addresses, c.Scraper, logger)
	return c, nil
}

// Handler returns the HTTP handler.
func (c *Container) Handler() http.Handler {
	h := handler.NewHandler(c.Scraper, c.Images, c.Logger)
	return router.New(h, c.Logger, c.Config.RequestTimeout())
}

// Close releases backend connections in reverse order of opening.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func (c *Container) openRecords(ctx context.Context) (records, error) {
	switch c.Config.StoreBackend {
	case "memory":
		db := memory.NewStore()
		return records{memory.NewAddressRepo(db), memory.NewImageRepo(db)}, nil
	default:
		pool, err := pgxpool.New(ctx, c.Config.PostgresURL)
		if err != nil {
			return records{}, fmt.Errorf("unable to connect to database: %w", err)
		}
		c.closers = append(c.closers, pool.Close)
		if err := pool.Ping(ctx); err != nil {
			return records{}, fmt.Errorf("ping postgres: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			return records{}, err
		}
		c.Logger.Info("PostgreSQL connection pool established")
		return records{postgres.NewAddressRepo(pool), postgres.NewImageRepo(pool)}, nil
	}
}

func (c *Container) openCoordination(ctx context.Context) (coordination, error) {
	switch c.Config.CacheBackend {
	case "memory":
		return coordination{memory.NewDedupCache(), memory.NewKeyedLocker()}, nil
	default:
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.Config.RedisAddr,
			Password: c.Config.RedisPassword,
			DB:       c.Config.RedisDB,
		})
		c.closers = append(c.closers, func() { _ = rdb.Close() })
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			return coordination{}, fmt.Errorf("unable to connect to redis: %w", err)
		}
		c.Logger.Info("Redis connection established")
		return coordination{
			cache:  redis_adapter.NewDedupCache(rdb),
			locker: redis_adapter.NewLocker(rdb, c.Config.LockTTL()),
		}, nil
	}
}

func (c *Container) openBlobs(ctx context.Context) (repository.BlobStore, error) {
	switch c.Config.BlobBackend {
	case "azure":
		store, err := azureblob.NewBlobStore(c.Config.AzureAccountName, c.Config.AzureAccountKey, c.Config.AzureContainer)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureContainer(ctx); err != nil {
			return nil, err
		}
		c.Logger.Info("Azure blob container ready", zap.String("container", c.Config.AzureContainer))
		return store, nil
	default:
		store, err := filestore.NewBlobStore(c.Config.MediaRoot)
		if err != nil {
			return nil, err
		}
		c.Logger.Info("Filesystem blob store ready", zap.String("root", c.Config.MediaRoot))
		return store, nil
	}
}
