// Package app assembles the record use case from configuration. Both the
// gRPC service and the scanctl CLI start here.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-asset-scan-service/config"
	"github.com/fekuna/omnipos-asset-scan-service/internal/catalog"
	"github.com/fekuna/omnipos-asset-scan-service/internal/ingest"
	"github.com/fekuna/omnipos-asset-scan-service/internal/lock"
	"github.com/fekuna/omnipos-asset-scan-service/internal/logger"
	"github.com/fekuna/omnipos-asset-scan-service/internal/record"
	"github.com/fekuna/omnipos-asset-scan-service/internal/record/repository"
	"github.com/fekuna/omnipos-asset-scan-service/internal/record/usecase"
	"github.com/fekuna/omnipos-asset-scan-service/internal/search"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type App struct {
	UseCase record.UseCase
	closers []func() error
}

var openSQLStore = repository.OpenSQLStore

// New builds the use case. On failure everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config, log logger.ZapLogger) (*App, error) {
	a := &App{}
	if err := a.build(ctx, cfg, log); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, cfg *config.Config, log logger.ZapLogger) error {
	kv, err := a.openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	repo := repository.NewKVRepository(kv, cfg.Store.RecordsKey, cfg.Store.OutboxKey)
	log.Info("Record store ready", zap.String("driver", cfg.Store.Driver))

	locker, err := a.newLocker(ctx, cfg, log)
	if err != nil {
		return err
	}

	client, err := catalog.NewClient(cfg.Catalog.Endpoint, cfg.Catalog.Timeout, log)
	if err != nil {
		return err
	}
	enricher := catalog.NewEnricher(client, log)

	forwarder, err := a.newForwarder(cfg, log)
	if err != nil {
		return err
	}

	var index usecase.Indexer
	if cfg.Elastic.Enabled {
		if idx, err := newIndex(ctx, cfg.Elastic); err != nil {
			log.Warn("Could not connect to Elasticsearch (history search falls back to the store)", zap.Error(err))
		} else {
			index = idx
			log.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
		}
	}

	a.UseCase = usecase.NewRecordUseCase(repo, locker, enricher, forwarder, index, log)
	return nil
}

// Close releases everything New opened, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openStore(ctx context.Context, cfg config.StoreConfig) (repository.KV, error) {
	if cfg.Driver == "memory" {
		return repository.NewMemoryKV(), nil
	}
	store, err := openSQLStore(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)
	return store, nil
}

func (a *App) newLocker(ctx context.Context, cfg *config.Config, log logger.ZapLogger) (lock.Locker, error) {
	switch cfg.Lock.Backend {
	case "", "memory":
		return lock.NewMemory(), nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("could not connect to redis: %w", err)
		}
		log.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

		l := lock.NewRedis(rdb, cfg.Lock.Key, cfg.Lock.TTL)
		l.OnReleaseError(func(err error) {
			log.Error("failed to release store lock", zap.Error(err))
		})
		return l, nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Lock.Backend)
	}
}

func (a *App) newForwarder(cfg *config.Config, log logger.ZapLogger) (ingest.Forwarder, error) {
	switch cfg.Ingest.Transport {
	case "", "http":
		return ingest.NewHTTPForwarder(ingest.HTTPConfig{
			Endpoint:    cfg.Ingest.Endpoint,
			ContentType: cfg.Ingest.ContentType,
			WrapQuotes:  cfg.Ingest.WrapQuotes,
			Timeout:     cfg.Ingest.Timeout,
		}, log)
	case "kafka":
		f, err := ingest.NewKafkaForwarder(cfg.Kafka.Brokers, cfg.Ingest.KafkaTopic, cfg.Ingest.Timeout)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, f.Close)
		return f, nil
	default:
		return nil, fmt.Errorf("unknown ingest transport %q", cfg.Ingest.Transport)
	}
}

func newIndex(ctx context.Context, cfg config.ElasticsearchConfig) (*search.RecordIndex, error) {
	client, err := search.NewClient(search.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, err
	}
	idx := search.NewRecordIndex(client, cfg.Index)
	if err := idx.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}
