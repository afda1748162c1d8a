package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chxlky/kanban-sync/database"
	"github.com/chxlky/kanban-sync/integrations"
	"github.com/chxlky/kanban-sync/internal/config"
	"github.com/chxlky/kanban-sync/internal/metrics"
	"github.com/chxlky/kanban-sync/kanban"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	storePingTimeout = 5 * time.Second
	drainTimeout     = 30 * time.Second
)

type app struct {
	registry *prometheus.Registry
	store    database.Store
	sync     *kanban.Synchronizer
}

func newApp(cfg *config.Config) (*app, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	httpClient := integrations.NewHTTPClient(integrations.AuthConfig{
		BaseURL:  cfg.Remote.BaseURL,
		Token:    cfg.Remote.Token,
		Username: cfg.Remote.Username,
		Password: cfg.Remote.Password,
		Timeout:  cfg.Remote.Timeout,
	})
	client := integrations.NewKanbanClient(cfg.Remote.BaseURL, httpClient, m)

	s := kanban.New(client, kanban.Options{
		Store:          store,
		StoreKey:       cfg.Board.Key,
		Metrics:        m,
		DefaultColumns: cfg.Board.DefaultColumns,
	})

	return &app{registry: registry, store: store, sync: s}, nil
}

// Close waits for queued reconciles before closing the store they write to.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if err := a.sync.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to drain reconcile queue: %w", err))
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close store: %w", err))
	}
	return errors.Join(errs...)
}

func openStore(cfg *config.Config) (database.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		db, err := database.Init(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		return database.NewSQLStore(db), nil

	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), storePingTimeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		zap.L().Info("Connected to redis", zap.String("addr", cfg.Redis.Addr))
		return database.NewRedisStore(client, cfg.Redis.Prefix, cfg.Redis.TTL), nil

	default:
		return database.NopStore{}, nil
	}
}

// withBoard loads the remote board, runs fn and drains pending reconciles
// before returning.
func withBoard(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			zap.L().Error("Error during shutdown", zap.Error(err))
		}
	}()

	if _, err := a.sync.Load(ctx); err != nil {
		return err
	}
	return fn(ctx, a)
}
