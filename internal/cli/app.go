package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/config"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/logging"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/metrics"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/push"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/store"
)

// app holds the components shared by serve and send.
type app struct {
	loader *config.Loader
	cfg    *config.Config
	log    *zap.Logger
	pg     *store.PostgresStore
	redis  *store.RedisStore
}

func loadConfig(opts *rootOptions) (*config.Loader, *config.Config, *zap.Logger, error) {
	loader, err := config.NewLoader(opts.envFiles...)
	if err != nil {
		return nil, nil, nil, err
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, err
	}
	return loader, cfg, log, nil
}

func openApp(ctx context.Context, opts *rootOptions) (*app, error) {
	loader, cfg, log, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	rdb := store.NewRedisStore(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx); err != nil {
		pg.Close()
		_ = rdb.Close()
		return nil, err
	}
	return &app{loader: loader, cfg: cfg, log: log, pg: pg, redis: rdb}, nil
}

func (a *app) Close() {
	a.pg.Close()
	if err := a.redis.Close(); err != nil {
		a.log.Warn("closing redis", zap.Error(err))
	}
	_ = a.log.Sync()
}

func (a *app) health(ctx context.Context) error {
	return errors.Join(a.pg.Ping(ctx), a.redis.Ping(ctx))
}

func (a *app) dispatcher(reg prometheus.Registerer) *push.Dispatcher {
	return push.NewDispatcher(a.pg, a.loader, a.log, push.Options{
		Subject:        a.cfg.VAPIDSubject,
		Concurrency:    a.cfg.PushConcurrency,
		EncryptPayload: a.cfg.PushEncryptPayload,
		Client:         &http.Client{Timeout: a.cfg.PushHTTPTimeout},
		Metrics:        metrics.NewPush(reg),
	})
}
