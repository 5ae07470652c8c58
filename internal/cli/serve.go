package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/auth"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/events"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/handlers"
	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/store"
	"github.com/Rushigaming001/askify-sky-chat-sub002/web"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the dispatch consumers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply database migrations before starting")
	return cmd
}

func serve(ctx context.Context, opts *rootOptions, migrate bool) error {
	if migrate {
		_, cfg, _, err := loadConfig(opts)
		if err != nil {
			return err
		}
		if err := store.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			return err
		}
	}

	a, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.log
	log.Info("starting", zap.String("version", version), zap.String("buildDate", buildDate))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	dispatcher := a.dispatcher(reg)

	keys, err := auth.DeriveKeys(a.cfg.AppSecret)
	if err != nil {
		return err
	}
	tokens := auth.NewTokens(keys.Token, a.cfg.TokenTTL)

	h := &handlers.Handler{
		Subs:          a.pg,
		Presence:      a.redis,
		Dispatcher:    dispatcher,
		Keys:          a.loader,
		Tokens:        tokens,
		Sessions:      auth.NewSessions(keys, a.cfg.SessionSecure, int(a.cfg.TokenTTL/time.Second)),
		OTP:           auth.NewOTPService(a.redis, auth.LogMailer{Log: log}, tokens),
		WebhookSecret: a.cfg.WebhookSecret,
		Assets:        web.Static(),
		CacheVersion:  a.cfg.CacheVersion,
		Gatherer:      reg,
		Health:        a.health,
		Log:           log,
	}

	listener, err := store.NewDispatchListener(a.cfg.DatabaseURL, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort("", a.cfg.Port),
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return events.NewConsumer(dispatcher, log).Run(gctx, a.redis, listener)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info("shutdown complete")
	return err
}
