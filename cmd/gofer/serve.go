package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/gofer/internal/api/ws"
	"github.com/gosuda/gofer/internal/auth"
	"github.com/gosuda/gofer/internal/config"
	"github.com/gosuda/gofer/internal/domain"
	"github.com/gosuda/gofer/internal/events"
	"github.com/gosuda/gofer/internal/lifecycle"
	"github.com/gosuda/gofer/internal/moderation"
	"github.com/gosuda/gofer/internal/server"
	"github.com/gosuda/gofer/internal/store/memory"
	"github.com/gosuda/gofer/internal/store/postgres"
	redisstore "github.com/gosuda/gofer/internal/store/redis"
	"github.com/gosuda/gofer/internal/submission"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

// storage is the part of a store backend the server needs.
type storage interface {
	Tasks() domain.TaskRepository
	Users() domain.UserRepository
	Close()
}

func openStore(ctx context.Context, cfg *config.Config) (storage, func(context.Context) error, error) {
	if cfg.Store == config.StoreMemory {
		return memory.New(), nil, nil
	}

	if cfg.Database.MaxConns > math.MaxInt32 {
		return nil, nil, fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}
	pg, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return nil, nil, err
	}
	return pg, pg.Ping, nil
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, ready, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var (
		publisher *events.Publisher
		stream    ws.Subscriber
	)
	if cfg.Redis.Addr != "" {
		pubsub, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer pubsub.Close()

		publisher = events.NewPublisher(pubsub)
		stream = pubsub
	} else {
		log.Warn().Msg("GOFER_REDIS_ADDR not set, task events are not published")
		publisher = events.NewPublisher(nil)
	}

	engine := lifecycle.NewEngine(store.Tasks(),
		lifecycle.Policy{AllowAssigneeCancel: cfg.Tasks.AllowAssigneeCancel},
		lifecycle.WithEvents(publisher),
	)
	submitter := submission.NewService(store.Tasks(), moderation.New(),
		submission.WithEvents(publisher),
	)
	authSvc := auth.NewService(store.Users(), cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	srv := server.New(ctx, cfg, server.Deps{
		Engine:    engine,
		Submitter: submitter,
		Auth:      authSvc,
		Events:    stream,
		Ready:     ready,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("store", cfg.Store).Msg("starting server")
		errCh <- srv.Start(ctx)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info().Msg("stopped")
	return nil
}
