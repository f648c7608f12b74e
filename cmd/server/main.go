package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/lol-inhouse-queue/internal/config"
	"github.com/DoyleJ11/lol-inhouse-queue/internal/httpapi"
	"github.com/DoyleJ11/lol-inhouse-queue/internal/hub"
	"github.com/DoyleJ11/lol-inhouse-queue/internal/lobby"
	"github.com/DoyleJ11/lol-inhouse-queue/internal/logging"
	"github.com/DoyleJ11/lol-inhouse-queue/internal/metrics"
	"github.com/DoyleJ11/lol-inhouse-queue/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	h := hub.NewHub(ctx, logger)

	deps := httpapi.Deps{Roles: cfg.Roles, Metrics: m, Logger: logger}
	var sink lobby.RosterSink = lobby.LogSink{Logger: logger}
	if cfg.DatabaseURL != "" {
		st, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer st.Close()
		sink = st
		deps.Restrictions = st
		deps.Launches = st
		deps.Admin = st
		deps.DB = st
	} else {
		logger.Warn("DATABASE_URL not set: no restrictions, rosters are only logged")
	}

	lb := lobby.NewLobby(ctx, lobby.Options{
		Roles:       cfg.Roles,
		ReadyPeriod: cfg.ReadyPeriod,
		Notifier:    h,
		Sink:        sink,
		Metrics:     m,
		Logger:      logger,
	})
	deps.Lobby = lb

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.SetupRoutes(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.Int("roles", len(cfg.Roles)), zap.Duration("ready_period", cfg.ReadyPeriod))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		select {
		case <-lb.Done():
			return lobby.ErrStopped
		case <-gctx.Done():
			return nil
		}
	})

	err := g.Wait()
	stop()
	<-lb.Done()
	if errors.Is(err, lobby.ErrStopped) && ctx.Err() != nil {
		return nil
	}
	return err
}
