package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/DoyleJ11/loto-backend/internal/config"
	"github.com/DoyleJ11/loto-backend/internal/engine"
	"github.com/DoyleJ11/loto-backend/internal/game"
	"github.com/DoyleJ11/loto-backend/internal/httpapi"
	"github.com/DoyleJ11/loto-backend/internal/hub"
	"github.com/DoyleJ11/loto-backend/internal/logging"
	"github.com/DoyleJ11/loto-backend/internal/realtime"
	"github.com/DoyleJ11/loto-backend/internal/registry"
	"github.com/DoyleJ11/loto-backend/internal/store"
	"github.com/DoyleJ11/loto-backend/internal/store/memstore"
	"github.com/DoyleJ11/loto-backend/internal/store/pgstore"
	"github.com/DoyleJ11/loto-backend/internal/ws"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() (err error) {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, st.Close()) }()

	h := hub.NewHub(ctx, log)
	defer h.Shutdown()

	coord := game.NewCoordinator(st, h, engine.Rand, game.Config{MaxPlayers: cfg.RoomMaxPlayers}, log)
	b := realtime.NewBroadcaster(registry.New(), coord, log)
	coord.SetNotifier(b)

	// Build the router with the coordinator and the live endpoint injected
	wsHandler := ws.Handler(b, ws.Options{
		WriteTimeout:   cfg.WSWriteTimeout,
		PingInterval:   cfg.WSPingInterval,
		SendBuffer:     cfg.WSSendBuffer,
		OriginPatterns: cfg.WSOrigins,
	}, log)
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.SetupRoutes(coord, wsHandler, log),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.Bool("in_memory", cfg.InMemory()))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (store.Store, error) {
	if cfg.InMemory() {
		log.Warn("DATABASE_URL not set, state is kept in memory only")
		return memstore.New(), nil
	}
	st, err := pgstore.Open(ctx, cfg.DatabaseURL, pgstore.Options{MaxOpenConns: cfg.DBMaxOpenConns, Logger: log})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}
