package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/tablecloth/internal/asset"
	"github.com/DoyleJ11/tablecloth/internal/background"
	"github.com/DoyleJ11/tablecloth/internal/config"
	"github.com/DoyleJ11/tablecloth/internal/engine"
	"github.com/DoyleJ11/tablecloth/internal/httpapi"
	"github.com/DoyleJ11/tablecloth/internal/hub"
	"github.com/DoyleJ11/tablecloth/internal/logging"
	"github.com/DoyleJ11/tablecloth/internal/roster"
	"github.com/DoyleJ11/tablecloth/internal/worker"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	store, err := roster.Load(cfg.TeamsFile)
	if err != nil {
		return err
	}

	layers, err := asset.Load(ctx, cfg.AssetDir, cfg.LoadWorkers, logger)
	if err != nil {
		return fmt.Errorf("load layers: %w", err)
	}
	base, groups, err := engine.Index(layers, engine.Descending)
	if err != nil {
		return err
	}
	if n := len(store.Teams()); n != len(groups) {
		logger.Warn("roster and layer asset disagree on team count",
			zap.Int("roster", n), zap.Int("asset", len(groups)))
	}

	bg := background.NewManager(base.Mat.Size(), cfg.FallbackDir, logger)
	if p := store.ImageRoute(); p != "" {
		if _, err := bg.Restore(p); err != nil {
			logger.Warn("saved background not restored", zap.String("path", p), zap.Error(err))
		}
	}

	// Stopped only after the server has drained.
	hubCtx, stopHub := context.WithCancel(context.WithoutCancel(ctx))
	defer stopHub()
	h := hub.NewHub(hubCtx, hub.Deps{
		Base:        base,
		Groups:      groups,
		Background:  bg,
		Roster:      store,
		Worker:      worker.New(cfg.JPEGQuality, logger),
		FallbackDir: cfg.FallbackDir,
		Log:         logger,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.SetupRoutes(h, store, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	logger.Info("listening",
		zap.String("addr", cfg.Addr),
		zap.Int("teams", len(groups)),
		zap.Int("width", base.Mat.Size().X),
		zap.Int("height", base.Mat.Size().Y),
	)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	stopHub()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
