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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/acheong08/credscore/internal/app"
	"github.com/acheong08/credscore/internal/config"
	"github.com/acheong08/credscore/internal/relay"
	"github.com/acheong08/credscore/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		os.Exit(fail(logger, err))
	}
}

// fail logs err and flushes the logger before the process exits, since
// os.Exit skips deferred calls.
func fail(logger *zap.Logger, err error) int {
	logger.Error("Server failed", zap.Error(err))
	_ = logger.Sync()
	return 1
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(server.Deps{
		Scorer:          a.Analyzer,
		Extractor:       a.Extractor,
		History:         a.History,
		Relay:           relay.New(cfg.RelayTarget, cfg.RelayTimeout, cfg.StatusPolicy, logger.Named("relay")),
		DefaultLanguage: cfg.DefaultLanguage,
		Logger:          logger.Named("server"),
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server starting", zap.String("port", cfg.Port), zap.String("history", cfg.HistoryBackend))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
