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

	"github.com/hyeon-dev/chessduel/internal/builder"
	"github.com/hyeon-dev/chessduel/internal/config"
	"github.com/hyeon-dev/chessduel/internal/obslog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	deps, err := builder.New(cfg, logger)
	if err != nil {
		logger.Fatal("dependency init failed", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           deps.Server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("duel_server_listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("mode", cfg.OpponentMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("duel_server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", zap.Error(err))
	}
	deps.Close()
}
