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

	"chess-arena/internal/arena"
	appcfg "chess-arena/internal/config"
	"chess-arena/internal/msgcat"
	"chess-arena/internal/obslog"
	"chess-arena/internal/presence"
	"chess-arena/internal/store"
	"chess-arena/internal/transport/rest"
	"chess-arena/internal/transport/ws"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer logger.Sync()

	cat, err := msgcat.New(cfg.MessageDir)
	if err != nil {
		logger.Fatal("msgcat_init_error", zap.Error(err))
	}

	// persistent store when a database is configured, in-memory otherwise
	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("store_init_error", zap.Error(err))
		}
		initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = pg.InitSchema(initCtx)
		cancel()
		if err != nil {
			logger.Fatal("store_schema_error", zap.Error(err))
		}
		st = pg
		logger.Info("store_ready", zap.String("backend", "postgres"))
	} else {
		st = store.NewMemory()
		logger.Warn("store_ready", zap.String("backend", "memory"))
	}
	defer st.Close()

	var tracker *presence.Tracker
	if cfg.RedisURL != "" {
		tracker, err = presence.New(cfg.RedisURL)
		if err != nil {
			logger.Fatal("presence_init_error", zap.Error(err))
		}
		defer tracker.Close()
		logger.Info("presence_ready")
	} else {
		logger.Warn("presence_disabled")
	}

	registry := arena.NewRegistry(st, logger)

	mux := http.NewServeMux()
	rest.NewHandlers(st, tracker, cat, logger).Register(mux)
	ws.NewServer(registry, cat, tracker, cfg.AllowedOrigins, logger).Register(mux)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           rest.CORS(cfg.AllowedOrigins, mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server_listen", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server_error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("server_shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
