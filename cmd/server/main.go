package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jdorantes1987/aapn-nc/internal/auth"
	"github.com/jdorantes1987/aapn-nc/internal/config"
	"github.com/jdorantes1987/aapn-nc/internal/metrics"
	"github.com/jdorantes1987/aapn-nc/internal/registry"
	"github.com/jdorantes1987/aapn-nc/internal/server"
	"github.com/jdorantes1987/aapn-nc/internal/storage/postgres"
)

func main() {
	loadLocalEnv()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("init database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	met := metrics.New()
	svc := registry.NewService(db.Believers(), log, met, cfg.ListLimit)
	manager := auth.NewManager(db.Users(), log, met)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	srv := server.New(cfg, server.Deps{
		Registry: svc,
		Auth:     manager,
		Tokens:   tokens,
		Logger:   log,
	})

	go func() {
		log.Info("registro de creyentes listening", "addr", cfg.HTTPAddress())
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error("graceful shutdown error", "error", err)
	}
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found; relying on existing environment")
	}
}
