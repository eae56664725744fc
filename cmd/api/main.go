package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"chronobooth/internal/bootstrap"
	"chronobooth/internal/infra"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bootstrap.Serve(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("api failed")
	}
}
