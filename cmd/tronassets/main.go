package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ohmynofan/tron-assets/internal/app"
	"github.com/ohmynofan/tron-assets/internal/config"
	"github.com/ohmynofan/tron-assets/internal/platform/logger"
	"github.com/ohmynofan/tron-assets/internal/platform/ui"
)

func main() {
	cfg := config.Load()

	_ = logger.Init(cfg.LogPath)
	defer logger.Close()

	if err := cfg.Validate(); err != nil {
		print(err.Error())
		os.Exit(1)
	}

	ui.StartUISystem()
	defer ui.StopUISystem()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.New(cfg).Run(ctx); err != nil {
		ui.StopUISystem()
		print(err.Error())
		os.Exit(1)
	}
}
