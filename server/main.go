package main

import (
	"context"
	"fmt"
	"os"

	"github.com/meikuraledutech/blockpipe/internal/config"
	"github.com/meikuraledutech/blockpipe/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("BLOCKPIPE_CONFIG"))
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.New(level)

	store, release, err := openStore(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer release()

	cat, err := openCatalog(cfg)
	if err != nil {
		return err
	}

	app := newApp(store, cat, logger)
	logger.Info("listening", "addr", cfg.Listen, "store", cfg.Store, "stages", len(cat.Stages()))
	return app.Listen(cfg.Listen)
}
