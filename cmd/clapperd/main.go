package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"clapper/internal/api"
	"clapper/internal/broadcast"
	"clapper/internal/config"
	"clapper/internal/deps"
	"clapper/internal/logging"
	"clapper/internal/mediastore"
	"clapper/internal/probe"
	"clapper/internal/queue"
	"clapper/internal/signing"
	"clapper/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", cfg.LogPath()},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		return fmt.Errorf("missing required dependencies: %s", strings.Join(missing, ", "))
	}

	store, err := queue.Open(ctx, cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return err
	}
	defer store.Close()

	media := mediastore.New(store.Pool())

	signer, err := signing.New(cfg.CDN.BaseURL, cfg.CDN.SigningSecret, time.Duration(cfg.CDN.TokenTTL)*time.Second)
	if err != nil {
		return err
	}

	prober := probe.New(cfg.Probe.Binary, time.Duration(cfg.Probe.Timeout)*time.Second)
	notifier := broadcast.NewService(cfg)

	w := worker.New(store, media, signer, prober, notifier, logger)
	daemon := worker.NewDaemon(cfg, store, w, logger)

	apiServer := api.NewServer(cfg, store, daemon, logger)
	if err := apiServer.Start(ctx); err != nil {
		return err
	}
	defer apiServer.Stop()

	return daemon.Run(ctx)
}
