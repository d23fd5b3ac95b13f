package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"solmate-sdk/internal/collector"
	"solmate-sdk/internal/logger"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config/config.yaml", "path to YAML config")
	flag.Parse()

	cfg, err := collector.LoadYAML(cfgPath)
	if err != nil {
		log.Fatalf("load yaml config: %v", err)
	}
	logger.Initialize(cfg.System.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT/SIGTERM for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		slog.Info("received signal, shutting down", "signal", s.String())
		cancel()
	}()

	mgr := &collector.Manager{Cfg: cfg}
	if err := mgr.Run(ctx); err != nil {
		slog.Error("manager exited with error", "err", err)
	}
}
