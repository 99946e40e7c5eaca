package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"Sentinel-X/internal/api"
	"Sentinel-X/internal/app"
	"Sentinel-X/internal/config"
	"Sentinel-X/internal/observability/metrics"
	"Sentinel-X/pkg/logger"
)

// main 是 Sentinel-X 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("sentinelxd 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	configPath := os.Getenv("SENTINELX_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "sentinelx.yaml")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: cfg.Logging.Outputs,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Logging.Audit.Enabled,
			Path:       cfg.Logging.Audit.Path,
			MaxSizeMB:  cfg.Logging.Audit.MaxSizeMB,
			MaxBackups: cfg.Logging.Audit.MaxBackups,
		},
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	state, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
		defer cancel()
		_ = state.Close(closeCtx)
	}()

	server := api.NewServer(cfg.Server.Address, state,
		api.WithReadHeaderTimeout(cfg.Server.ReadHeaderTimeout.Std()),
		api.WithShutdownTimeout(cfg.Server.ShutdownTimeout.Std()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return state.Run(gctx) })
	g.Go(func() error { return server.Start(gctx) })
	if cfg.Metrics.Address != "" {
		g.Go(func() error { return metrics.StartServer(gctx, cfg.Metrics.Address) })
	}

	logger.L().Info("Sentinel-X 已启动", "address", cfg.Server.Address, "config", configPath)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
