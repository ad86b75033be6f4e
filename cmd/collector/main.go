package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"quoteflow/internal/config"
	"quoteflow/internal/obs"
	"quoteflow/internal/pipeline"

	"github.com/yanun0323/logs"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Printf("collector: %v", err)
		os.Exit(1)
	}
}

func run() error {
	configFlag := flag.String("config", "config.yaml", "path to the YAML config")
	envFlag := flag.String("env", ".env", "optional dotenv file loaded before the config")
	flag.Parse()

	if err := config.LoadEnv(*envFlag); err != nil {
		return err
	}
	cfg, err := config.LoadAndValidate(*configFlag)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Profiling.Enable {
		stopProfiler, err := startProfiler(cfg.Profiling)
		if err != nil {
			return err
		}
		defer stopProfiler()
	}

	p, err := pipeline.Build(ctx, cfg)
	if err != nil {
		return err
	}
	logs.Infof("sources: %v", cfg.Enabled())

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Enable {
		g.Go(func() error {
			return obs.Serve(gctx, cfg.Metrics.Addr, cfg.Metrics.Path, p.Metrics())
		})
	}
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-p.ReplayDone():
			logs.Info("replay finished, stopping")
		}
		p.Stop()
		return nil
	})
	g.Go(func() error {
		defer stop()
		return p.Run(gctx)
	})
	return g.Wait()
}
