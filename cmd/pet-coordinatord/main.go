// pet-coordinatord runs one or more PET aggregation tasks as a single HTTP
// process: it loads a TOML configuration, starts each task's phase machine,
// and serves the wire protocol and metrics over HTTP until it receives a
// termination signal.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/xaynetics/pet-coordinator/common/log"
	"github.com/xaynetics/pet-coordinator/internal/config"
	"github.com/xaynetics/pet-coordinator/internal/coordinator"
	"github.com/xaynetics/pet-coordinator/internal/metrics"
	"github.com/xaynetics/pet-coordinator/internal/metrics/pprof"
	transporthttp "github.com/xaynetics/pet-coordinator/internal/transport/http"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	app := &cli.App{
		Name:    "pet-coordinatord",
		Usage:   "runs the PET federated aggregation coordinator",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "path to the coordinator's TOML configuration",
				Required: true,
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "log at debug level",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	level := log.InfoLevel
	if c.Bool("debug") {
		level = log.DebugLevel
	}
	logger := log.New(nil, level, false).Named("pet-coordinatord")

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	phaseConfigs, err := cfg.PhaseConfigs(func(taskID, msg string) {
		logger.Warnw(msg, "taskID", taskID)
	})
	if err != nil {
		return fmt.Errorf("resolving task configs: %w", err)
	}
	if len(phaseConfigs) == 0 {
		return fmt.Errorf("no tasks configured")
	}

	registry := coordinator.NewRegistry()
	for _, pc := range phaseConfigs {
		registry.Register(pc, logger)
		logger.Infow("task registered", "taskID", pc.TaskID)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go registry.Run(ctx)

	metricsLn := metrics.Start(logger, cfg.MetricsAddr, pprof.WithProfile())

	handler := transporthttp.New(registry, logger)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infow("http listener started", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorw("http listener stopped", "err", err)
		}
	}()

	<-ctx.Done()
	logger.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("http shutdown error", "err", err)
	}
	if err := metrics.Shutdown(shutdownCtx, metricsLn); err != nil {
		logger.Warnw("metrics shutdown error", "err", err)
	}

	return nil
}
