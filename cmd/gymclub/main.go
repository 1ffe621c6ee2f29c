// Command gymclub runs one gym club operation against the local stores.
//
// Configuration comes from the environment (optionally a .env file); see
// internal/config. Run without arguments for the list of commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/gymclub/internal/cli"
	"github.com/tbourn/gymclub/internal/config"
	"github.com/tbourn/gymclub/internal/observability"
	"github.com/tbourn/gymclub/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version string

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 2
	}

	sysutil.SetLogLevel(cfg.LogLevel)
	logger := sysutil.NewLogger(os.Stderr, cfg.LogPretty)
	ctx, stop := signal.NotifyContext(logger.WithContext(context.Background()), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := observability.SetupOTel(ctx, cfg.OTEL, sysutil.FirstNonEmpty(version, os.Getenv("GYMCLUB_VERSION"), "dev"))
	if err != nil {
		logger.Error().Err(err).Msg("otel setup failed")
		return 1
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	app, err := cli.Open(ctx, cfg, metrics, os.Stdout)
	if err != nil {
		logger.Error().Err(err).Msg("open stores")
		return 1
	}
	code := app.Exec(ctx, os.Args[1:])
	if err := app.Close(); err != nil {
		logger.Warn().Err(err).Msg("close stores")
	}

	if cfg.MetricsTextfile != "" {
		if err := observability.WriteTextfile(cfg.MetricsTextfile, reg); err != nil {
			logger.Warn().Err(err).Str("path", cfg.MetricsTextfile).Msg("write metrics")
		}
	}
	return code
}
