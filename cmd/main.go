package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotmix/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	configPath := os.Getenv("SPOTMIX_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	config, err := shared.ResolveConfig(configPath)
	if err != nil {
		logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		config = shared.DefaultConfig()
		config.ApplyEnv(os.Getenv)
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Log.Level))

	for _, problem := range config.Validate() {
		logger.Warn("config", "problem", problem)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		TokenPath:  os.Getenv("SPOTMIX_TOKEN"),
		Logger:     logger,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:    "spotmix",
		Usage:   "Generate Spotify playlists from genres, your top tracks, or what's trending",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				shared.SetLogLevel(logger, log.DebugLevel)
			}
			return ctx, nil
		},
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			logger.Warn("interrupted")
		case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrRefreshFailed):
			logger.Error("not logged in", "error", err)
		default:
			logger.Error("application error", "error", err)
		}
		runner.Close()
		os.Exit(1)
	}
}
