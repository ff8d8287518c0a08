package main

import (
	"context"
	"strings"
	"time"

	"github.com/desertthunder/spotmix/internal/server"
	"github.com/desertthunder/spotmix/internal/shared"
	"github.com/desertthunder/spotmix/internal/tasks"
	"github.com/desertthunder/spotmix/internal/web"
	"github.com/urfave/cli/v3"
)

// serverOptions maps the loaded config onto [server.Options].
func (r *Runner) serverOptions() server.Options {
	cfg := r.config
	opts := server.Options{
		Auth:           r.auth,
		APIBaseURL:     r.apiBaseURL,
		HTTPClient:     r.httpClient,
		Limiter:        r.limiter,
		TokenPolicy:    cfg.Server.TokenPolicy,
		RequestTimeout: cfg.Server.RequestTimeout(),
		SecureCookies:  strings.HasPrefix(cfg.Server.BaseURL, "https://"),
		Engine: tasks.Options{
			DefaultMarket:   cfg.Generator.DefaultMarket,
			RollbackPartial: cfg.Generator.RollbackPartial,
		},
		Index:  web.Handler(),
		Logger: r.logger,
	}

	if rec := r.recorder(); rec != nil {
		opts.Engine.Recorder = rec
		opts.History = rec
	}
	return opts
}

// Serve runs the web app until the context is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	srv := server.New(r.serverOptions())

	if cmd.Bool("open") {
		go func() {
			time.Sleep(250 * time.Millisecond)
			if err := shared.OpenBrowser(r.config.Server.BaseURL); err != nil {
				r.logger.Warn("failed to open browser", "error", err)
			}
		}()
	}

	r.writePlain("→ spotmix listening on %s (%s)\n", addr, r.config.Server.BaseURL)
	return srv.ListenAndServe(ctx, addr)
}
