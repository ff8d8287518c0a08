package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotmix/internal/repositories"
	"github.com/desertthunder/spotmix/internal/services"
	"github.com/desertthunder/spotmix/internal/shared"
	"github.com/desertthunder/spotmix/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	tokenPath  string
	apiBaseURL string
	auth       *services.SpotifyAuth
	limiter    *rate.Limiter
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	db         *sql.DB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	TokenPath  string // defaults to [shared.DefaultTokenPath]
	APIBaseURL string // overrides the Spotify Web API base, for tests
	AuthURL    string
	TokenURL   string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.TokenPath == "" {
		opts.TokenPath = shared.DefaultTokenPath()
	}

	var limiter *rate.Limiter
	if rl := opts.Config.Generator.RateLimit; rl > 0 {
		limiter = rate.NewLimiter(rate.Limit(rl), max(1, int(rl)))
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		tokenPath:  opts.TokenPath,
		apiBaseURL: opts.APIBaseURL,
		auth:       services.NewSpotifyAuth(opts.Config.Credentials.Spotify, opts.AuthURL, opts.TokenURL),
		limiter:    limiter,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger swaps the runner's logger, e.g. to keep log lines off a TUI.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Close releases the history database, if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, authCommand, generateCommand, historyCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// history opens (once) the configured SQLite database and returns its generation repository.
//
// Returns nil without error when no database path is configured.
func (r *Runner) history() (*repositories.GenerationRepository, error) {
	if r.config.Database.Path == "" {
		return nil, nil
	}
	if r.db == nil {
		db, err := shared.NewDatabase(r.config.Database.Path)
		if err != nil {
			return nil, err
		}
		if r.config.Database.Path != ":memory:" {
			shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
		}
		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		r.db = db
	}
	return repositories.NewGenerationRepository(r.db), nil
}

// recorder returns a history recorder, or nil when history is disabled or unavailable.
func (r *Runner) recorder() *repositories.HistoryRecorder {
	repo, err := r.history()
	if err != nil {
		r.logger.Warn("history disabled", "error", err)
		return nil
	}
	if repo == nil {
		return nil
	}
	return repositories.NewHistoryRecorder(repo)
}

// catalog builds a Spotify client from the saved token, refreshing it up front when it has expired.
// Tokens refreshed mid-run are written back to the token file.
func (r *Runner) catalog(ctx context.Context) (*services.SpotifyService, error) {
	token, err := shared.LoadToken(r.tokenPath)
	if err != nil {
		return nil, fmt.Errorf("%w (run 'spotmix auth login')", err)
	}

	if !token.Valid() && token.RefreshToken != "" {
		r.logger.Debug("saved token expired, refreshing")
		fresh, err := r.auth.Refresh(ctx, token.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("%w (run 'spotmix auth login')", err)
		}
		r.saveToken(fresh)
		token = fresh
	}

	client, err := services.NewSpotifyService(services.SpotifyOpts{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		BaseURL:      r.apiBaseURL,
		HTTPClient:   r.httpClient,
		Limiter:      r.limiter,
		Refresher:    r.auth,
	})
	if err != nil {
		return nil, err
	}
	client.SetTokenRefreshCallback(r.saveToken)
	return client, nil
}

func (r *Runner) saveToken(token *oauth2.Token) {
	if err := shared.SaveToken(r.tokenPath, token); err != nil {
		r.logger.Warn("failed to save refreshed token", "error", err)
		return
	}
	r.logger.Debug("token saved", "path", r.tokenPath)
}

// engine builds a playlist engine over the saved session, recording history when a database is configured.
func (r *Runner) engine(ctx context.Context) (*tasks.PlaylistEngine, error) {
	client, err := r.catalog(ctx)
	if err != nil {
		return nil, err
	}

	opts := tasks.Options{
		DefaultMarket:   r.config.Generator.DefaultMarket,
		RollbackPartial: r.config.Generator.RollbackPartial,
	}
	if rec := r.recorder(); rec != nil {
		opts.Recorder = rec
	}
	return tasks.NewPlaylistEngine(client, r.logger, opts), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
