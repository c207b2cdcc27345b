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
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/myflix/internal/account"
	"github.com/desertthunder/myflix/internal/auth"
	"github.com/desertthunder/myflix/internal/catalog"
	"github.com/desertthunder/myflix/internal/favorites"
	"github.com/desertthunder/myflix/internal/repositories"
	"github.com/desertthunder/myflix/internal/services"
	"github.com/desertthunder/myflix/internal/session"
	"github.com/desertthunder/myflix/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The client stack (session store, gate, services) is built on first use so that commands like
// setup and serve never open the session database.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	input      io.Reader

	slots    session.Slots
	db       *sql.DB
	gateway  *services.Gateway
	api      *services.MyFlix
	store    *session.Store
	gate     *auth.Gate
	accounts *account.Service
	favs     *favorites.Reconciler
	browser  *catalog.Browser
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
	Slots      session.Slots // Session storage; defaults to the configured SQLite database
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
	if opts.Input == nil {
		opts.Input = os.Stdin
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
		slots:      opts.Slots,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, moviesCommand, favoritesCommand, profileCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Configure loads the config file named by the root --config flag and applies flag overrides.
//
// A missing file keeps the defaults; a malformed one is an error.
func (r *Runner) Configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		config, err := shared.LoadOrDefault(path)
		if err != nil {
			return ctx, err
		}
		r.config = config
		r.configPath = path
	}

	if apiURL := cmd.String("api-url"); apiURL != "" {
		r.config.API.BaseURL = apiURL
	}

	level := r.config.Log.Level
	if flag := cmd.String("log-level"); flag != "" {
		level = flag
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))
	return ctx, nil
}

// Shutdown releases the session database, if it was opened.
func (r *Runner) Shutdown(ctx context.Context, cmd *cli.Command) error {
	if r.gate != nil {
		r.gate.Close()
	}
	if r.db != nil {
		err := r.db.Close()
		r.db = nil
		return err
	}
	return nil
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// client builds the client stack once and restores the persisted session.
func (r *Runner) client() error {
	if r.store != nil {
		return nil
	}

	if r.slots == nil {
		db, err := shared.OpenStore(r.config.Database)
		if err != nil {
			return fmt.Errorf("failed to open session database: %w", err)
		}
		r.db = db
		r.slots = repositories.NewSlotRepository(db)
	}

	opts := services.GatewayOpts{
		BaseURL:           r.config.API.BaseURL,
		Client:            r.httpClient,
		Timeout:           r.config.API.Timeout(),
		RequestsPerSecond: r.config.API.RequestsPerSecond,
		Burst:             r.config.API.Burst,
		Logger:            r.logger,
	}
	r.gateway = services.NewGateway(opts)
	r.api = services.NewMyFlix(r.gateway)

	r.store = session.NewStore(r.slots, r.logger)
	snap := r.store.Load()
	r.logger.Debug("session restored", "authenticated", snap.Authenticated(), "username", snap.Username())

	r.gate = auth.NewGate(r.store, r.logger)
	r.gate.Watch(r.gateway)

	r.accounts = account.NewService(r.api, r.store, r.gate, r.logger)
	r.favs = favorites.NewReconciler(r.api, r.gate, r.store, r.logger)
	r.browser = catalog.NewBrowser(r.api, r.gate)
	return nil
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
