package commands

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tinoosan/bookkeeping/internal/config"
	"github.com/tinoosan/bookkeeping/internal/ledger"
	"github.com/tinoosan/bookkeeping/internal/storage"
	"github.com/tinoosan/bookkeeping/internal/storage/memory"
	pgstore "github.com/tinoosan/bookkeeping/internal/storage/postgres"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// NewRootCommand creates the root CLI command with all subcommands
// registered. Running it without a subcommand serves the HTTP API.
func NewRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "bookkeeping",
		Short:   "Double-entry posting engine for small businesses",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		Args:         cobra.NoArgs,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default $"+config.EnvConfigPath+")")

	serve := newServeCommand(&configPath)
	rootCmd.RunE = serve.RunE

	rootCmd.AddCommand(serve)
	rootCmd.AddCommand(newMigrateCommand(&configPath))
	rootCmd.AddCommand(newSeedCommand(&configPath))

	return rootCmd
}

// backend is a store the CLI can seed and probe.
type backend interface {
	storage.Store
	Ready(ctx context.Context) error
	SeedBusiness(ctx context.Context, b ledger.Business) error
}

type env struct {
	cfg     *config.Config
	log     *slog.Logger
	store   backend
	pg      *pgstore.Store
	backend string
}

func (e *env) Close() {
	if e.pg != nil {
		e.pg.Close()
	}
}

// setup resolves configuration, builds the logger and opens the store.
// Postgres is used when a database URL is configured, memory otherwise.
func setup(ctx context.Context, configPath string, logOut io.Writer) (*env, error) {
	cfg, err := config.Resolve(configPath)
	if err != nil {
		return nil, err
	}
	logger := cfg.Log.Logger(logOut)
	slog.SetDefault(logger)

	e := &env{cfg: cfg, log: logger}
	if cfg.Database.URL == "" {
		e.store = memory.New()
		e.backend = "memory"
		return e, nil
	}
	pg, err := pgstore.Open(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("failed to connect to postgres", "err", err)
		return nil, err
	}
	e.store, e.pg, e.backend = pg, pg, "postgres"
	return e, nil
}

var errNeedsDatabase = errors.New("no database configured: set DATABASE_URL or database.url")
