package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/docql/internal/client"
	"github.com/roach88/docql/internal/config"
	"github.com/roach88/docql/internal/docstore"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	Database   string // overrides the configured database path
	ConfigPath string // docql.cue file or directory
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the docql CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "docql",
		Short: "docql - a document store with folded queries",
		Long: `A document store on SQLite. Queries are expression trees whose
host-evaluable parts are folded into constants before translation
to SQL.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a docql.cue file or directory (default ./"+config.FileName+" if present)")

	cmd.AddCommand(NewCollectionsCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// formatter builds the OutputFormatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Diagnostics go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// settings resolves the configuration: an explicit --config, then
// ./docql.cue, then the defaults. --db overrides the database path.
func (o *RootOptions) settings() (config.Config, error) {
	var cfg config.Config
	switch {
	case o.ConfigPath != "":
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	default:
		if _, err := os.Stat(config.FileName); err == nil {
			loaded, err := config.Load(config.FileName)
			if err != nil {
				return config.Config{}, err
			}
			cfg = loaded
		} else if !errors.Is(err, fs.ErrNotExist) {
			return config.Config{}, err
		} else {
			cfg = config.Default()
		}
	}
	if o.Database != "" {
		cfg.Database = o.Database
	}
	return cfg, nil
}

// openDB resolves the settings and opens the database. Errors are already
// reported through f.
func (o *RootOptions) openDB(ctx context.Context, cmd *cobra.Command, f *OutputFormatter) (*client.DB, error) {
	cfg, err := o.settings()
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}

	level := cfg.SlogLevel()
	if o.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	keys, err := docstore.KeyGeneratorFor(cfg.KeyGenerator)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, "invalid key generator", err)
	}

	f.VerboseLog("Opening database %s", cfg.Database)
	db, err := client.Open(ctx, client.Options{
		Path:          cfg.Database,
		StrictFolding: cfg.StrictFolding,
		KeyGenerator:  keys,
		Logger:        logger,
	})
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeOpenFailed, "failed to open database", err)
	}
	return db, nil
}

// failStore maps a docstore error to its error code and exit code.
func failStore(f *OutputFormatter, message string, err error) error {
	switch {
	case docstore.IsNotFound(err):
		return f.Fail(ExitFailure, ErrCodeNotFound, message, err)
	case docstore.IsConflict(err):
		return f.Fail(ExitFailure, ErrCodeConflict, message, err)
	}
	return f.Fail(ExitFailure, ErrCodeGeneric, message, err)
}
