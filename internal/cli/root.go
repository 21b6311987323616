package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/odataq/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// viper carries the flags bound to configuration keys. Nil means
	// defaults, environment and config file only.
	viper *viper.Viper
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// flagKeys maps persistent flags to the configuration keys they override.
var flagKeys = map[string]string{
	"page-size":  "page_size",
	"token-mode": "token_mode",
	"dialect":    "dialect",
	"alias":      "alias",
	"database":   "database",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// NewRootCommand creates the root command for the odataq CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{viper: viper.New()}

	cmd := &cobra.Command{
		Use:   "odataq",
		Short: "odataq - OData query evaluation and SQL compilation",
		Long: `Evaluate OData $filter and $orderby expressions, compile them to SQL
and page the results with $skip, $top and $skiptoken.

Settings are read from flags, ODATAQ_* environment variables and an
optional odataq.yaml, in that order of precedence.`,
		SilenceErrors: true, // main reports errors commands have not already written
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigPath, "config", "", "config file (default ./odataq.yaml if present)")
	flags.Int("page-size", 0, "server page size; 0 disables server paging")
	flags.String("token-mode", "first-excluded", "skip token mode (first-excluded|last-included)")
	flags.String("dialect", "sqlite", "SQL dialect (sqlite|jpql)")
	flags.String("alias", "E1", "table alias used in compiled SQL")
	flags.String("database", "", "SQLite database for push-down execution")
	flags.String("log-level", "warn", "log level (debug|info|warn|error)")
	flags.String("log-format", "text", "log format (text|json)")

	for flag, key := range flagKeys {
		_ = opts.viper.BindPFlag(key, flags.Lookup(flag))
	}

	// Add subcommands
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// settings resolves the configuration and builds the logger, which writes
// to the command's error stream so JSON output stays clean.
func (o *RootOptions) settings(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	v := o.viper
	if v == nil {
		v = viper.New()
	}
	cfg, err := config.LoadWith(v, o.ConfigPath)
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeConfigInvalid, Message: err.Error()}
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, cfg.NewLogger(cmd.ErrOrStderr()), nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
