// Package cmd provides the CLI commands for codescope.
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/codescope-dev/codescope/internal/config"
	"github.com/codescope-dev/codescope/internal/engine"
	"github.com/codescope-dev/codescope/pkg/version"
)

var (
	cfgPath  string
	logLevel string
	dbPath   string

	cfg *config.Config
)

// NewRootCmd creates the root command for the codescope CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "codescope",
		Short: "Semantic code index and search for coding agents",
		Long: `codescope turns a tree of source files into a searchable index of
semantic chunks (functions, classes, methods, imports), keeps it fresh
incrementally as files change, and answers natural-language queries
with a hybrid of vector similarity and lexical ranking.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup()
		},
	}
	root.SetVersionTemplate("codescope version {{.Version}}\n")

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to config file (YAML)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the index database")

	root.AddCommand(newIndexCmd())
	root.AddCommand(newSearchCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newWatchCmd())
	return root
}

// setup loads configuration, applies flag overrides and configures
// logging. Logs go to stderr; stdout is reserved for command output.
func setup() error {
	loaded, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	cfg = loaded
	if dbPath != "" {
		cfg.Index.DBPath = dbPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	level := zerolog.InfoLevel
	if cfg.LogLevel != "" {
		level, err = zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	return nil
}

// newEngine builds an engine over the given root directories, falling
// back to the current directory.
func newEngine(args []string) (*engine.Engine, error) {
	roots := args
	if len(roots) == 0 {
		roots = []string{"."}
	}
	return engine.New(cfg, roots)
}

// Execute runs the root command.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
