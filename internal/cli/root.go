// Package cli wires the binback command tree: full, incremental, recover and
// history, sharing connection settings and tool selection through root flags.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cadornel/binback/internal/binlog"
	"github.com/cadornel/binback/internal/config"
	"github.com/cadornel/binback/internal/tool"
)

// RootOptions holds global flags and the test seams for external
// collaborators.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Mode       string
	Host       string
	Port       int
	User       string

	// Runner and Catalog allow overriding the external collaborators (for
	// testing). Nil means the real implementations.
	Runner  tool.Runner
	Catalog binlog.Catalog
}

// NewRootCommand creates the binback root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "binback",
		Short: "MySQL full and incremental backup orchestration",
		Long: `binback orchestrates full snapshots and incremental binary-log exports of a
MySQL-family server into a backup destination, and replays them during
recovery.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
			slog.SetDefault(slog.New(handler))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Mode, "mode", "", "tool family (dump|mydumper)")
	cmd.PersistentFlags().StringVar(&opts.Host, "host", "", "server host (overrides config)")
	cmd.PersistentFlags().IntVar(&opts.Port, "port", 0, "server port (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.User, "user", "", "server user (overrides config)")

	cmd.AddCommand(NewFullCommand(opts))
	cmd.AddCommand(NewIncrementalCommand(opts))
	cmd.AddCommand(NewRecoverCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// resolveConfig loads the configuration and applies flag overrides.
func (o *RootOptions) resolveConfig() (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.Host != "" {
		cfg.Host = o.Host
	}
	if o.Port != 0 {
		cfg.Port = o.Port
	}
	if o.User != "" {
		cfg.User = o.User
	}
	if o.Mode != "" {
		cfg.Family = o.Mode
	}
	if err := cfg.Verify(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (o *RootOptions) runner() tool.Runner {
	if o.Runner != nil {
		return o.Runner
	}
	return tool.ExecRunner{}
}

// connectCatalog returns the catalog seam or opens a live connection. The
// returned closer is a no-op for injected catalogs.
func (o *RootOptions) connectCatalog(cmd *cobra.Command, cfg config.Config) (binlog.Catalog, func(), error) {
	if o.Catalog != nil {
		return o.Catalog, func() {}, nil
	}
	server, err := binlog.Connect(cmd.Context(), cfg.DSN())
	if err != nil {
		return nil, nil, err
	}
	return server, func() {
		if err := server.Close(); err != nil {
			slog.Error("closing server connection", "error", err)
		}
	}, nil
}

// Main is the process entry point used by cmd/binback.
func Main() {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(GetExitCode(err))
	}
}
