package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cadornel/binback/internal/restore"
)

// RecoverOptions holds flags for the recover command.
type RecoverOptions struct {
	*RootOptions
	Archive    bool
	PreReset   bool
	TargetHost string
	TargetPort int
}

// NewRecoverCommand creates the recover command.
func NewRecoverCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecoverOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "recover <destination>",
		Short: "Replay a destination's backups into a server",
		Long: `Replay the destination's full artifact followed by its incremental artifacts
in chronological order. Replay is fail-fast: the first failed step stops the
run with no rollback.

--target-host and --target-port redirect the replay to a different server than
the one configured for backups. --pre-reset clears the target's binary log
state before replay. With --archive the most recent date-stamped subdirectory
of the destination is used.

Example:
  binback recover /backups/db1
  binback recover --target-host standby1 --pre-reset /backups/db1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecover(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Archive, "archive", false, "use the most recent date-stamped subdirectory")
	cmd.Flags().BoolVar(&opts.PreReset, "pre-reset", false, "reset the target's binary log state before replay")
	cmd.Flags().StringVar(&opts.TargetHost, "target-host", "", "replay into this host instead of the configured one")
	cmd.Flags().IntVar(&opts.TargetPort, "target-port", 0, "replay into this port instead of the configured one")

	return cmd
}

func runRecover(cmd *cobra.Command, opts *RecoverOptions, dest string) error {
	cfg, err := opts.resolveConfig()
	if err != nil {
		return WrapExitError(ExitFailure, "configuration", err)
	}
	if opts.Archive {
		resolved, err := latestArchive(dest)
		if err != nil {
			return WrapExitError(ExitFailure, "recovery", err)
		}
		dest = resolved
	}

	conn := cfg.Conn()
	if opts.TargetHost != "" {
		conn.Host = opts.TargetHost
	}
	if opts.TargetPort != 0 {
		conn.Port = opts.TargetPort
	}

	rec := &restore.Recovery{
		Runner:   opts.runner(),
		Tools:    cfg.Toolset(),
		Conn:     conn,
		PreReset: opts.PreReset,
	}
	result, err := rec.Run(cmd.Context(), dest)
	if err != nil {
		return WrapExitError(ExitFailure, "recovery", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Recovered %s: full %s plus %d incremental(s)\n",
		dest, result.Full, len(result.Incrementals))
	return nil
}
