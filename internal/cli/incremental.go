package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cadornel/binback/internal/backup"
)

// IncrementalOptions holds flags for the incremental command.
type IncrementalOptions struct {
	*RootOptions
	Archive       bool
	SkipIfUnready bool
}

// NewIncrementalCommand creates the incremental command.
func NewIncrementalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IncrementalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "incremental <destination>",
		Short: "Export binary-log segments newer than the stored position",
		Long: `Export the binary-log segments the destination has not captured yet, one
artifact per segment, and advance the stored position to the server's current
write tip.

With --skip-if-not-ready a destination without a full backup is a clean no-op
instead of an error, so scheduled runs can start before the first full backup.
With --archive the most recent date-stamped subdirectory of the destination is
used.

Example:
  binback incremental /backups/db1
  binback incremental --archive --skip-if-not-ready /backups/db1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIncremental(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Archive, "archive", false, "use the most recent date-stamped subdirectory")
	cmd.Flags().BoolVar(&opts.SkipIfUnready, "skip-if-not-ready", false, "exit cleanly when no full backup exists yet")

	return cmd
}

func runIncremental(cmd *cobra.Command, opts *IncrementalOptions, dest string) error {
	cfg, err := opts.resolveConfig()
	if err != nil {
		return WrapExitError(ExitFailure, "configuration", err)
	}
	if opts.Archive {
		resolved, err := latestArchive(dest)
		if err != nil {
			if opts.SkipIfUnready {
				fmt.Fprintln(cmd.OutOrStdout(), "No archive to extend yet, skipping.")
				return nil
			}
			return WrapExitError(ExitFailure, "incremental backup", err)
		}
		dest = resolved
	}

	catalog, closeCatalog, err := opts.connectCatalog(cmd, cfg)
	if err != nil {
		return WrapExitError(ExitFailure, "incremental backup", err)
	}
	defer closeCatalog()

	inc := &backup.Incremental{
		Catalog: catalog,
		Runner:  opts.runner(),
		Tools:   cfg.Toolset(),
		Conn:    cfg.Conn(),
	}
	result, err := inc.Run(cmd.Context(), dest, opts.SkipIfUnready)
	if err != nil {
		return WrapExitError(ExitFailure, "incremental backup", err)
	}

	if result.Noop {
		fmt.Fprintf(cmd.OutOrStdout(), "Nothing to do: %s.\n", result.Reason)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d segment(s), position now %s\n",
		len(result.Exported), result.To)
	return nil
}
