package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cadornel/binback/internal/backup"
)

// FullOptions holds flags for the full command.
type FullOptions struct {
	*RootOptions
	Archive       bool
	SetGTIDPurged string
	SnapshotArgs  []string
}

// NewFullCommand creates the full command.
func NewFullCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FullOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "full <destination>",
		Short: "Take a full backup into a destination directory",
		Long: `Take a full snapshot of the server into the destination directory and
initialize its position record with the replication coordinate recorded at
snapshot time.

The destination is started fresh: any previous artifacts in it are removed
first. With --archive the backup goes into a date-stamped subdirectory of the
destination instead.

Example:
  binback full /backups/db1
  binback full --archive --set-gtid-purged=OFF /backups/db1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFull(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Archive, "archive", false, "back up into a date-stamped subdirectory")
	cmd.Flags().StringVar(&opts.SetGTIDPurged, "set-gtid-purged", "", "pass --set-gtid-purged to the snapshot tool (OFF|ON|AUTO)")
	cmd.Flags().StringArrayVar(&opts.SnapshotArgs, "snapshot-arg", nil, "extra argument for the snapshot tool (repeatable)")

	return cmd
}

func runFull(cmd *cobra.Command, opts *FullOptions, dest string) error {
	cfg, err := opts.resolveConfig()
	if err != nil {
		return WrapExitError(ExitFailure, "configuration", err)
	}
	if opts.Archive {
		dest = archiveDestination(dest, time.Now())
	}

	catalog, closeCatalog, err := opts.connectCatalog(cmd, cfg)
	if err != nil {
		return WrapExitError(ExitFailure, "full backup", err)
	}
	defer closeCatalog()

	extra := append([]string(nil), opts.SnapshotArgs...)
	if opts.SetGTIDPurged != "" {
		extra = append(extra, "--set-gtid-purged="+opts.SetGTIDPurged)
	}

	full := &backup.Full{
		Catalog:   catalog,
		Runner:    opts.runner(),
		Tools:     cfg.Toolset(),
		Conn:      cfg.Conn(),
		ScanLimit: cfg.ScanLimit,
	}
	coord, err := full.Run(cmd.Context(), dest, extra)
	if err != nil {
		return WrapExitError(ExitFailure, "full backup", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Full backup complete: %s at %s\n", dest, coord)
	return nil
}
