package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cadornel/binback/internal/history"
)

// NewHistoryCommand creates the history command, which prints a destination's
// run ledger.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var archive bool

	cmd := &cobra.Command{
		Use:           "history <destination>",
		Short:         "Show the runs recorded for a destination",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := args[0]
			if archive {
				resolved, err := latestArchive(dest)
				if err != nil {
					return WrapExitError(ExitFailure, "history", err)
				}
				dest = resolved
			}

			st, err := history.Open(dest)
			if err != nil {
				return WrapExitError(ExitFailure, "history", err)
			}
			defer st.Close()

			runs, err := st.Runs(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "history", err)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FINISHED\tKIND\tSTATUS\tFROM\tTO\tARTIFACTS")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
					r.FinishedAt.UTC().Format(time.RFC3339), r.Kind, r.Status, r.From, r.To, r.Artifacts)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&archive, "archive", false, "use the most recent date-stamped subdirectory")
	return cmd
}
