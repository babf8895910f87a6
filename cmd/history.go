// File: cmd/history.go
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/BondarenkoCom/applyflow/internal/attemptlog"
)

func newHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent application attempts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			alog, err := attemptlog.Open(attemptLogPath(appConfig))
			if err != nil {
				return err
			}
			defer alog.Close()

			records, err := alog.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tOUTCOME\tREASON\tSTEP\tJOB")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					r.Started.Format("2006-01-02 15:04"), r.Outcome, r.Reason, r.Step, r.JobURL)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of attempts to show")
	return cmd
}
