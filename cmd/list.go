package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"blogforge/src/core/blogflow"
)

var (
	listStatus     string
	listLimit      int
	listStaleAfter time.Duration
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs in a status",
	Long: `List the most recently updated jobs in one status. Jobs that are not completed
or failed and have not been written for longer than --stale-after are marked stale:
nothing is stepping them and they can be resumed with enqueue.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildComponents(cmd.Context())
		if err != nil {
			return err
		}
		defer deps.Close()

		jobs, err := deps.stepper.List(cmd.Context(), blogflow.Status(listStatus), listLimit)
		if err != nil {
			return err
		}

		now := time.Now()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tUPDATED\tTITLE\t")
		for _, job := range jobs {
			status := string(job.Status)
			if job.Stale(now, listStaleAfter) {
				status += " (stale)"
			}
			fmt.Fprintf(w, "%s\t%s\t%d%%\t%s\t%s\t\n",
				job.ID, status, job.Progress, job.UpdatedAt.Format(time.RFC3339), job.Brief.Title)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listStatus, "status", string(blogflow.StatusPending), "job status to list")
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum number of jobs, 0 for all")
	listCmd.Flags().DurationVar(&listStaleAfter, "stale-after", 30*time.Minute, "mark unfinished jobs not written for this long as stale")
}
