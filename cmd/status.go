package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Print the current state of a job as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildComponents(cmd.Context())
		if err != nil {
			return err
		}
		defer deps.Close()

		job, err := deps.stepper.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(job)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
