package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"blogforge/src/publisher"
)

var archiveShowRecord bool

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect archived drafts",
}

var archiveShowCmd = &cobra.Command{
	Use:   "show <slug>",
	Short: "Print an archived draft's markdown, or its record with --record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := buildArchiveStore(cmd.Context())
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("no archive backend configured, set archive.backend to local or minio")
		}

		markdown, record, err := publisher.ReadArchive(cmd.Context(), store, viper.GetString("archive.bucket"), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if archiveShowRecord {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(record)
		}
		_, err = fmt.Fprintln(out, markdown)
		return err
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archiveShowCmd)

	archiveShowCmd.Flags().BoolVar(&archiveShowRecord, "record", false, "print the archive record as JSON instead of the markdown")
}
