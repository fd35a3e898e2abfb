package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index [path...]",
		Short: "Build or refresh the index for one or more source trees",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := newEngine(args)
			if err != nil {
				return err
			}
			defer eng.Close()

			stats, err := eng.SyncIndex(cmd.Context())
			if err != nil {
				return err
			}

			if stats.NoOp {
				fmt.Printf("Index up to date: %d chunks across %d files\n",
					stats.TotalChunks, stats.FilesScanned)
				return nil
			}
			fmt.Printf("Indexed %d chunks (%d new, %d deleted, %d re-embedded)\n",
				stats.TotalChunks, stats.NewChunks, stats.DeletedChunks, stats.Reembedded)
			fmt.Printf("Files: %d scanned, %d skipped, %d failed\n",
				stats.FilesScanned, stats.FilesSkipped, stats.FilesFailed)
			return nil
		},
	}
}
