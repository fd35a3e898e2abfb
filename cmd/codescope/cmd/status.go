package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codescope-dev/codescope/internal/store"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [path...]",
		Short: "Show index and cache state",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := newEngine(args)
			if err != nil {
				return err
			}
			defer eng.Close()

			st := eng.Status()
			fmt.Printf("Chunks:    %d\n", st.Chunks)
			fmt.Printf("Files:     %d\n", st.Files)
			if st.SyncedAt.IsZero() {
				fmt.Println("Synced:    never")
			} else {
				fmt.Printf("Synced:    %s\n", st.SyncedAt.Format("2006-01-02 15:04:05"))
			}
			fmt.Printf("Provider:  %s\n", st.Provider)
			fmt.Printf("Cache:     %d/%d entries, %.0f%% hit rate\n",
				st.Cache.Size, st.Cache.Capacity, st.Cache.HitRate()*100)
			fmt.Printf("Storage:   sqlite (%s, driver %s)\n", store.BuildMode, store.DriverName)
			return nil
		},
	}
}
