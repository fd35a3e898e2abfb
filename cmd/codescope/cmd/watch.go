package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/codescope-dev/codescope/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [path...]",
		Short: "Keep the index fresh as files change",
		RunE: func(cmd *cobra.Command, args []string) error {
			roots := args
			if len(roots) == 0 {
				roots = []string{"."}
			}

			eng, err := newEngine(roots)
			if err != nil {
				return err
			}
			defer eng.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			stats, err := eng.SyncIndex(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Watching %v (%d chunks indexed)\n", roots, stats.TotalChunks)

			w, err := watcher.New(cfg.Index.Extensions, cfg.Watch.Debounce)
			if err != nil {
				return err
			}
			if err := w.Start(ctx, roots); err != nil {
				return err
			}

			for {
				select {
				case <-ctx.Done():
					fmt.Println("Stopped.")
					return nil
				case batch, ok := <-w.Batches():
					if !ok {
						return nil
					}
					log.Info().Int("changes", len(batch)).Msg("file changes detected")
					stats, ran, err := eng.TrySyncIndex(ctx)
					if err != nil {
						log.Warn().Err(err).Msg("sync failed, keeping previous index")
						continue
					}
					if !ran {
						// A pass is already running; the next batch catches up.
						continue
					}
					if !stats.NoOp {
						fmt.Printf("Resynced: %d chunks (%d new, %d deleted)\n",
							stats.TotalChunks, stats.NewChunks, stats.DeletedChunks)
					}
				}
			}
		},
	}
}
