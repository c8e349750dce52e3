package cmd

import (
	"fmt"
	"time"

	"codeseek/internal/index"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index every eligible file under a project root",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}

		engine, _, _, cleanup, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		var bar *index.BarProgress
		if index.ProgressEnabled() {
			bar = &index.BarProgress{}
			engine.Indexer.OnProgress(bar.Update)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Indexing %s...\n", root)
		start := time.Now()

		stats, err := engine.IndexProject(cmd.Context(), root)
		if bar != nil {
			bar.Finish()
		}
		elapsed := time.Since(start)

		if stats != nil {
			fmt.Fprintf(out, "\nDone in %s\n", elapsed.Round(time.Millisecond))
			fmt.Fprintf(out, "  Files:   %d total, %d synced, %d failed, %d removed\n",
				stats.FilesTotal, stats.FilesSynced, stats.FilesFailed, stats.FilesRemoved)
			fmt.Fprintf(out, "  Chunks:  %d\n", stats.ChunksTotal)
			if stats.Recreated {
				fmt.Fprintln(out, "  Collection was rebuilt for a new embedding dimension")
			}
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
