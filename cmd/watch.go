package cmd

import (
	"context"
	"fmt"
	"time"

	"codeseek/internal/watch"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var flagSkipInitial bool

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Keep the index in sync while files change",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}

		engine, cfg, logger, cleanup, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		if !flagSkipInitial {
			stats, err := engine.IndexProject(ctx, root)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Indexed %d files (%d failed, %d removed), %d chunks\n",
				stats.FilesSynced, stats.FilesFailed, stats.FilesRemoved, stats.ChunksTotal)
		}

		w, err := watch.New(root, engine.Indexer.Matcher(),
			time.Duration(cfg.Watch.DebounceMillis)*time.Millisecond, logger.Named("watch"))
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", root)
		return w.Run(ctx, func(ctx context.Context, paths []string) {
			for _, p := range paths {
				res, err := engine.UpdateFile(ctx, p)
				if err != nil {
					logger.Error("failed to sync file", zap.String("path", p), zap.Error(err))
					continue
				}
				switch {
				case res.Removed && res.Nested > 0:
					fmt.Fprintf(out, "removed  %s (%d files)\n", res.Path, res.Nested)
				case res.Removed:
					fmt.Fprintf(out, "removed  %s\n", res.Path)
				default:
					fmt.Fprintf(out, "updated  %s (%d chunks)\n", res.Path, res.Chunks)
				}
			}
		})
	},
}

func init() {
	watchCmd.Flags().BoolVar(&flagSkipInitial, "no-initial", false, "skip the full index before watching")
	rootCmd.AddCommand(watchCmd)
}
