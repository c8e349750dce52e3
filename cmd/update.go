package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update <file>...",
	Short: "Re-synchronize individual files with the index",
	Long: `update deletes the indexed chunks of each file and re-indexes its current
content. A file that no longer exists is simply removed from the index.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, _, _, cleanup, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		out := cmd.OutOrStdout()
		for _, path := range args {
			res, err := engine.UpdateFile(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("update %s: %w", path, err)
			}
			if res.Removed {
				if res.Nested > 0 {
					fmt.Fprintf(out, "removed  %s (%d files)\n", res.Path, res.Nested)
				} else {
					fmt.Fprintf(out, "removed  %s\n", res.Path)
				}
				continue
			}
			fmt.Fprintf(out, "updated  %s (%d chunks)\n", res.Path, res.Chunks)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
}
