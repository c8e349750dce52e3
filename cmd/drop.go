package cmd

import (
	"context"
	"fmt"

	"codeseek/internal/store"

	"github.com/spf13/cobra"
)

var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete the project's collection and every point in it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, cfg, _, cleanup, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		dropped, err := dropCollection(cmd.Context(), engine.Store, cfg.Store.Collection)
		if err != nil {
			return err
		}
		if dropped {
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted collection %q\n", cfg.Store.Collection)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Collection %q does not exist, nothing to delete\n", cfg.Store.Collection)
		}
		return nil
	},
}

// dropCollection deletes name if it exists. A missing collection is not an error.
func dropCollection(ctx context.Context, g store.Gateway, name string) (bool, error) {
	info, err := g.DescribeCollection(ctx, name)
	if err != nil {
		return false, fmt.Errorf("describe collection %s: %w", name, err)
	}
	if !info.Found {
		return false, nil
	}
	if err := g.DeleteCollection(ctx, name); err != nil {
		return false, fmt.Errorf("delete collection %s: %w", name, err)
	}
	return true, nil
}

func init() {
	rootCmd.AddCommand(dropCmd)
}
