package cmd

import (
	"os"

	"codeseek/internal/tui"

	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive search interface",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd)
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command) error {
	engine, cfg, _, cleanup, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	return tui.Run(tui.Config{
		Engine:     engine,
		Root:       wd,
		Collection: cfg.Store.Collection,
		Limit:      cfg.Query.Limit,
	})
}
