package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"codeseek/internal/tui"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	flagLimit int
	flagJSON  bool
	flagPlain bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the index in natural language",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		engine, _, _, cleanup, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		results, err := engine.Query(cmd.Context(), query, flagLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch {
		case flagJSON:
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		case flagPlain || !term.IsTerminal(int(os.Stdout.Fd())):
			if len(results) == 0 {
				fmt.Fprintf(out, "No results found for query: %q\n", query)
				return nil
			}
			fmt.Fprint(out, tui.FormatPlain(results))
			return nil
		}

		width, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil {
			width = 100
		}
		r, _ := tui.NewRenderer(width - 2)
		fmt.Fprintln(out, tui.RenderMarkdown(r, tui.FormatMarkdown(query, results)))
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&flagLimit, "limit", "k", 0, "maximum number of results (default from config)")
	searchCmd.Flags().BoolVar(&flagJSON, "json", false, "print results as JSON")
	searchCmd.Flags().BoolVar(&flagPlain, "plain", false, "print results without markdown rendering")
	rootCmd.AddCommand(searchCmd)
}
