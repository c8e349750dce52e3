package cmd

import (
	"context"
	"fmt"
	"strings"

	"codeseek/internal/index"
	"codeseek/internal/tui"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing codebase search tools",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	engine, _, _, cleanup, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	return mcpserver.ServeStdio(newMCPServer(engine))
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func newMCPServer(engine *index.Engine) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("codeseek", "1.0.0", mcpserver.WithToolCapabilities(false))
	s.AddTool(searchCodebaseTool(), makeSearchHandler(engine))
	s.AddTool(updateFileTool(), makeUpdateHandler(engine))
	s.AddTool(listIndexedFilesTool(), makeListFilesHandler(engine))
	return s
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func searchCodebaseTool() mcp.Tool {
	return mcp.NewTool("search_codebase",
		mcp.WithDescription("Semantically search the indexed codebase. Returns the most similar code chunks with file paths, line ranges and scores."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language description of the code to find"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of chunks to return (default 5)"),
		),
	)
}

func updateFileTool() mcp.Tool {
	return mcp.NewTool("update_file",
		mcp.WithDescription("Re-index one file after it changed. A file that no longer exists is removed from the index."),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{
			ReadOnlyHint:    mcp.ToBoolPtr(false),
			DestructiveHint: mcp.ToBoolPtr(false),
			IdempotentHint:  mcp.ToBoolPtr(true),
			OpenWorldHint:   mcp.ToBoolPtr(false),
		}),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path of the file, absolute or relative to the server's working directory"),
		),
	)
}

func listIndexedFilesTool() mcp.Tool {
	return mcp.NewTool("list_indexed_files",
		mcp.WithDescription("List every file that currently has chunks in the index."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("prefix",
			mcp.Description("Optional path prefix filter"),
		),
	)
}

// --- Handler factories ---

func makeSearchHandler(engine *index.Engine) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		limit := req.GetInt("limit", 0)

		results, err := engine.Query(ctx, query, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return mcp.NewToolResultText(tui.FormatMarkdown(query, results)), nil
	}
}

func makeUpdateHandler(engine *index.Engine) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := req.GetString("path", "")
		if path == "" {
			return mcp.NewToolResultError("path is required"), nil
		}

		res, err := engine.UpdateFile(ctx, path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("update failed: %v", err)), nil
		}
		if res.Removed {
			return mcp.NewToolResultText(fmt.Sprintf("%s no longer exists; its chunks were removed.", res.Path)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("%s re-indexed (%d chunks).", res.Path, res.Chunks)), nil
	}
}

func makeListFilesHandler(engine *index.Engine) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		prefix := req.GetString("prefix", "")

		paths, err := engine.Store.FilePaths(ctx, engine.Sync.Collection())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list files failed: %v", err)), nil
		}

		var sb strings.Builder
		var n int
		for _, p := range paths {
			if prefix != "" && !strings.HasPrefix(p, prefix) {
				continue
			}
			fmt.Fprintf(&sb, "- %s\n", p)
			n++
		}
		return mcp.NewToolResultText(fmt.Sprintf("## Indexed files (%d)\n\n%s", n, sb.String())), nil
	}
}
