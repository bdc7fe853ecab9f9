package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/corvids/bury/internal/mcpserver"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes bury's analysis
as tools that LLMs can invoke. This lets AI assistants find unreachable
code and inspect entry points directly from a conversation.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "bury": {
        "command": "bury",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - analyze_dead_code   Definitions unreachable from the entry points
  - list_entry_points   Traversal roots the current rules select`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "manifest",
				Usage: "Print the server manifest as JSON and exit",
			},
		},
		Action: runMCPCmd,
	}
}

func runMCPCmd(c *cli.Context) error {
	if c.Bool("manifest") {
		data, err := mcpserver.GenerateManifest(version)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(data))
		return nil
	}

	server := mcpserver.NewServer(version)
	return server.Run(context.Background())
}
