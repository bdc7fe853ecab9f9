package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

func main() {
	app := &cli.App{
		Name:           "bury",
		Usage:          "Find dead code across Python, TypeScript, JavaScript, and Go",
		Version:        version,
		DefaultCommand: "analyze",
		Metadata:       make(map[string]interface{}),
		Description: `Bury builds a cross-file call graph from your sources and reports every
definition that is unreachable from the configured entry points, with a
confidence level reflecting how much static approximation was involved.

Supports: Python, TypeScript, TSX, JavaScript, JSX, Go`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"BURY_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "cpuprofile",
				Usage: "Write a CPU profile to the given file",
			},
			&cli.StringFlag{
				Name:  "memprofile",
				Usage: "Write a heap profile to the given file on exit",
			},
		},
		Before: func(c *cli.Context) error {
			if path := c.String("cpuprofile"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("failed to create CPU profile: %w", err)
				}
				if err := pprof.StartCPUProfile(f); err != nil {
					f.Close()
					return fmt.Errorf("failed to start CPU profile: %w", err)
				}
				c.App.Metadata["cpuProfile"] = f
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if f, ok := c.App.Metadata["cpuProfile"].(*os.File); ok {
				pprof.StopCPUProfile()
				f.Close()
			}
			if path := c.String("memprofile"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("failed to create memory profile: %w", err)
				}
				defer f.Close()
				runtime.GC() // up-to-date allocation statistics
				if err := pprof.WriteHeapProfile(f); err != nil {
					return fmt.Errorf("failed to write memory profile: %w", err)
				}
			}
			return nil
		},
		Commands: []*cli.Command{
			analyzeCmd(),
			initCmd(),
			mcpCmd(),
			versionCmd(),
		},
	}

	// Findings exit through cli.Exit inside the analyze action; an error
	// reaching here is a hard failure.
	if err := app.Run(os.Args); err != nil {
		color.Red("Error: %v", err)
		os.Exit(2)
	}
}

func versionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print the bury version",
		Action: func(c *cli.Context) error {
			fmt.Printf("bury %s\n", version)
			return nil
		},
	}
}
