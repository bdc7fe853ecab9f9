package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"

	"github.com/corvids/bury/pkg/config"
)

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create a bury configuration file with defaults",
		Description: `Creates a .bury.toml configuration file in the current directory
with sensible defaults. Use --output to specify a different location.

Examples:
  bury init                     # Creates .bury.toml in current directory
  bury init -o conf/bury.toml   # Creates config under conf/
  bury init --format json       # Emit JSON instead of TOML
  bury init --force             # Overwrite an existing config file`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   ".bury.toml",
				Usage:   "Output file path",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite existing config file",
			},
			&cli.StringFlag{
				Name:  "format",
				Value: "toml",
				Usage: "Config format: toml or json",
			},
		},
		Action: runInitCmd,
	}
}

func runInitCmd(c *cli.Context) error {
	outputPath := c.String("output")
	format := strings.ToLower(c.String("format"))

	if format != "toml" && format != "json" {
		return fmt.Errorf("unsupported config format %q (want toml or json)", format)
	}
	if format == "json" && outputPath == ".bury.toml" && !c.IsSet("output") {
		outputPath = ".bury.json"
	}

	if _, err := os.Stat(outputPath); err == nil && !c.Bool("force") {
		return fmt.Errorf("config file %q already exists (use --force to overwrite)", outputPath)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", dir, err)
		}
	}

	content, err := generateDefaultConfig(format)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, content, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	color.Green("Created %s", outputPath)
	fmt.Println("Edit this file to customize entry points and analysis settings.")
	return nil
}

func generateDefaultConfig(format string) ([]byte, error) {
	cfg := config.DefaultConfig()

	if format == "json" {
		return json.MarshalIndent(cfg, "", "  ")
	}

	content, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to TOML: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# Bury configuration\n")
	buf.WriteString("# Documentation: https://github.com/corvids/bury\n\n")
	buf.Write(content)
	return []byte(buf.String()), nil
}
