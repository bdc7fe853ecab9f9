package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/corvids/bury/internal/output"
	"github.com/corvids/bury/internal/progress"
	"github.com/corvids/bury/internal/service/analysis"
	scannerSvc "github.com/corvids/bury/internal/service/scanner"
	"github.com/corvids/bury/pkg/config"
	"github.com/corvids/bury/pkg/models"
)

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"an"},
		Usage:     "Report definitions unreachable from the entry points",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "text",
				Usage:   "Output format: text, json, markdown, toon",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.StringFlag{
				Name:  "confidence",
				Usage: "Minimum confidence to report: low, medium, high",
			},
			&cli.StringSliceFlag{
				Name:  "entry",
				Usage: "Entry point file glob (repeatable), e.g. 'cmd/**'",
			},
			&cli.StringSliceFlag{
				Name:  "entry-fn",
				Usage: "Entry point name pattern with optional trailing * (repeatable), e.g. 'handle_*'",
			},
			&cli.BoolFlag{
				Name:  "no-conventions",
				Usage: "Disable built-in entry point conventions (main functions, script guards)",
			},
			&cli.IntFlag{
				Name:  "depth",
				Usage: "Maximum re-export chain depth to follow (default from config)",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Disable the progress bar",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable the extraction cache for this run",
			},
		},
		Action: runAnalyzeCmd,
	}
}

func runAnalyzeCmd(c *cli.Context) error {
	cfg := loadConfig(c)
	format := output.ParseFormat(c.String("format"))

	scan := scannerSvc.New(scannerSvc.WithConfig(cfg))
	scanResult, err := scan.ScanPaths(getPaths(c.Args().Slice()))
	if err != nil {
		return err
	}
	if len(scanResult.Files) == 0 {
		color.Yellow("No source files found")
		return nil
	}

	opts := analysis.DeadCodeOptions{
		EntryPatterns:  c.StringSlice("entry"),
		EntryFunctions: c.StringSlice("entry-fn"),
		NoConventions:  c.Bool("no-conventions"),
		ReexportDepth:  c.Int("depth"),
		NoCache:        c.Bool("no-cache"),
	}
	if conf := c.String("confidence"); conf != "" {
		opts.MinConfidence = models.ParseConfidenceLevel(conf)
	}

	var tracker *progress.Tracker
	if showProgress(c, format) {
		tracker = progress.NewTracker("Analyzing reachability...", len(scanResult.Files))
		opts.OnProgress = tracker.Tick
	}

	svc := analysis.New(analysis.WithConfig(cfg))
	result, err := svc.AnalyzeDeadCode(c.Context, scanResult.Files, opts)
	if tracker != nil {
		if err != nil {
			tracker.FinishError(err)
		} else {
			tracker.FinishSuccess()
		}
	}
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	formatter, err := output.NewFormatter(format, c.String("output"), true)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if err := formatter.Output(output.NewDeadCodeReport(result)); err != nil {
		return err
	}

	// CI contract: findings exit 1, a clean tree exits 0.
	if result.HasFindings() {
		return cli.Exit("", 1)
	}
	return nil
}

// loadConfig honors --config, falling back to the standard locations.
func loadConfig(c *cli.Context) *config.Config {
	if path := c.String("config"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			color.Yellow("Warning: %v (using defaults)", err)
			return config.DefaultConfig()
		}
		return cfg
	}
	return config.LoadOrDefault()
}

// showProgress suppresses the bar for machine-readable stdout and
// non-terminal runs.
func showProgress(c *cli.Context, format output.Format) bool {
	if c.Bool("no-progress") {
		return false
	}
	if format != output.FormatText && c.String("output") == "" {
		return false
	}
	return true
}
