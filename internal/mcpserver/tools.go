package mcpserver

import (
	"context"

	"github.com/corvids/bury/internal/output"
	"github.com/corvids/bury/internal/service/analysis"
	outputSvc "github.com/corvids/bury/internal/service/output"
	scannerSvc "github.com/corvids/bury/internal/service/scanner"
	"github.com/corvids/bury/pkg/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AnalyzeInput is the base input for all analysis tools.
type AnalyzeInput struct {
	Paths  []string `json:"paths,omitempty" jsonschema:"Paths to analyze. Defaults to current directory if empty."`
	Format string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

// DeadCodeInput adds reachability-specific options.
type DeadCodeInput struct {
	AnalyzeInput
	Confidence     string   `json:"confidence,omitempty" jsonschema:"Minimum confidence to report: high, medium, or low. Default low (report everything)."`
	Entry          []string `json:"entry,omitempty" jsonschema:"Entry point file globs, e.g. cmd/** or src/main.py. Matching files root every definition they contain."`
	EntryFunctions []string `json:"entry_functions,omitempty" jsonschema:"Entry point name patterns with an optional trailing wildcard, e.g. handle_*."`
	NoConventions  bool     `json:"no_conventions,omitempty" jsonschema:"Disable built-in entry point conventions (main functions, executable script files)."`
	ReexportDepth  int      `json:"reexport_depth,omitempty" jsonschema:"Maximum re-export chain depth to follow during import resolution. Default 10."`
}

// EntryPointsInput selects files and entry overrides for entry point listing.
type EntryPointsInput struct {
	AnalyzeInput
	Entry          []string `json:"entry,omitempty" jsonschema:"Entry point file globs, e.g. cmd/** or src/main.py."`
	EntryFunctions []string `json:"entry_functions,omitempty" jsonschema:"Entry point name patterns with an optional trailing wildcard, e.g. handle_*."`
	NoConventions  bool     `json:"no_conventions,omitempty" jsonschema:"Disable built-in entry point conventions."`
}

// Helper functions

func getPaths(input AnalyzeInput) []string {
	if len(input.Paths) == 0 {
		return []string{"."}
	}
	return input.Paths
}

func getFormat(input AnalyzeInput) output.Format {
	switch input.Format {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func formatOutput(data any, format output.Format) (string, error) {
	svc, err := outputSvc.New(outputSvc.WithFormat(format))
	if err != nil {
		return "", err
	}
	return svc.FormatData(data)
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

// Tool handlers

func handleAnalyzeDeadCode(ctx context.Context, req *mcp.CallToolRequest, input DeadCodeInput) (*mcp.CallToolResult, any, error) {
	paths := getPaths(input.AnalyzeInput)
	format := getFormat(input.AnalyzeInput)

	scanner := scannerSvc.New()
	scanResult, err := scanner.ScanPaths(paths)
	if err != nil {
		return toolError(err.Error())
	}
	if len(scanResult.Files) == 0 {
		return toolError("no source files found")
	}

	opts := analysis.DeadCodeOptions{
		EntryPatterns:  input.Entry,
		EntryFunctions: input.EntryFunctions,
		NoConventions:  input.NoConventions,
		ReexportDepth:  input.ReexportDepth,
	}
	if input.Confidence != "" {
		opts.MinConfidence = models.ParseConfidenceLevel(input.Confidence)
	}

	svc := analysis.New()
	result, err := svc.AnalyzeDeadCode(ctx, scanResult.Files, opts)
	if err != nil {
		return toolError(err.Error())
	}

	return toolResult(result, format)
}

func handleListEntryPoints(ctx context.Context, req *mcp.CallToolRequest, input EntryPointsInput) (*mcp.CallToolResult, any, error) {
	paths := getPaths(input.AnalyzeInput)
	format := getFormat(input.AnalyzeInput)

	scanner := scannerSvc.New()
	scanResult, err := scanner.ScanPaths(paths)
	if err != nil {
		return toolError(err.Error())
	}
	if len(scanResult.Files) == 0 {
		return toolError("no source files found")
	}

	svc := analysis.New()
	entries, warnings, err := svc.ListEntryPoints(ctx, scanResult.Files, analysis.DeadCodeOptions{
		EntryPatterns:  input.Entry,
		EntryFunctions: input.EntryFunctions,
		NoConventions:  input.NoConventions,
	})
	if err != nil {
		return toolError(err.Error())
	}

	out := struct {
		EntryPoints []analysis.EntryPoint `json:"entry_points" toon:"entry_points"`
		Count       int                   `json:"count" toon:"count"`
		Warnings    []models.Warning      `json:"warnings,omitempty" toon:"warnings,omitempty"`
	}{entries, len(entries), warnings}

	return toolResult(out, format)
}
