// Package analyzer defines the contract analysis passes share.
package analyzer

import "context"

// FileAnalyzer runs one analysis over a set of source files. The context
// cancels between pipeline phases; a cancelled run returns ctx.Err().
type FileAnalyzer[T any] interface {
	Analyze(ctx context.Context, files []string) (T, error)

	// Close releases any resources held by the analyzer.
	Close()
}
