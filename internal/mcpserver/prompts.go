package mcpserver

import (
	"bytes"
	"context"
	"embed"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"
)

// Prompts ship as embedded markdown with a YAML frontmatter carrying the
// description; the body becomes the prompt message.

//go:embed prompts/*.md
var promptFiles embed.FS

type promptMeta struct {
	Description string `yaml:"description"`
}

func (s *Server) registerPrompts() {
	entries, err := promptFiles.ReadDir("prompts")
	if err != nil {
		return
	}
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), ".md")
		if !ok || entry.IsDir() {
			continue
		}
		raw, err := promptFiles.ReadFile("prompts/" + entry.Name())
		if err != nil {
			continue
		}
		description, body := splitPrompt(raw)
		s.server.AddPrompt(
			&mcp.Prompt{Name: name, Description: description},
			staticPrompt(description, body),
		)
	}
}

// splitPrompt separates the frontmatter description from the prompt body.
// Files without valid frontmatter are served whole.
func splitPrompt(raw []byte) (description, body string) {
	after, found := bytes.CutPrefix(raw, []byte("---\n"))
	if !found {
		return "", string(raw)
	}
	head, tail, found := bytes.Cut(after, []byte("\n---\n"))
	if !found {
		return "", string(raw)
	}
	var meta promptMeta
	if err := yaml.Unmarshal(head, &meta); err != nil {
		return "", string(raw)
	}
	return meta.Description, strings.TrimPrefix(string(tail), "\n")
}

func staticPrompt(description, body string) mcp.PromptHandler {
	return func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return &mcp.GetPromptResult{
			Description: description,
			Messages: []*mcp.PromptMessage{
				{Role: "user", Content: &mcp.TextContent{Text: body}},
			},
		}, nil
	}
}
