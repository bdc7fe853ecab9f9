// Package config loads and validates bury configuration files.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Config holds all configuration options for bury.
type Config struct {
	// Analysis settings
	Analysis AnalysisConfig `koanf:"analysis" toml:"analysis" json:"analysis"`

	// Entry point selection
	EntryPoints EntryPointsConfig `koanf:"entry_points" toml:"entry_points" json:"entry_points"`

	// Import resolution settings
	Resolution ResolutionConfig `koanf:"resolution" toml:"resolution" json:"resolution"`

	// Glob patterns excluded before analysis
	Ignore []string `koanf:"ignore" toml:"ignore" json:"ignore"`

	// File discovery settings
	Scanner ScannerConfig `koanf:"scanner" toml:"scanner" json:"scanner"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache" json:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output" json:"output"`
}

// AnalysisConfig controls the reachability run.
type AnalysisConfig struct {
	MinConfidence string `koanf:"min_confidence" toml:"min_confidence" json:"min_confidence"` // low, medium, high
	Workers       int    `koanf:"workers" toml:"workers" json:"workers"`                      // 0 = sized to hardware
}

// EntryPointsConfig declares traversal roots.
type EntryPointsConfig struct {
	Patterns    []string `koanf:"patterns" toml:"patterns" json:"patterns"`    // file globs
	Functions   []string `koanf:"functions" toml:"functions" json:"functions"` // name patterns, one trailing * allowed
	Files       []string `koanf:"files" toml:"files" json:"files"`             // exact paths whose exported surface is rooted
	Conventions bool     `koanf:"conventions" toml:"conventions" json:"conventions"`
}

// ResolutionConfig bounds import resolution.
type ResolutionConfig struct {
	ReexportDepth int `koanf:"reexport_depth" toml:"reexport_depth" json:"reexport_depth"`
}

// ScannerConfig controls file discovery.
type ScannerConfig struct {
	Gitignore      bool  `koanf:"gitignore" toml:"gitignore" json:"gitignore"`
	FollowSymlinks bool  `koanf:"follow_symlinks" toml:"follow_symlinks" json:"follow_symlinks"`
	MaxFileSize    int64 `koanf:"max_file_size" toml:"max_file_size" json:"max_file_size"` // bytes, 0 = no limit
}

// CacheConfig controls the extraction cache.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled" json:"enabled"`
	Dir     string `koanf:"dir" toml:"dir" json:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl" json:"ttl"` // TTL in hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format" json:"format"` // text, json, markdown, toon
	Color  bool   `koanf:"color" toml:"color" json:"color"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			MinConfidence: "low",
		},
		EntryPoints: EntryPointsConfig{
			Functions:   []string{"test_*", "Test*"},
			Conventions: true,
		},
		Resolution: ResolutionConfig{
			ReexportDepth: 10,
		},
		Ignore: []string{
			"**/*.min.js",
			"**/*.d.ts",
		},
		Scanner: ScannerConfig{
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: false,
			Dir:     ".bury/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// configSchema is the JSON Schema loaded documents must satisfy before
// unmarshaling. Unknown keys are rejected so typos fail loudly.
const configSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "analysis": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "min_confidence": {"type": "string", "enum": ["low", "medium", "high"]},
        "workers": {"type": "integer", "minimum": 0}
      }
    },
    "entry_points": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "patterns": {"type": "array", "items": {"type": "string"}},
        "functions": {"type": "array", "items": {"type": "string", "pattern": "^[^*]*\\*?$"}},
        "files": {"type": "array", "items": {"type": "string"}},
        "conventions": {"type": "boolean"}
      }
    },
    "resolution": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "reexport_depth": {"type": "integer", "minimum": 1, "maximum": 100}
      }
    },
    "ignore": {"type": "array", "items": {"type": "string"}},
    "scanner": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "gitignore": {"type": "boolean"},
        "follow_symlinks": {"type": "boolean"},
        "max_file_size": {"type": "integer", "minimum": 0}
      }
    },
    "cache": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "enabled": {"type": "boolean"},
        "dir": {"type": "string"},
        "ttl": {"type": "integer", "minimum": 0}
      }
    },
    "output": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "format": {"type": "string", "enum": ["text", "json", "markdown", "toon"]},
        "color": {"type": "boolean"}
      }
    }
  }
}`

// Load loads configuration from a file, validates it against the schema,
// and overlays it on the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	// Determine parser based on extension
	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = kjson.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	if err := validate(k.Raw()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks a loaded document against the embedded schema.
func validate(raw map[string]interface{}) error {
	compiler := jsonschema.NewCompiler()
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(configSchema))
	if err != nil {
		return fmt.Errorf("parse config schema: %w", err)
	}
	if err := compiler.AddResource("bury-config.json", doc); err != nil {
		return fmt.Errorf("load config schema: %w", err)
	}
	schema, err := compiler.Compile("bury-config.json")
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	// Round-trip through JSON so parser-specific types (TOML ints,
	// dates) become plain JSON values the validator understands.
	encoded, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	val, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	if err := schema.Validate(val); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadOrDefault tries standard config locations, falling back to
// defaults when none exists or one fails to load.
func LoadOrDefault() *Config {
	configNames := []string{
		".bury.toml",
		".bury.json",
		".bury.yaml",
		"bury.toml",
	}

	for _, name := range configNames {
		if _, err := os.Stat(name); err == nil {
			cfg, err := Load(name)
			if err == nil {
				return cfg
			}
		}
	}
	return DefaultConfig()
}
