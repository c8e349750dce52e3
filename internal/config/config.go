// Package config loads the codeseek YAML configuration and applies defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the per-project configuration file looked up in the project root.
const FileName = ".codeseek.yaml"

// ErrInvalidConfig is returned by Validate for unusable settings.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all configuration for codeseek.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Ignore    []string        `yaml:"ignore"`
	Query     QueryConfig     `yaml:"query"`
	Watch     WatchConfig     `yaml:"watch"`
}

// StoreConfig selects and addresses the vector store.
type StoreConfig struct {
	Backend    string `yaml:"backend"` // "qdrant" | "sqlite" | "memory"
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	Path       string `yaml:"path"`
	// Collection is derived from CollectionPrefix and the project directory
	// name when left empty.
	Collection       string `yaml:"collection,omitempty"`
	CollectionPrefix string `yaml:"collection_prefix"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // "ollama" | "openai" | "mock"
	URL        string `yaml:"url"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	Dimensions int    `yaml:"dimensions"` // only used by the mock provider
}

// ChunkingConfig controls structural and sliding-window extraction.
type ChunkingConfig struct {
	WindowSize int               `yaml:"window_size"`
	Overlap    *int              `yaml:"overlap"` // nil means the default; 0 is a valid setting
	Languages  map[string]string `yaml:"languages"` // extension (no dot) -> language
	Boundaries []string          `yaml:"boundaries"`
}

// QueryConfig holds query defaults.
type QueryConfig struct {
	Limit       int    `yaml:"limit"`
	Instruction string `yaml:"instruction"`
}

// OverlapLines returns the configured overlap, or zero when unset.
func (c ChunkingConfig) OverlapLines() int {
	if c.Overlap == nil {
		return 0
	}
	return *c.Overlap
}

// WatchConfig holds watch-mode settings.
type WatchConfig struct {
	DebounceMillis int `yaml:"debounce_ms"`
}

// DefaultLanguages maps file extensions to structural languages.
var DefaultLanguages = map[string]string{
	"go":   "go",
	"py":   "python",
	"pyi":  "python",
	"js":   "javascript",
	"jsx":  "javascript",
	"mjs":  "javascript",
	"cjs":  "javascript",
	"ts":   "typescript",
	"tsx":  "tsx",
	"java": "java",
	"rs":   "rust",
}

// DefaultBoundaries are the syntax node types emitted as whole chunks.
var DefaultBoundaries = []string{
	"function_declaration",
	"function_definition",
	"function_item",
	"method_declaration",
	"method_definition",
	"class_declaration",
	"class_definition",
	"interface_declaration",
	"type_declaration",
	"struct_item",
	"enum_item",
	"enum_declaration",
	"trait_item",
	"impl_item",
}

// DefaultIgnore lists path segments skipped while walking a project.
var DefaultIgnore = []string{
	".git",
	".svn",
	".hg",
	"node_modules",
	"vendor",
	"__pycache__",
	".idea",
	".vscode",
	".codeseek",
	".venv",
	"dist",
	"build",
	".env",
	"*.lock",
}

// DefaultInstruction is prepended to queries before embedding.
const DefaultInstruction = "Represent this sentence for searching relevant passages: "

// DefaultCollectionPrefix starts every derived collection name.
const DefaultCollectionPrefix = "codeseek"

// Default returns a config with every default applied. The collection name
// is left empty because it depends on the project directory; Load fills it.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Load reads the config file at path. A missing file yields the defaults.
// A .env file next to the config is loaded into the environment first so that
// API keys can stay out of the YAML.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	path = absPath
	if err := godotenv.Load(filepath.Join(filepath.Dir(path), ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	ApplyDefaults(&cfg)
	applyEnv(&cfg)
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = CollectionName(cfg.Store.CollectionPrefix, filepath.Dir(path))
	}
	if cfg.Store.Path != "" && !filepath.IsAbs(cfg.Store.Path) {
		cfg.Store.Path = filepath.Join(filepath.Dir(path), cfg.Store.Path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg as YAML to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "qdrant"
	}
	if cfg.Store.URL == "" {
		cfg.Store.URL = "http://localhost:6333"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(".codeseek", "index.db")
	}
	if cfg.Store.CollectionPrefix == "" {
		cfg.Store.CollectionPrefix = DefaultCollectionPrefix
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "ollama"
	}
	if cfg.Embedding.URL == "" {
		switch cfg.Embedding.Provider {
		case "openai":
			cfg.Embedding.URL = "https://api.openai.com"
		default:
			cfg.Embedding.URL = "http://localhost:11434"
		}
	}
	if cfg.Embedding.Model == "" {
		switch cfg.Embedding.Provider {
		case "openai":
			cfg.Embedding.Model = "text-embedding-3-small"
		default:
			cfg.Embedding.Model = "nomic-embed-text"
		}
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Chunking.WindowSize == 0 {
		cfg.Chunking.WindowSize = 20
	}
	if cfg.Chunking.Overlap == nil {
		overlap := 5
		cfg.Chunking.Overlap = &overlap
	}
	if cfg.Chunking.Languages == nil {
		cfg.Chunking.Languages = make(map[string]string, len(DefaultLanguages))
		for ext, lang := range DefaultLanguages {
			cfg.Chunking.Languages[ext] = lang
		}
	}
	if cfg.Chunking.Boundaries == nil {
		cfg.Chunking.Boundaries = append([]string(nil), DefaultBoundaries...)
	}
	if cfg.Ignore == nil {
		cfg.Ignore = append([]string(nil), DefaultIgnore...)
	}
	if cfg.Query.Limit == 0 {
		cfg.Query.Limit = 5
	}
	if cfg.Query.Instruction == "" {
		cfg.Query.Instruction = DefaultInstruction
	}
	if cfg.Watch.DebounceMillis == 0 {
		cfg.Watch.DebounceMillis = 500
	}
}

// CollectionName derives a per-project collection name of the form
// <prefix>_<dir name>, lowercased with spaces turned into underscores.
func CollectionName(prefix, projectDir string) string {
	name := strings.ToLower(filepath.Base(filepath.Clean(projectDir)))
	name = strings.ReplaceAll(name, " ", "_")
	return prefix + "_" + name
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CODESEEK_API_KEY"); v != "" && cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("QDRANT_API_KEY"); v != "" && cfg.Store.APIKey == "" {
		cfg.Store.APIKey = v
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	if c.Chunking.WindowSize <= 0 {
		return fmt.Errorf("%w: window_size must be positive, got %d", ErrInvalidConfig, c.Chunking.WindowSize)
	}
	if o := c.Chunking.OverlapLines(); o < 0 || o >= c.Chunking.WindowSize {
		return fmt.Errorf("%w: overlap %d must be in [0, window_size %d)", ErrInvalidConfig, o, c.Chunking.WindowSize)
	}
	switch c.Store.Backend {
	case "qdrant", "sqlite", "memory":
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Store.Backend)
	}
	switch c.Embedding.Provider {
	case "ollama", "openai", "mock":
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidConfig, c.Embedding.Provider)
	}
	if strings.TrimSpace(c.Store.Collection) == "" {
		return fmt.Errorf("%w: collection name is empty", ErrInvalidConfig)
	}
	return nil
}
