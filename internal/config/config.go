package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Library points at the directory holding one sub-folder per shelf location
type Library struct {
	Root string `toml:"root"`
}

// Scan tunes the normalization stage
type Scan struct {
	MaxWidth    int  `toml:"max_width"`
	Quality     int  `toml:"quality"`
	Concurrency int  `toml:"concurrency"`
	LockFolders bool `toml:"lock_folders"`
}

// LLM selects the vision model used for a scan
type LLM struct {
	Provider       string  `toml:"provider"`
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	OllamaURL      string  `toml:"ollama_url"`
	OpenAIBaseURL  string  `toml:"openai_base_url"`
	VertexProject  string  `toml:"vertex_project"`
	VertexLocation string  `toml:"vertex_location"`
}

// Enrichment configures the book detail lookups
type Enrichment struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Concurrency    int    `toml:"concurrency"`
	GoogleBooksKey string `toml:"google_books_key"`
}

// Server configures the HTTP interface
type Server struct {
	Port string `toml:"port"`
}

// Logging configures slog output
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "auto", "text" or "json"
}

// Config is the full shelfscan configuration
type Config struct {
	Library    Library    `toml:"library"`
	Scan       Scan       `toml:"scan"`
	LLM        LLM        `toml:"llm"`
	Enrichment Enrichment `toml:"enrichment"`
	Server     Server     `toml:"server"`
	Logging    Logging    `toml:"logging"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Library: Library{Root: "./library"},
		Scan: Scan{
			MaxWidth:    1024,
			Quality:     80,
			Concurrency: 4,
			LockFolders: true,
		},
		LLM: LLM{
			Provider:    "gemini",
			Temperature: 0.1,
		},
		Enrichment: Enrichment{
			TimeoutSeconds: 30,
			Concurrency:    4,
		},
		Server:  Server{Port: "8888"},
		Logging: Logging{Level: "info", Format: "auto"},
	}
}

// Load builds the configuration from defaults, an optional TOML file and the
// environment, in that order. The returned path is the file that was read, if any.
func Load(path string) (*Config, string, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}

	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, "", fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", fmt.Errorf("parse config: %w", err)
		}
	} else {
		resolved = ""
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return &cfg, resolved, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", false, fmt.Errorf("config file not found: %s", expanded)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	candidates := []string{"shelfscan.toml", "~/.config/shelfscan/config.toml"}
	for _, candidate := range candidates {
		expanded, err := expandPath(candidate)
		if err != nil {
			return "", false, err
		}
		if info, err := os.Stat(expanded); err == nil && !info.IsDir() {
			return expanded, true, nil
		}
	}

	return "", false, nil
}

func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}

// applyEnv overrides file values with environment variables
func (c *Config) applyEnv() {
	if v := os.Getenv("SHELFSCAN_LIBRARY_ROOT"); v != "" {
		c.Library.Root = v
	}
	if v := os.Getenv("SHELFSCAN_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("SHELFSCAN_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		c.LLM.OllamaURL = v
	} else if v := os.Getenv("OLLAMA_HOST"); v != "" && c.LLM.OllamaURL == "" {
		c.LLM.OllamaURL = v
	}
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		c.LLM.VertexProject = v
	}
	if v := os.Getenv("GOOGLE_CLOUD_LOCATION"); v != "" {
		c.LLM.VertexLocation = v
	}
	if v := os.Getenv("GOOGLE_BOOKS_API_KEY"); v != "" {
		c.Enrichment.GoogleBooksKey = v
	}
	if v := os.Getenv("SHELFSCAN_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Scan.Concurrency = n
		}
	}
	if v := os.Getenv("SHELFSCAN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
}

// DefaultModel returns the model for provider when none is configured
func DefaultModel(provider string) string {
	switch provider {
	case "gemini", "vertex":
		if model := os.Getenv("GEMINI_MODEL"); model != "" {
			return model
		}
		return "gemini-2.5-pro"
	case "openai":
		if model := os.Getenv("OPENAI_MODEL"); model != "" {
			return model
		}
		return "gpt-4o"
	case "ollama":
		if model := os.Getenv("OLLAMA_MODEL"); model != "" {
			return model
		}
		return "mistral-small3.2:24b"
	default:
		return ""
	}
}

// ResolvedModel returns the configured model or the provider default
func (c *Config) ResolvedModel() string {
	if c.LLM.Model != "" {
		return c.LLM.Model
	}
	return DefaultModel(c.LLM.Provider)
}

// Validate checks the configuration for out-of-range values
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "gemini", "vertex", "openai", "ollama":
	default:
		return fmt.Errorf("unsupported provider: %s", c.LLM.Provider)
	}
	if c.Scan.MaxWidth <= 0 {
		return fmt.Errorf("scan.max_width must be positive, got %d", c.Scan.MaxWidth)
	}
	if c.Scan.Quality < 1 || c.Scan.Quality > 100 {
		return fmt.Errorf("scan.quality must be between 1 and 100, got %d", c.Scan.Quality)
	}
	if c.Scan.Concurrency <= 0 {
		return fmt.Errorf("scan.concurrency must be positive, got %d", c.Scan.Concurrency)
	}
	if c.Enrichment.Concurrency <= 0 {
		return fmt.Errorf("enrichment.concurrency must be positive, got %d", c.Enrichment.Concurrency)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", c.LLM.Temperature)
	}
	if c.Library.Root == "" {
		return errors.New("library.root is required")
	}
	return nil
}
