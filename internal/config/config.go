// Package config provides configuration loading and structs for the Bunsho server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug       bool              `yaml:"debug"`
	Server      ServerConfig      `yaml:"server"`
	Auth        AuthConfig        `yaml:"auth"`
	Storage     StorageConfig     `yaml:"storage"`
	Extraction  ExtractionConfig  `yaml:"extraction"`
	OCR         OCRConfig         `yaml:"ocr"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Chat        ChatConfig        `yaml:"chat"`
	Watch       WatchConfig       `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	MaxUploadSize int64  `yaml:"max_upload_size"`
}

// AuthConfig holds API key verification settings. Keys map opaque bearer
// tokens to tenant identifiers; tokens never appear in logs.
type AuthConfig struct {
	Keys map[string]string `yaml:"keys"`
}

// StorageConfig holds paths for the metadata database and uploaded blobs.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	BlobPath     string `yaml:"blob_path"`
}

// ExtractionConfig holds direct text extraction settings.
type ExtractionConfig struct {
	// MinCharsPerPage is the text density threshold below which a PDF is
	// routed to OCR instead of direct extraction.
	MinCharsPerPage int `yaml:"min_chars_per_page"`
}

// OCRConfig holds the asynchronous OCR provider settings.
type OCRConfig struct {
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"-"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxPolls     int           `yaml:"max_polls"`
}

// EmbeddingConfig holds the embedding provider settings.
type EmbeddingConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"-"`
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	BatchSize  int           `yaml:"batch_size"`
	Timeout    time.Duration `yaml:"timeout"`
}

// VectorStoreConfig holds the vector store settings.
type VectorStoreConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"-"`
}

// RetrievalConfig holds chunking and similarity search settings.
type RetrievalConfig struct {
	ChunkSize    int     `yaml:"chunk_size"`
	ChunkOverlap int     `yaml:"chunk_overlap"`
	TopK         int     `yaml:"top_k"`
	MinScore     float64 `yaml:"min_score"`
}

// ChatConfig holds the language model settings for answer generation.
type ChatConfig struct {
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"-"`
	Model         string        `yaml:"model"`
	MaxTokens     int           `yaml:"max_tokens"`
	Temperature   float64       `yaml:"temperature"`
	StreamTimeout time.Duration `yaml:"stream_timeout"`
}

// WatchConfig holds inbox directory watch settings. Files dropped into the
// directory are ingested into the configured tenant's namespace.
type WatchConfig struct {
	Directory string `yaml:"directory"`
	Tenant    string `yaml:"tenant"`
}

// Load reads and parses the config file at path, overlays secrets from the
// environment, expands paths, and applies defaults. A .env file next to the
// config is loaded first when present.
func Load(path string) (*Config, error) {
	configDir := filepath.Dir(path)
	// Missing .env is fine; real environments set variables directly.
	_ = godotenv.Load(filepath.Join(configDir, ".env"))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	cfg.OCR.APIKey = os.Getenv("BUNSHO_OCR_API_KEY")
	cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.Chat.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.VectorStore.APIKey = os.Getenv("PINECONE_API_KEY")

	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BlobPath = expandPath(cfg.Storage.BlobPath, configDir)
	if cfg.Watch.Directory != "" {
		cfg.Watch.Directory = expandPath(cfg.Watch.Directory, configDir)
	}

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
