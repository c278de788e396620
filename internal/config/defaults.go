package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadSize == 0 {
		cfg.Server.MaxUploadSize = 15 << 20
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/bunsho/data/db/documents.db"
	}
	if cfg.Storage.BlobPath == "" {
		cfg.Storage.BlobPath = "/usr/local/var/bunsho/data/blobs"
	}
	if cfg.Extraction.MinCharsPerPage == 0 {
		cfg.Extraction.MinCharsPerPage = 100
	}
	if cfg.OCR.PollInterval == 0 {
		cfg.OCR.PollInterval = 2 * time.Second
	}
	if cfg.OCR.MaxPolls == 0 {
		cfg.OCR.MaxPolls = 60
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1536
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 64
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Retrieval.ChunkSize == 0 {
		cfg.Retrieval.ChunkSize = 1000
	}
	if cfg.Retrieval.ChunkOverlap == 0 {
		cfg.Retrieval.ChunkOverlap = 200
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Chat.BaseURL == "" {
		cfg.Chat.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Chat.Model == "" {
		cfg.Chat.Model = "gpt-4o-mini"
	}
	if cfg.Chat.MaxTokens == 0 {
		cfg.Chat.MaxTokens = 1024
	}
	if cfg.Chat.Temperature == 0 {
		cfg.Chat.Temperature = 0.2
	}
	if cfg.Chat.StreamTimeout == 0 {
		cfg.Chat.StreamTimeout = 120 * time.Second
	}
	if cfg.Watch.Directory != "" && cfg.Watch.Tenant == "" {
		cfg.Watch.Tenant = "default"
	}
}
