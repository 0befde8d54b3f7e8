package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/phishrag/data/db/history.db"
	}
	if cfg.Storage.SnapshotPath == "" {
		cfg.Storage.SnapshotPath = "/usr/local/var/phishrag/data/indices/reference.snap"
	}
	if cfg.Dataset.Path == "" {
		cfg.Dataset.Path = "/usr/local/var/phishrag/data/phishing_examples.csv"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "hash"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/phishrag/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:11434/v1"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text"
	}
	if cfg.Embedding.TimeoutSeconds == 0 {
		cfg.Embedding.TimeoutSeconds = 60
	}
	if cfg.Analysis.TopK == 0 {
		cfg.Analysis.TopK = 5
	}
	if cfg.Analysis.MinSimilarity == 0 {
		cfg.Analysis.MinSimilarity = 0.15
	}
	if cfg.Analysis.KeywordWeight == 0 && cfg.Analysis.SemanticWeight == 0 {
		cfg.Analysis.KeywordWeight = 0.3
		cfg.Analysis.SemanticWeight = 0.7
	}
	// Refresh.DailyAt stays empty (disabled) unless configured.
}
