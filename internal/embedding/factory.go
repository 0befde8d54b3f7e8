package embedding

import (
	"fmt"
	"strconv"
	"time"

	"github.com/hyperjump/phishrag/internal/config"
	"go.uber.org/zap"
)

// New builds the configured embedder wrapped in a CachedEmbedder.
// When cachePath is non-empty, embeddings are also persisted there with bbolt.
// An ONNX model that fails to load falls back to the hashing embedder.
func New(cfg config.EmbeddingConfig, cachePath string, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var inner Embedder
	cacheModel := cfg.Provider
	switch cfg.Provider {
	case "", "hash":
		inner = NewHashEmbedder(cfg.Dimensions)
		cacheModel = "hash"
	case "onnx":
		onnx, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			logger.Warn("ONNX embedder unavailable, falling back to hash embedder",
				zap.String("model_path", cfg.ModelPath), zap.Error(err))
			inner = NewHashEmbedder(cfg.Dimensions)
			cacheModel = "hash"
		} else {
			inner = onnx
			cacheModel = "onnx:" + cfg.ModelPath
		}
	case "http":
		inner = NewHTTPEmbedder(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Dimensions,
			time.Duration(cfg.TimeoutSeconds)*time.Second)
		cacheModel = "http:" + cfg.BaseURL + ":" + cfg.Model
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
	cacheModel += ":" + strconv.Itoa(inner.Dimensions())

	var disk *BoltCache
	if cachePath != "" {
		var err error
		disk, err = OpenBoltCache(cachePath, cacheModel)
		if err != nil {
			_ = inner.Close()
			return nil, err
		}
	}
	logger.Info("Embedder ready",
		zap.String("provider", cfg.Provider),
		zap.Int("dimensions", inner.Dimensions()),
		zap.Bool("disk_cache", disk != nil))
	return NewCachedEmbedder(inner, cfg.CacheSize, disk), nil
}
