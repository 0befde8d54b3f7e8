// Package indexer builds the reference indices from the labelled dataset and
// publishes them to the search engine.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/hyperjump/phishrag/internal/config"
	"github.com/hyperjump/phishrag/internal/dataset"
	"github.com/hyperjump/phishrag/internal/embedding"
	"github.com/hyperjump/phishrag/internal/keyword"
	"github.com/hyperjump/phishrag/internal/vector"
	"go.uber.org/zap"
)

// Stats describes the last successful build.
type Stats struct {
	Examples   int                  `json:"examples"`
	Dimensions int                  `json:"dimensions"`
	Labels     map[vector.Label]int `json:"labels"`
	Duration   time.Duration        `json:"duration"`
	Source     string               `json:"source"` // "dataset" or "snapshot"
}

// Indexer turns the dataset into a vector index and a keyword index and swaps
// both into their holders. Rebuilds are serialized; searches keep using the
// previous indices until the swap.
type Indexer struct {
	embedder embedding.Embedder
	vectors  *vector.Holder
	keywords *keyword.Holder
	dataset  config.DatasetConfig
	snapshot string
	logger   *zap.Logger // optional; when set, logs build events
	// retireAfter is how long a replaced keyword index stays open for
	// searches that loaded it before the swap.
	retireAfter time.Duration

	mu sync.Mutex
}

const defaultRetireAfter = time.Minute

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for build events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithSnapshot persists each built vector index to path and lets LoadSnapshot restore it.
func WithSnapshot(path string) IndexerOption {
	return func(idx *Indexer) { idx.snapshot = path }
}

// WithRetireAfter sets how long a replaced keyword index stays open before it
// is closed.
func WithRetireAfter(d time.Duration) IndexerOption {
	return func(idx *Indexer) { idx.retireAfter = d }
}

// NewIndexer creates an indexer that publishes to vectors and keywords.
func NewIndexer(
	embedder embedding.Embedder,
	vectors *vector.Holder,
	keywords *keyword.Holder,
	cfg config.DatasetConfig,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		embedder: embedder,
		vectors:  vectors,
		keywords: keywords,
		dataset:  cfg,

		retireAfter: defaultRetireAfter,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// DatasetPath returns the file the indexer reads examples from.
func (idx *Indexer) DatasetPath() string {
	return idx.dataset.Path
}

// Rebuild reloads the dataset, embeds every example and installs fresh indices.
// On any error the indices already in service are left untouched.
func (idx *Indexer) Rebuild(ctx context.Context) (*Stats, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	start := time.Now()

	if idx.dataset.SeedOrDefault() {
		wrote, err := dataset.EnsureSample(idx.dataset.Path)
		if err != nil {
			return nil, fmt.Errorf("seed dataset: %w", err)
		}
		if wrote && idx.logger != nil {
			idx.logger.Info("wrote sample dataset", zap.String("path", idx.dataset.Path))
		}
	}
	examples, err := dataset.Load(idx.dataset.Path)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	texts := make([]string, len(examples))
	for i, ex := range examples {
		texts[i] = Preprocess(ex.Text())
	}
	embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(examples) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d examples", len(embeddings), len(examples))
	}

	items := make([]vector.ReferenceItem, len(examples))
	for i, ex := range examples {
		items[i] = vector.ReferenceItem{
			ID:        ex.ID,
			Vector:    embeddings[i],
			Label:     ex.Label,
			Text:      texts[i],
			Indicator: ex.Indicator,
		}
	}
	vecIndex, err := vector.Build(items)
	if err != nil {
		return nil, fmt.Errorf("build vector index: %w", err)
	}
	kwIndex, err := keyword.Build(examples)
	if err != nil {
		return nil, fmt.Errorf("build keyword index: %w", err)
	}

	// Keywords first: the engine drops keyword hits missing from the vector index.
	idx.retire(idx.keywords.Swap(kwIndex))
	idx.vectors.Swap(vecIndex)

	if err := vector.WriteSnapshot(idx.snapshot, vecIndex); err != nil && idx.logger != nil {
		idx.logger.Warn("failed to write index snapshot", zap.String("path", idx.snapshot), zap.Error(err))
	}

	stats := &Stats{
		Examples:   vecIndex.Size(),
		Dimensions: vecIndex.Dimensions(),
		Labels:     vecIndex.LabelCounts(),
		Duration:   time.Since(start),
		Source:     "dataset",
	}
	if idx.logger != nil {
		idx.logger.Info("reference index built",
			zap.Int("examples", stats.Examples),
			zap.Int("dimensions", stats.Dimensions),
			zap.Duration("duration", stats.Duration))
	}
	return stats, nil
}

// retire closes a replaced keyword index once in-flight searches have had
// retireAfter to finish with it.
func (idx *Indexer) retire(old *keyword.Index) {
	if old == nil {
		return
	}
	time.AfterFunc(idx.retireAfter, func() {
		if err := old.Close(); err != nil && idx.logger != nil {
			idx.logger.Warn("failed to close replaced keyword index", zap.Error(err))
		}
	})
}

// LoadSnapshot installs the vector index saved by a previous build, so searches can
// start before the embedder has processed the dataset. The keyword index is rebuilt
// from the snapshot text. Returns os.ErrNotExist when there is no snapshot.
func (idx *Indexer) LoadSnapshot() (*Stats, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	start := time.Now()

	if idx.snapshot == "" {
		return nil, os.ErrNotExist
	}
	vecIndex, err := vector.ReadSnapshot(idx.snapshot)
	if err != nil {
		return nil, err
	}
	if vecIndex == nil {
		return nil, os.ErrNotExist
	}
	if dims := idx.embedder.Dimensions(); dims != vecIndex.Dimensions() {
		return nil, fmt.Errorf("snapshot has %d dimensions, embedder produces %d: %w",
			vecIndex.Dimensions(), dims, vector.ErrDimensionMismatch)
	}
	items := vecIndex.Items()
	examples := make([]*dataset.Example, len(items))
	for i, it := range items {
		examples[i] = &dataset.Example{ID: it.ID, Body: it.Text, Indicator: it.Indicator, Label: it.Label}
	}
	kwIndex, err := keyword.Build(examples)
	if err != nil {
		return nil, fmt.Errorf("build keyword index: %w", err)
	}
	idx.retire(idx.keywords.Swap(kwIndex))
	idx.vectors.Swap(vecIndex)

	stats := &Stats{
		Examples:   vecIndex.Size(),
		Dimensions: vecIndex.Dimensions(),
		Labels:     vecIndex.LabelCounts(),
		Duration:   time.Since(start),
		Source:     "snapshot",
	}
	if idx.logger != nil {
		idx.logger.Info("reference index loaded from snapshot",
			zap.String("path", idx.snapshot), zap.Int("examples", stats.Examples))
	}
	return stats, nil
}

// Start makes indices available as quickly as possible: it loads the snapshot when
// one exists and then rebuilds from the dataset. A failed rebuild after a good
// snapshot load is logged and not returned.
func (idx *Indexer) Start(ctx context.Context) error {
	_, snapErr := idx.LoadSnapshot()
	if snapErr != nil && !errors.Is(snapErr, os.ErrNotExist) && idx.logger != nil {
		idx.logger.Warn("ignoring unusable index snapshot", zap.Error(snapErr))
	}
	if _, err := idx.Rebuild(ctx); err != nil {
		if snapErr == nil {
			if idx.logger != nil {
				idx.logger.Warn("rebuild failed, serving snapshot", zap.Error(err))
			}
			return nil
		}
		return err
	}
	return nil
}
