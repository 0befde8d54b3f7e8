package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hyperjump/phishrag/internal/config"
	"github.com/hyperjump/phishrag/internal/embedding"
	"github.com/hyperjump/phishrag/internal/keyword"
	"github.com/hyperjump/phishrag/internal/models"
	"github.com/hyperjump/phishrag/internal/vector"
)

// ErrIndexNotReady is returned before the first reference index has been built.
var ErrIndexNotReady = errors.New("reference index not built yet")

// snippetLen bounds the example text returned with each result.
const snippetLen = 160

// Engine runs hybrid (keyword + semantic) similarity search over the reference emails.
// It reads whatever indices are current in the holders, so a rebuild never blocks it.
type Engine struct {
	embedder embedding.Embedder
	vectors  *vector.Holder
	keywords *keyword.Holder
	config   config.AnalysisConfig
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(
	embedder embedding.Embedder,
	vectors *vector.Holder,
	keywords *keyword.Holder,
	cfg config.AnalysisConfig,
) *Engine {
	return &Engine{
		embedder: embedder,
		vectors:  vectors,
		keywords: keywords,
		config:   cfg,
	}
}

// Embedder returns the embedder queries are encoded with.
func (e *Engine) Embedder() embedding.Embedder {
	return e.embedder
}

// Search returns the reference emails most similar to query.Text, best first.
// Results carry the metadata of the current vector index; keyword hits for ids
// it does not contain are dropped.
func (e *Engine) Search(ctx context.Context, query *models.SimilarityQuery) (*models.SimilarityResponse, error) {
	startTime := time.Now()
	if err := ProcessQuery(query); err != nil {
		return nil, err
	}
	vecIndex := e.vectors.Load()
	if vecIndex == nil {
		return nil, ErrIndexNotReady
	}
	kwIndex := e.keywords.Load()

	candidates := query.Limit * 2
	if candidates < 10 {
		candidates = 10
	}

	var (
		keywordResults []*keyword.Result
		semanticResult []vector.Match
		errChan        = make(chan error, 2)
		wg             sync.WaitGroup
	)

	keywordOn := query.KeywordEnabled && kwIndex != nil
	if keywordOn {
		wg.Add(1)
		go func() {
			defer wg.Done()
			opts := &keyword.SearchOptions{SubjectBoost: 1.5, FuzzyEnabled: query.FuzzyEnabled}
			results, err := kwIndex.Search(ctx, query.Text, candidates, opts)
			if err != nil {
				errChan <- fmt.Errorf("keyword search failed: %w", err)
				return
			}
			keywordResults = results
		}()
	}

	if query.SemanticEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			queryEmbedding, err := e.embedder.Embed(ctx, query.Text)
			if err != nil {
				errChan <- fmt.Errorf("embedding failed: %w", err)
				return
			}
			matches, err := vecIndex.Query(queryEmbedding, candidates)
			if err != nil {
				errChan <- fmt.Errorf("vector search failed: %w", err)
				return
			}
			semanticResult = matches
		}()
	}

	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	keywordWeight, semanticWeight := e.config.KeywordWeight, e.config.SemanticWeight
	if !keywordOn {
		keywordWeight = 0
	}
	if !query.SemanticEnabled {
		semanticWeight = 0
	}
	if keywordWeight == 0 && semanticWeight == 0 {
		// Whichever channel ran carries the full weight.
		if keywordOn {
			keywordWeight = 1
		} else {
			semanticWeight = 1
		}
	}
	fused := Fuse(NormalizeKeywordScores(keywordResults), NormalizeSemanticScores(semanticResult),
		keywordWeight, semanticWeight)

	response := &models.SimilarityResponse{
		Results: make([]*models.SimilarExample, 0, query.Limit),
		Query:   query.Text,
	}
	for _, r := range fused {
		if r.Score <= query.MinScore {
			continue
		}
		item, ok := vecIndex.Lookup(r.ExampleID)
		if !ok {
			continue
		}
		response.Total++
		if len(response.Results) == query.Limit {
			continue
		}
		response.Results = append(response.Results, &models.SimilarExample{
			ID:            item.ID,
			Label:         item.Label,
			Indicator:     item.Indicator,
			Snippet:       Snippet(item.Text, query.Text, snippetLen),
			Score:         r.Score,
			KeywordScore:  r.KeywordScore,
			SemanticScore: r.SemanticScore,
			Rank:          len(response.Results) + 1,
		})
	}
	response.QueryTime = time.Since(startTime).Milliseconds()
	return response, nil
}
