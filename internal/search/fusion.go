// Package search finds the reference emails most similar to a text by fusing
// keyword (BM25) and semantic (cosine) scores.
package search

import (
	"sort"

	"github.com/hyperjump/phishrag/internal/keyword"
	"github.com/hyperjump/phishrag/internal/vector"
)

// FusedResult holds an example ID and fused keyword/semantic scores.
type FusedResult struct {
	ExampleID     string
	Score         float64
	KeywordScore  float64
	SemanticScore float64
}

// NormalizeKeywordScores normalizes keyword scores to [0,1] by max.
func NormalizeKeywordScores(results []*keyword.Result) map[string]float64 {
	if len(results) == 0 {
		return make(map[string]float64)
	}
	maxScore := results[0].Score
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	normalized := make(map[string]float64)
	for _, r := range results {
		if maxScore > 0 {
			normalized[r.ID] = r.Score / maxScore
		} else {
			normalized[r.ID] = 0
		}
	}
	return normalized
}

// NormalizeSemanticScores maps cosine similarities to [0,1]; opposite directions count as zero.
func NormalizeSemanticScores(matches []vector.Match) map[string]float64 {
	normalized := make(map[string]float64)
	for _, m := range matches {
		s := m.Score
		if s < 0 {
			s = 0
		}
		normalized[m.Item.ID] = s
	}
	return normalized
}

// Fuse merges keyword and semantic score maps with weights and returns FusedResults
// sorted by score descending, then by id. Weights are scaled to sum to 1 so the
// fused score stays within [0,1].
func Fuse(keywordScores, semanticScores map[string]float64, keywordWeight, semanticWeight float64) []*FusedResult {
	if total := keywordWeight + semanticWeight; total > 0 {
		keywordWeight /= total
		semanticWeight /= total
	}
	scoreMap := make(map[string]*FusedResult)
	for id, score := range keywordScores {
		scoreMap[id] = &FusedResult{
			ExampleID:    id,
			KeywordScore: score,
		}
	}
	for id, score := range semanticScores {
		if result, exists := scoreMap[id]; exists {
			result.SemanticScore = score
		} else {
			scoreMap[id] = &FusedResult{
				ExampleID:     id,
				SemanticScore: score,
			}
		}
	}
	results := make([]*FusedResult, 0, len(scoreMap))
	for _, result := range scoreMap {
		result.Score = (keywordWeight * result.KeywordScore) + (semanticWeight * result.SemanticScore)
		results = append(results, result)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ExampleID < results[j].ExampleID
	})
	return results
}
