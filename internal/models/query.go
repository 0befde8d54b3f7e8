package models

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery wraps every SimilarityQuery validation failure.
var ErrInvalidQuery = errors.New("invalid query")

// SimilarityQuery asks for the reference emails most similar to Text.
type SimilarityQuery struct {
	Text            string  `json:"text"`
	Limit           int     `json:"limit,omitempty"`
	KeywordEnabled  bool    `json:"keyword_enabled,omitempty"`
	SemanticEnabled bool    `json:"semantic_enabled,omitempty"`
	FuzzyEnabled    bool    `json:"fuzzy_enabled,omitempty"` // typo-tolerant keyword matching
	MinScore        float64 `json:"min_score,omitempty"`     // keep results scoring strictly above this
}

// Validate ensures the query has valid fields and sets defaults.
// Returns an error if the text is empty; otherwise normalizes limit and enables at least one search type.
func (q *SimilarityQuery) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("%w: text cannot be empty", ErrInvalidQuery)
	}
	if q.Limit <= 0 {
		q.Limit = 5
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.MinScore < 0 || q.MinScore > 1 {
		return fmt.Errorf("%w: min_score must be within [0, 1]", ErrInvalidQuery)
	}
	if !q.KeywordEnabled && !q.SemanticEnabled {
		q.KeywordEnabled = true
		q.SemanticEnabled = true
	}
	return nil
}

// AnalyzeRequest is the body of POST /api/v1/analyze.
type AnalyzeRequest struct {
	Email     string `json:"email"`
	SessionID string `json:"session_id,omitempty"`
	TopK      int    `json:"top_k,omitempty"`      // <= 0 uses analysis.top_k
	NoHistory bool   `json:"no_history,omitempty"` // skip recording the analysis
}

// NeighborsRequest is the body of POST /api/v1/neighbors: a raw query vector
// searched directly against the reference index.
type NeighborsRequest struct {
	Vector []float32 `json:"vector"`
	K      int       `json:"k"`
}
