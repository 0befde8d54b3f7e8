package models

import "github.com/hyperjump/phishrag/internal/vector"

// SimilarExample is one reference email matched against a query.
type SimilarExample struct {
	ID            string       `json:"id"`
	Label         vector.Label `json:"label"`
	Indicator     string       `json:"indicator,omitempty"`
	Snippet       string       `json:"snippet"`
	Score         float64      `json:"score"`
	KeywordScore  float64      `json:"keyword_score"`
	SemanticScore float64      `json:"semantic_score"`
	Rank          int          `json:"rank"`
}

// SimilarityResponse is the response for a similarity query.
type SimilarityResponse struct {
	Results   []*SimilarExample `json:"results"`
	Total     int               `json:"total"`
	QueryTime int64             `json:"query_time_ms"`
	Query     string            `json:"query"`
}

// Neighbor is one raw index match, ordered by cosine similarity.
type Neighbor struct {
	ID        string       `json:"id"`
	Label     vector.Label `json:"label"`
	Indicator string       `json:"indicator,omitempty"`
	Text      string       `json:"text"`
	Score     float64      `json:"score"`
}

// NeighborsResponse is the response for a raw vector query.
type NeighborsResponse struct {
	Neighbors  []*Neighbor `json:"neighbors"`
	Dimensions int         `json:"dimensions"`
}
