package search

import (
	"github.com/hyperjump/phishrag/internal/indexer"
	"github.com/hyperjump/phishrag/internal/models"
)

// ProcessQuery normalizes the query text and validates the query.
func ProcessQuery(query *models.SimilarityQuery) error {
	query.Text = indexer.Preprocess(query.Text)
	return query.Validate()
}
