// Package storage persists the analysis history.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/phishrag/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Storage defines history persistence operations. An empty sessionID means all sessions.
type Storage interface {
	SaveRecord(ctx context.Context, rec *models.HistoryRecord) error
	GetRecord(ctx context.Context, id string) (*models.HistoryRecord, error)
	ListRecords(ctx context.Context, sessionID string, offset, limit int) ([]*models.HistoryRecord, error)
	CountRecords(ctx context.Context, sessionID string) (int64, error)
	ClearRecords(ctx context.Context, sessionID string) (int64, error)

	Close() error
}
