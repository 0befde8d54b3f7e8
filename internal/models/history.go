// Package models defines the request, result and history types shared by the API, CLI and storage.
package models

import (
	"time"

	"github.com/hyperjump/phishrag/internal/vector"
)

// HistoryRecord is one analyzed email and the response that was shown for it.
type HistoryRecord struct {
	ID        string       `json:"id" db:"id"`
	SessionID string       `json:"session_id,omitempty" db:"session_id"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	Email     string       `json:"email" db:"email"`
	Response  string       `json:"response" db:"response"`
	Risk      string       `json:"risk,omitempty" db:"risk"`
	Score     int          `json:"score" db:"score"`
	Label     vector.Label `json:"label,omitempty" db:"label"`
}
