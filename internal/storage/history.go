package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyperjump/phishrag/internal/models"
)

// Exchange is one email and the response shown for it, as stored in history files.
type Exchange struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// ExportJSON writes the history of sessionID (all sessions when empty) as an
// indented JSON array of {user, assistant} objects, oldest first.
func ExportJSON(ctx context.Context, s Storage, w io.Writer, sessionID string) (int, error) {
	records, err := s.ListRecords(ctx, sessionID, 0, 0)
	if err != nil {
		return 0, fmt.Errorf("list history: %w", err)
	}
	out := make([]Exchange, len(records))
	for i, rec := range records {
		out[i] = Exchange{User: rec.Email, Assistant: rec.Response}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return 0, fmt.Errorf("encode history: %w", err)
	}
	return len(out), nil
}

// ImportJSON reads a history file in any supported shape and saves each exchange
// under sessionID. Records keep file order through increasing timestamps.
func ImportJSON(ctx context.Context, s Storage, r io.Reader, sessionID string) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read history: %w", err)
	}
	exchanges, err := ParseHistory(data)
	if err != nil {
		return 0, err
	}
	base := time.Now().UTC()
	for i, ex := range exchanges {
		rec := &models.HistoryRecord{
			SessionID: sessionID,
			CreatedAt: base.Add(time.Duration(i) * time.Microsecond),
			Email:     ex.User,
			Response:  ex.Assistant,
		}
		if err := s.SaveRecord(ctx, rec); err != nil {
			return i, err
		}
	}
	return len(exchanges), nil
}

// ParseHistory normalizes the history shapes found in the wild:
//
//   - chat messages: [{"role": "user", "content": ...}, {"role": "assistant", ...}]
//   - pairs: [["email", "response"], ...]
//   - objects: [{"user": ..., "assistant": ...}] or [{"question": ..., "answer": ...}]
//
// Unrecognized entries are skipped. Empty input and non-array JSON yield no exchanges.
func ParseHistory(data []byte) ([]Exchange, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse history: %w", err)
	}
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return nil, nil
	}
	if isMessageList(items) {
		return pairMessages(items), nil
	}

	var out []Exchange
	for _, item := range items {
		switch v := item.(type) {
		case []any:
			if len(v) >= 2 {
				out = append(out, Exchange{User: stringify(v[0]), Assistant: stringify(v[1])})
			}
		case map[string]any:
			if u, ok := v["user"]; ok {
				if a, ok := v["assistant"]; ok {
					out = append(out, Exchange{User: stringify(u), Assistant: stringify(a)})
					continue
				}
			}
			if q, ok := v["question"]; ok {
				if a, ok := v["answer"]; ok {
					out = append(out, Exchange{User: stringify(q), Assistant: stringify(a)})
				}
			}
		}
	}
	return out, nil
}

func isMessageList(items []any) bool {
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return false
		}
		_, hasRole := m["role"]
		_, hasContent := m["content"]
		if !hasRole || !hasContent {
			return false
		}
	}
	return true
}

// pairMessages joins each user message with the next assistant or system reply.
// A user message without a reply is dropped.
func pairMessages(items []any) []Exchange {
	var out []Exchange
	var pending *Exchange
	for _, item := range items {
		m := item.(map[string]any)
		role, _ := m["role"].(string)
		text := stringify(m["content"])
		switch role {
		case "user":
			pending = &Exchange{User: text}
		case "assistant", "system":
			if pending != nil {
				pending.Assistant = text
				out = append(out, *pending)
				pending = nil
			}
		}
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
