package models

import (
	"errors"
	"testing"
)

func TestSimilarityQuery_Validate(t *testing.T) {
	tests := []struct {
		name    string
		query   *SimilarityQuery
		wantErr bool
	}{
		{"empty text", &SimilarityQuery{Text: ""}, true},
		{"valid query", &SimilarityQuery{Text: "hello"}, false},
		{"sets default limit", &SimilarityQuery{Text: "x", Limit: 0}, false},
		{"caps limit at 100", &SimilarityQuery{Text: "x", Limit: 200}, false},
		{"enables both when both false", &SimilarityQuery{Text: "x"}, false},
		{"negative min score", &SimilarityQuery{Text: "x", MinScore: -0.1}, true},
		{"min score above one", &SimilarityQuery{Text: "x", MinScore: 1.5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.query.Limit == 0 {
				t.Error("expected default limit to be set")
			}
			if tt.query.Limit > 100 {
				t.Errorf("expected limit capped at 100, got %d", tt.query.Limit)
			}
			if !tt.query.KeywordEnabled || !tt.query.SemanticEnabled {
				t.Error("expected both keyword and semantic enabled when both were false")
			}
		})
	}
}

func TestSimilarityQuery_ValidateKeepsSingleChannel(t *testing.T) {
	q := &SimilarityQuery{Text: "x", SemanticEnabled: true}
	if err := q.Validate(); err != nil {
		t.Fatal(err)
	}
	if q.KeywordEnabled {
		t.Error("keyword should stay disabled when semantic was requested alone")
	}
}

func TestSimilarityQuery_ValidateWrapsErrInvalidQuery(t *testing.T) {
	for _, q := range []*SimilarityQuery{{}, {Text: "x", MinScore: 2}} {
		if err := q.Validate(); !errors.Is(err, ErrInvalidQuery) {
			t.Errorf("Validate(%+v) = %v, want ErrInvalidQuery", q, err)
		}
	}
}
