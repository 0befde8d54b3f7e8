// Package analyzer classifies an email as Safe, Suspicious or Phishing from
// heuristic indicators and the labelled reference emails it resembles.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/phishrag/internal/config"
	"github.com/hyperjump/phishrag/internal/models"
	"github.com/hyperjump/phishrag/internal/search"
	"github.com/hyperjump/phishrag/internal/vector"
	"go.uber.org/zap"
)

// ErrEmptyEmail is returned when the email text is blank.
var ErrEmptyEmail = errors.New("email text is empty")

// Analysis is the result of analyzing one email.
type Analysis struct {
	Risk       Risk                     `json:"risk"`
	Score      int                      `json:"score"`
	Label      vector.Label             `json:"label"`
	Indicators []string                 `json:"indicators"`
	Similar    []*models.SimilarExample `json:"similar"`
	Actions    []string                 `json:"actions"`
	Verdict    string                   `json:"verdict"`
}

// Analyzer scores emails against the current reference corpus.
type Analyzer struct {
	engine *search.Engine
	cfg    config.AnalysisConfig
	logger *zap.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an Analyzer that finds similar examples with engine.
func New(engine *search.Engine, cfg config.AnalysisConfig, opts ...Option) *Analyzer {
	a := &Analyzer{engine: engine, cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze scores email. Each indicator adds its weight; each similar non-Safe
// example scoring above the minimum similarity adds int(similarity*3).
func (a *Analyzer) Analyze(ctx context.Context, email string) (*Analysis, error) {
	return a.AnalyzeTopK(ctx, email, 0)
}

// AnalyzeTopK is Analyze with at most topK similar examples; topK <= 0 uses
// the configured analysis.top_k.
func (a *Analyzer) AnalyzeTopK(ctx context.Context, email string, topK int) (*Analysis, error) {
	text := strings.TrimSpace(email)
	if text == "" {
		return nil, ErrEmptyEmail
	}
	lower := strings.ToLower(text)

	res := &Analysis{Indicators: []string{}, Similar: []*models.SimilarExample{}}
	for _, ind := range Indicators {
		if !ind.Matches(lower) {
			continue
		}
		res.Indicators = append(res.Indicators, ind.Name)
		res.Score += ind.Weight
		if ind.Action != "" {
			res.Actions = append(res.Actions, ind.Action)
		}
	}
	if len(res.Actions) == 0 {
		res.Actions = []string{NoActionAdvice}
	}

	if topK <= 0 {
		topK = a.cfg.TopK
	}
	resp, err := a.engine.Search(ctx, &models.SimilarityQuery{
		Text:     text,
		Limit:    topK,
		MinScore: a.cfg.MinSimilarity,
	})
	if err != nil {
		return nil, fmt.Errorf("find similar examples: %w", err)
	}
	for _, ex := range resp.Results {
		res.Similar = append(res.Similar, ex)
		if ex.Label != vector.LabelSafe {
			res.Score += int(ex.Score * 3)
		}
	}

	res.Risk = RiskFromScore(res.Score)
	res.Label = res.Risk.Label()
	res.Verdict = res.Risk.Verdict()
	a.logger.Debug("Analyzed email",
		zap.String("risk", string(res.Risk)),
		zap.Int("score", res.Score),
		zap.Int("indicators", len(res.Indicators)),
		zap.Int("similar", len(res.Similar)))
	return res, nil
}

// Summary renders the analysis as a plain-text report.
func (r *Analysis) Summary() string {
	var b strings.Builder
	b.WriteString("Phishing Analysis\n")
	fmt.Fprintf(&b, "Risk level: %s (score=%d)\n", r.Risk, r.Score)

	if len(r.Indicators) == 0 {
		b.WriteString("\nDetected indicators: None obvious (heuristic scan)\n")
	} else {
		b.WriteString("\nDetected indicators:\n")
		for i, ind := range r.Indicators {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, ind)
		}
	}

	if len(r.Similar) > 0 {
		b.WriteString("\nSimilar known examples:\n")
		for _, s := range r.Similar {
			fmt.Fprintf(&b, "  - %s [%s] (sim=%.2f)", s.ID, s.Label, s.Score)
			if s.Indicator != "" {
				fmt.Fprintf(&b, ": %s", s.Indicator)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\nRecommended actions:\n")
	for i, act := range r.Actions {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, act)
	}
	fmt.Fprintf(&b, "\nVERDICT: %s", r.Verdict)
	return b.String()
}
