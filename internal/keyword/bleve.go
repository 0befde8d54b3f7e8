package keyword

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/phishrag/internal/dataset"
)

// maxQueryTerms caps the unique terms used for coverage scoring of long emails.
const maxQueryTerms = 64

// Index is an in-memory Bleve index over subject, body and indicator of each example.
// It is built once per dataset version and never mutated afterwards.
type Index struct {
	index bleve.Index
}

type document struct {
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Indicator string `json:"indicator"`
	Label     string `json:"label"`
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) keeps brand and URL fragments intact.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("subject", textFieldMapping)
	docMapping.AddFieldMappingsAt("body", textFieldMapping)
	docMapping.AddFieldMappingsAt("indicator", textFieldMapping)
	docMapping.AddFieldMappingsAt("label", bleve.NewKeywordFieldMapping())
	im.AddDocumentMapping("email", docMapping)
	im.DefaultType = "email"
	im.DefaultMapping = docMapping
	return im
}

// Build indexes examples into a fresh in-memory index.
func Build(examples []*dataset.Example) (*Index, error) {
	index, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	batch := index.NewBatch()
	for _, ex := range examples {
		doc := document{Subject: ex.Subject, Body: ex.Body, Indicator: ex.Indicator, Label: string(ex.Label)}
		if err := batch.Index(ex.ID, doc); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("index example %s: %w", ex.ID, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("failed to index examples: %w", err)
	}
	return &Index{index: index}, nil
}

// Search runs a match query and returns up to limit results, best first.
// With no boosts a single query over all text fields is used. With SubjectBoost or
// PhraseBoost > 1, subject and body are scored separately and merged additively,
// scaled by the share of query terms each example matches.
func (b *Index) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error) {
	if limit <= 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}
	subjectBoost := 1.0
	phraseBoost := 1.0
	fuzzyEnabled := false
	fuzziness := 1
	if opts != nil {
		if opts.SubjectBoost > 0 {
			subjectBoost = opts.SubjectBoost
		}
		if opts.PhraseBoost > 0 {
			phraseBoost = opts.PhraseBoost
		}
		fuzzyEnabled = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}

	if subjectBoost <= 1.0 && phraseBoost <= 1.0 {
		return b.searchSingle(ctx, query, limit, fuzzyEnabled, fuzziness)
	}
	return b.searchWithBoosts(ctx, query, limit, subjectBoost, phraseBoost, fuzzyEnabled, fuzziness)
}

func (b *Index) run(ctx context.Context, q blevequery.Query, size int) (map[string]float64, error) {
	req := bleve.NewSearchRequest(q)
	req.Size = size
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	scores := make(map[string]float64, len(results.Hits))
	for _, hit := range results.Hits {
		scores[hit.ID] = hit.Score
	}
	return scores, nil
}

func (b *Index) searchSingle(ctx context.Context, query string, limit int, fuzzyEnabled bool, fuzziness int) ([]*Result, error) {
	var q blevequery.Query
	if fuzzyEnabled {
		q = buildFuzzyQuery(query, fuzziness, "")
	} else {
		q = bleve.NewMatchQuery(query)
	}
	scores, err := b.run(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	return topResults(scores, limit), nil
}

func (b *Index) searchWithBoosts(ctx context.Context, query string, limit int, subjectBoost, phraseBoost float64, fuzzyEnabled bool, fuzziness int) ([]*Result, error) {
	reqSize := limit * 2
	if reqSize < 50 {
		reqSize = 50
	}
	terms := tokenizeQuery(query)
	numTerms := len(terms)

	var subjectQuery, bodyQuery blevequery.Query
	if fuzzyEnabled {
		subjectQuery = buildFuzzyQuery(query, fuzziness, "subject")
		bodyQuery = buildFuzzyQuery(query, fuzziness, "body")
	} else {
		sq := bleve.NewMatchQuery(query)
		sq.SetField("subject")
		subjectQuery = sq
		bq := bleve.NewMatchQuery(query)
		bq.SetField("body")
		bodyQuery = bq
	}
	subjectScores, err := b.run(ctx, subjectQuery, reqSize)
	if err != nil {
		return nil, err
	}
	bodyScores, err := b.run(ctx, bodyQuery, reqSize)
	if err != nil {
		return nil, err
	}

	coverage := make(map[string]int)
	if numTerms > 1 {
		coverage = b.termCoverage(ctx, terms, reqSize, fuzzyEnabled, fuzziness)
	}
	phrase := make(map[string]bool)
	if phraseBoost > 1.0 && numTerms > 1 {
		phrase = b.phraseMatches(ctx, query, reqSize)
	}

	scores := make(map[string]float64)
	for id, s := range subjectScores {
		scores[id] += s * subjectBoost
	}
	for id, s := range bodyScores {
		scores[id] += s
	}
	for id, base := range scores {
		// Squared coverage ranks examples sharing more of the query's terms above partial matches.
		multiplier := 1.0
		if numTerms > 1 {
			matched := coverage[id]
			if matched == 0 {
				matched = 1
			}
			c := float64(matched) / float64(numTerms)
			multiplier = c * c
		}
		if phrase[id] {
			multiplier *= phraseBoost
		}
		scores[id] = base * multiplier
	}
	return topResults(scores, limit), nil
}

// topResults orders by score descending, then id, and keeps limit entries.
func topResults(scores map[string]float64, limit int) []*Result {
	out := make([]*Result, 0, len(scores))
	for id, s := range scores {
		out = append(out, &Result{ID: id, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// tokenizeQuery returns the unique lowercase terms of query, at most maxQueryTerms.
func tokenizeQuery(query string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, ".,;:!?\"'()[]<>")
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, w)
		if len(terms) == maxQueryTerms {
			break
		}
	}
	return terms
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries for each term in the query.
// If field is empty, searches all fields.
func buildFuzzyQuery(queryStr string, fuzziness int, field string) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// termCoverage counts how many query terms each example matches.
func (b *Index) termCoverage(ctx context.Context, terms []string, reqSize int, fuzzyEnabled bool, fuzziness int) map[string]int {
	coverage := make(map[string]int)
	for _, term := range terms {
		var q blevequery.Query
		if fuzzyEnabled {
			fq := bleve.NewFuzzyQuery(term)
			fq.SetFuzziness(fuzziness)
			q = fq
		} else {
			q = bleve.NewMatchQuery(term)
		}
		hits, err := b.run(ctx, q, reqSize)
		if err != nil {
			continue
		}
		for id := range hits {
			coverage[id]++
		}
	}
	return coverage
}

// phraseMatches finds examples whose subject or body contains the query as a phrase.
func (b *Index) phraseMatches(ctx context.Context, query string, reqSize int) map[string]bool {
	matches := make(map[string]bool)
	for _, field := range []string{"subject", "body"} {
		pq := bleve.NewMatchPhraseQuery(query)
		pq.SetField(field)
		hits, err := b.run(ctx, pq, reqSize)
		if err != nil {
			continue
		}
		for id := range hits {
			matches[id] = true
		}
	}
	return matches
}

// DocCount returns the number of indexed examples.
func (b *Index) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *Index) Close() error {
	return b.index.Close()
}
