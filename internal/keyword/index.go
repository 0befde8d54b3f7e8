// Package keyword provides BM25 keyword search over the reference emails.
package keyword

import (
	"sync/atomic"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// SubjectBoost multiplies the score contribution from matches in the subject field.
	// Values > 1 make subject matches rank higher. Use 1.0 for no boost.
	SubjectBoost float64
	// PhraseBoost multiplies the score when query terms appear together as a phrase.
	PhraseBoost float64
	// FuzzyEnabled matches terms within Fuzziness edits, so "acount" still finds "account".
	FuzzyEnabled bool
	// Fuzziness is the maximum edit distance (1 or 2). Default is 1 when FuzzyEnabled is true.
	Fuzziness int
}

// Result is a single keyword search hit.
type Result struct {
	ID    string
	Score float64
}

// Holder publishes the current keyword index to concurrent readers.
type Holder struct {
	p atomic.Pointer[Index]
}

// Load returns the current index, or nil before the first build.
func (h *Holder) Load() *Index {
	return h.p.Load()
}

// Swap installs idx and returns the previous index.
func (h *Holder) Swap(idx *Index) *Index {
	return h.p.Swap(idx)
}
