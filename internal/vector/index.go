// Package vector provides the immutable reference-vector index used to find
// known emails that are similar to a new one.
package vector

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrEmptyDataset is returned by Build when no reference items are supplied.
	ErrEmptyDataset = errors.New("empty dataset")
	// ErrDimensionMismatch is returned when a vector length differs from the index dimensionality.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidK is returned by Query when k is less than 1.
	ErrInvalidK = errors.New("k must be at least 1")
	// ErrNonFiniteVector is returned when a vector has a NaN or infinite component.
	ErrNonFiniteVector = errors.New("vector has non-finite components")
)

// Label classifies a reference email.
type Label string

const (
	LabelSafe       Label = "Safe"
	LabelSuspicious Label = "Suspicious"
	LabelPhishing   Label = "Phishing"
)

// ParseLabel parses a label case-insensitively.
func ParseLabel(s string) (Label, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "safe":
		return LabelSafe, nil
	case "suspicious":
		return LabelSuspicious, nil
	case "phishing":
		return LabelPhishing, nil
	default:
		return "", fmt.Errorf("unknown label %q (want Safe, Suspicious or Phishing)", s)
	}
}

// ReferenceItem is a stored (vector, label, text) triple plus the id and
// indicator note it was loaded with.
type ReferenceItem struct {
	ID        string
	Vector    []float32
	Label     Label
	Text      string
	Indicator string
}

// Match is a single query hit.
type Match struct {
	Item  ReferenceItem
	Score float64 // cosine similarity in [-1, 1]
}

// Index is an immutable set of reference vectors searched by full scan.
// It is safe for concurrent queries; refresh by building a new Index and
// swapping it through a Holder.
type Index struct {
	dimensions int
	items      []ReferenceItem
	norms      []float64
	byID       map[string]int
}

// Build creates an index from items. All vectors must share one length, which
// becomes the index dimensionality. Vectors are copied.
func Build(items []ReferenceItem) (*Index, error) {
	if len(items) == 0 {
		return nil, ErrEmptyDataset
	}
	dim := len(items[0].Vector)
	if dim == 0 {
		return nil, fmt.Errorf("item %q has an empty vector: %w", items[0].ID, ErrDimensionMismatch)
	}
	idx := &Index{
		dimensions: dim,
		items:      make([]ReferenceItem, len(items)),
		norms:      make([]float64, len(items)),
		byID:       make(map[string]int, len(items)),
	}
	for i, it := range items {
		if len(it.Vector) != dim {
			return nil, fmt.Errorf("item %d (%q): got %d components, expected %d: %w",
				i, it.ID, len(it.Vector), dim, ErrDimensionMismatch)
		}
		if j := nonFinite(it.Vector); j >= 0 {
			return nil, fmt.Errorf("item %d (%q) component %d: %w", i, it.ID, j, ErrNonFiniteVector)
		}
		vec := make([]float32, dim)
		copy(vec, it.Vector)
		it.Vector = vec
		idx.items[i] = it
		idx.norms[i] = L2Norm(vec)
		if _, dup := idx.byID[it.ID]; !dup {
			idx.byID[it.ID] = i
		}
	}
	return idx, nil
}

// Query returns the k items most similar to vector by cosine similarity,
// highest first. Ties keep insertion order. k larger than Size is clamped.
func (x *Index) Query(vector []float32, k int) ([]Match, error) {
	if len(vector) != x.dimensions {
		return nil, fmt.Errorf("query has %d components, index expects %d: %w",
			len(vector), x.dimensions, ErrDimensionMismatch)
	}
	if k < 1 {
		return nil, fmt.Errorf("k=%d: %w", k, ErrInvalidK)
	}
	if j := nonFinite(vector); j >= 0 {
		return nil, fmt.Errorf("query component %d: %w", j, ErrNonFiniteVector)
	}
	qNorm := L2Norm(vector)
	matches := make([]Match, len(x.items))
	for i, it := range x.items {
		matches[i] = Match{Item: it, Score: cosine(vector, it.Vector, qNorm, x.norms[i])}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

// Dimensions returns the vector length fixed at build time.
func (x *Index) Dimensions() int {
	return x.dimensions
}

// Size returns the number of reference items.
func (x *Index) Size() int {
	return len(x.items)
}

// Items returns a copy of the reference items in insertion order.
// Vectors are shared with the index and must not be modified.
func (x *Index) Items() []ReferenceItem {
	return append([]ReferenceItem(nil), x.items...)
}

// Lookup returns the first item with the given id.
func (x *Index) Lookup(id string) (ReferenceItem, bool) {
	i, ok := x.byID[id]
	if !ok {
		return ReferenceItem{}, false
	}
	return x.items[i], true
}

// LabelCounts returns how many items carry each label.
func (x *Index) LabelCounts() map[Label]int {
	counts := make(map[Label]int)
	for _, it := range x.items {
		counts[it.Label]++
	}
	return counts
}
