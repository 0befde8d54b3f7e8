package keyword

import (
	"context"
	"testing"

	"github.com/hyperjump/phishrag/internal/dataset"
	"github.com/hyperjump/phishrag/internal/vector"
)

func buildSample(t *testing.T) *Index {
	t.Helper()
	idx, err := Build(dataset.SampleExamples())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestIndex_DocCount(t *testing.T) {
	idx := buildSample(t)
	n, err := idx.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if int(n) != len(dataset.SampleExamples()) {
		t.Errorf("DocCount = %d", n)
	}
}

func TestIndex_SearchFindsBody(t *testing.T) {
	idx := buildSample(t)
	results, err := idx.Search(context.Background(), "bank details", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 || results[0].ID != "E002" {
		t.Fatalf("expected E002 first, got %+v", results)
	}
}

func TestIndex_SearchFindsIndicator(t *testing.T) {
	idx := buildSample(t)
	results, err := idx.Search(context.Background(), "unsolicited", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "E003" {
		t.Errorf("expected only E003, got %+v", results)
	}
}

func TestIndex_SearchSubjectBoost(t *testing.T) {
	examples := []*dataset.Example{
		{ID: "body", Subject: "Hello", Body: "your invoice is attached", Label: vector.LabelSafe},
		{ID: "subject", Subject: "Invoice", Body: "see attached", Label: vector.LabelPhishing},
	}
	idx, err := Build(examples)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	results, err := idx.Search(context.Background(), "invoice", 10, &SearchOptions{SubjectBoost: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].ID != "subject" {
		t.Errorf("subject match should rank first with boost, got %+v", results)
	}
}

func TestIndex_SearchCoverageRanksFullMatchFirst(t *testing.T) {
	idx := buildSample(t)
	results, err := idx.Search(context.Background(), "gift card prize", 10, &SearchOptions{SubjectBoost: 1.5, PhraseBoost: 1.5})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 || results[0].ID != "E003" {
		t.Errorf("expected E003 first, got %+v", results)
	}
}

func TestIndex_SearchFuzzy(t *testing.T) {
	idx := buildSample(t)
	ctx := context.Background()

	exact, err := idx.Search(ctx, "acount", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(exact) != 0 {
		t.Errorf("misspelling should not match without fuzzy, got %+v", exact)
	}
	fuzzy, err := idx.Search(ctx, "acount", 10, &SearchOptions{FuzzyEnabled: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(fuzzy) == 0 {
		t.Error("fuzzy search should match \"account\"")
	}
}

func TestIndex_SearchEdgeCases(t *testing.T) {
	idx := buildSample(t)
	ctx := context.Background()
	if r, err := idx.Search(ctx, "   ", 10, nil); err != nil || r != nil {
		t.Errorf("blank query: %v, %v", r, err)
	}
	if r, err := idx.Search(ctx, "account", 0, nil); err != nil || r != nil {
		t.Errorf("zero limit: %v, %v", r, err)
	}
	r, err := idx.Search(ctx, "account", 1, nil)
	if err != nil || len(r) != 1 {
		t.Errorf("limit 1: %v, %v", r, err)
	}
}

func TestTokenizeQuery(t *testing.T) {
	got := tokenizeQuery("Click, click HERE now!")
	want := []string{"click", "here", "now"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("term %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHolder(t *testing.T) {
	var h Holder
	if h.Load() != nil {
		t.Fatal("empty holder should return nil")
	}
	idx := buildSample(t)
	if old := h.Swap(idx); old != nil {
		t.Error("first swap should return nil")
	}
	if h.Load() != idx {
		t.Error("Load should return the swapped index")
	}
}
