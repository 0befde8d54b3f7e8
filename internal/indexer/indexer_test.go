package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/phishrag/internal/config"
	"github.com/hyperjump/phishrag/internal/dataset"
	"github.com/hyperjump/phishrag/internal/embedding"
	"github.com/hyperjump/phishrag/internal/keyword"
	"github.com/hyperjump/phishrag/internal/vector"
)

type testIndexer struct {
	*Indexer
	vectors  *vector.Holder
	keywords *keyword.Holder
}

func newTestIndexer(t *testing.T, dir string, dims int, seed bool) *testIndexer {
	t.Helper()
	vectors := &vector.Holder{}
	keywords := &keyword.Holder{}
	cfg := config.DatasetConfig{
		Path:          filepath.Join(dir, "phishing_examples.csv"),
		SeedIfMissing: &seed,
	}
	idx := NewIndexer(embedding.NewHashEmbedder(dims), vectors, keywords, cfg,
		WithSnapshot(filepath.Join(dir, "indices", "reference.snap")))
	return &testIndexer{Indexer: idx, vectors: vectors, keywords: keywords}
}

func TestRebuild_seedsAndPublishes(t *testing.T) {
	dir := t.TempDir()
	idx := newTestIndexer(t, dir, 64, true)

	stats, err := idx.Rebuild(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := len(dataset.SampleExamples())
	if stats.Examples != want || stats.Dimensions != 64 || stats.Source != "dataset" {
		t.Errorf("stats: %+v", stats)
	}
	if stats.Labels[vector.LabelSafe] != 2 {
		t.Errorf("label counts: %v", stats.Labels)
	}
	vec := idx.vectors.Load()
	if vec == nil || vec.Size() != want {
		t.Fatal("vector index not published")
	}
	if item, ok := vec.Lookup("E002"); !ok || item.Indicator != "Sensitive info request" {
		t.Errorf("lookup E002: %+v", item)
	}
	kw := idx.keywords.Load()
	if kw == nil {
		t.Fatal("keyword index not published")
	}
	if n, _ := kw.DocCount(); int(n) != want {
		t.Errorf("keyword doc count = %d", n)
	}
	if idx.vectors.BuiltAt().IsZero() {
		t.Error("BuiltAt should be set")
	}
	if _, err := os.Stat(filepath.Join(dir, "indices", "reference.snap")); err != nil {
		t.Errorf("snapshot not written: %v", err)
	}
}

func TestRebuild_closesReplacedKeywordIndex(t *testing.T) {
	dir := t.TempDir()
	keywords := &keyword.Holder{}
	seed := true
	idx := NewIndexer(embedding.NewHashEmbedder(32), &vector.Holder{}, keywords,
		config.DatasetConfig{Path: filepath.Join(dir, "phishing_examples.csv"), SeedIfMissing: &seed},
		WithRetireAfter(10*time.Millisecond))

	if _, err := idx.Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	old := keywords.Load()
	if _, err := idx.Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	current := keywords.Load()
	if current == old {
		t.Fatal("rebuild should publish a new keyword index")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := old.DocCount(); err != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("replaced keyword index was never closed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := current.DocCount(); err != nil {
		t.Errorf("current keyword index should stay open: %v", err)
	}
}

func TestRebuild_failureKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	idx := newTestIndexer(t, dir, 32, true)
	ctx := context.Background()
	if _, err := idx.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}
	before := idx.vectors.Load()

	if err := os.WriteFile(idx.DatasetPath(), []byte("id,subject,body\n"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := idx.Rebuild(ctx)
	if !errors.Is(err, dataset.ErrNoExamples) {
		t.Fatalf("expected ErrNoExamples, got %v", err)
	}
	if idx.vectors.Load() != before {
		t.Error("failed rebuild must keep the previous index")
	}
}

func TestRebuild_picksUpChanges(t *testing.T) {
	dir := t.TempDir()
	idx := newTestIndexer(t, dir, 32, true)
	ctx := context.Background()
	if _, err := idx.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}
	examples := append(dataset.SampleExamples(), &dataset.Example{
		ID: "E100", Subject: "Password expiry", Body: "Reset your password today", Label: vector.LabelPhishing,
	})
	f, err := os.Create(idx.DatasetPath())
	if err != nil {
		t.Fatal(err)
	}
	if err := dataset.WriteCSV(f, examples); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	stats, err := idx.Rebuild(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Examples != len(examples) {
		t.Errorf("examples = %d", stats.Examples)
	}
	if _, ok := idx.vectors.Load().Lookup("E100"); !ok {
		t.Error("new example missing after rebuild")
	}
}

func TestRebuild_noSeed(t *testing.T) {
	idx := newTestIndexer(t, t.TempDir(), 16, false)
	if _, err := idx.Rebuild(context.Background()); err == nil {
		t.Fatal("expected error for missing dataset without seeding")
	}
	if idx.vectors.Load() != nil {
		t.Error("nothing should be published")
	}
}

func TestLoadSnapshot(t *testing.T) {
	dir := t.TempDir()
	first := newTestIndexer(t, dir, 48, true)
	if _, err := first.LoadSnapshot(); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist before first build, got %v", err)
	}
	if _, err := first.Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}

	second := newTestIndexer(t, dir, 48, true)
	stats, err := second.LoadSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Source != "snapshot" || stats.Examples != first.vectors.Load().Size() {
		t.Errorf("stats: %+v", stats)
	}
	if second.keywords.Load() == nil {
		t.Error("keyword index should be rebuilt from snapshot")
	}

	other := newTestIndexer(t, dir, 16, true)
	if _, err := other.LoadSnapshot(); !errors.Is(err, vector.ErrDimensionMismatch) {
		t.Errorf("expected dimension mismatch, got %v", err)
	}
}

func TestStart_servesSnapshotWhenRebuildFails(t *testing.T) {
	dir := t.TempDir()
	first := newTestIndexer(t, dir, 24, true)
	if _, err := first.Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(first.DatasetPath()); err != nil {
		t.Fatal(err)
	}

	second := newTestIndexer(t, dir, 24, false)
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if second.vectors.Load() == nil {
		t.Error("snapshot should be serving")
	}

	empty := newTestIndexer(t, t.TempDir(), 24, false)
	if err := empty.Start(context.Background()); err == nil {
		t.Error("Start without snapshot or dataset should fail")
	}
}

func TestNextRun(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, 3, 10, 1, 30, 0, 0, loc)
	if got := NextRun(now, 2, 0); !got.Equal(time.Date(2025, 3, 10, 2, 0, 0, 0, loc)) {
		t.Errorf("later today: %v", got)
	}
	if got := NextRun(now, 1, 30); !got.Equal(time.Date(2025, 3, 11, 1, 30, 0, 0, loc)) {
		t.Errorf("exactly now rolls to tomorrow: %v", got)
	}
	if got := NextRun(now, 0, 15); !got.Equal(time.Date(2025, 3, 11, 0, 15, 0, 0, loc)) {
		t.Errorf("earlier today rolls over: %v", got)
	}
}

func TestRunDaily_stopsOnCancel(t *testing.T) {
	idx := newTestIndexer(t, t.TempDir(), 8, true)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		idx.RunDaily(ctx, 3, 0)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunDaily did not return after cancel")
	}
}

func TestPreprocess(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Hello\n\t world  ", "Hello world"},
		{"Ｖｅｒｉｆｙ your account", "Verify your account"},
		{"pay\u200bpal log\u200din", "paypal login"},
		{"\ufeff\n\n", ""},
	}
	for _, tt := range tests {
		if got := Preprocess(tt.in); got != tt.want {
			t.Errorf("Preprocess(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
