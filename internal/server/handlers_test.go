package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/phishrag/internal/analyzer"
	"github.com/hyperjump/phishrag/internal/config"
	"github.com/hyperjump/phishrag/internal/embedding"
	"github.com/hyperjump/phishrag/internal/indexer"
	"github.com/hyperjump/phishrag/internal/keyword"
	"github.com/hyperjump/phishrag/internal/models"
	"github.com/hyperjump/phishrag/internal/search"
	"github.com/hyperjump/phishrag/internal/storage"
	"github.com/hyperjump/phishrag/internal/vector"
	"go.uber.org/zap"
)

type testServer struct {
	*Server
	handler http.Handler
	store   storage.Storage
}

func newTestServer(t *testing.T, build bool) *testServer {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{Dataset: config.DatasetConfig{Path: filepath.Join(dir, "phishing_examples.csv")}}
	cfg.Storage.DatabasePath = filepath.Join(dir, "history.db")
	cfg.Storage.SnapshotPath = filepath.Join(dir, "reference.snap")
	config.ApplyDefaults(cfg)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	emb := embedding.NewCachedEmbedder(embedding.NewHashEmbedder(128), 64, nil)
	vectors := &vector.Holder{}
	keywords := &keyword.Holder{}
	idx := indexer.NewIndexer(emb, vectors, keywords, cfg.Dataset, indexer.WithSnapshot(cfg.Storage.SnapshotPath))
	if build {
		if _, err := idx.Rebuild(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	engine := search.NewEngine(emb, vectors, keywords, cfg.Analysis)
	an := analyzer.New(engine, cfg.Analysis)
	srv := NewServer(an, engine, idx, vectors, keywords, store, cfg, zap.NewNop())
	return &testServer{Server: srv, handler: srv.Handler(), store: store}
}

func (ts *testServer) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatal(err)
		}
	}
	r := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, r)
	return w
}

func TestHandleAnalyze(t *testing.T) {
	ts := newTestServer(t, true)
	w := ts.do(t, http.MethodPost, "/api/v1/analyze", models.AnalyzeRequest{
		Email:     "Dear customer, click http://evil.example/login to verify your account and pay $200",
		SessionID: "s1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var out struct {
		Risk      string                   `json:"risk"`
		Label     string                   `json:"label"`
		Summary   string                   `json:"summary"`
		HistoryID string                   `json:"history_id"`
		Similar   []*models.SimilarExample `json:"similar"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Risk != "HIGH" || out.Label != "Phishing" {
		t.Errorf("risk/label: %s/%s", out.Risk, out.Label)
	}
	if !strings.Contains(out.Summary, "VERDICT:") {
		t.Errorf("summary: %q", out.Summary)
	}
	rec, err := ts.store.GetRecord(context.Background(), out.HistoryID)
	if err != nil {
		t.Fatalf("history not saved: %v", err)
	}
	if rec.SessionID != "s1" || rec.Risk != "HIGH" || rec.Response != out.Summary {
		t.Errorf("history record: %+v", rec)
	}
}

func TestHandleAnalyze_topKAndNoHistory(t *testing.T) {
	ts := newTestServer(t, true)
	email := "Urgent: verify your account now, your account has been suspended. Click http://malicious.example/login"
	decode := func(w *httptest.ResponseRecorder) (similar int, historyID string) {
		t.Helper()
		if w.Code != http.StatusOK {
			t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
		}
		var out struct {
			HistoryID string                   `json:"history_id"`
			Similar   []*models.SimilarExample `json:"similar"`
		}
		if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
			t.Fatal(err)
		}
		return len(out.Similar), out.HistoryID
	}

	defaultCount, _ := decode(ts.do(t, http.MethodPost, "/api/v1/analyze", models.AnalyzeRequest{Email: email}))
	if defaultCount == 0 {
		t.Fatal("expected similar examples by default")
	}
	n, _ := decode(ts.do(t, http.MethodPost, "/api/v1/analyze", models.AnalyzeRequest{Email: email, TopK: 1}))
	if n > 1 {
		t.Errorf("top_k=1 returned %d similar examples", n)
	}

	before, err := ts.store.CountRecords(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	_, id := decode(ts.do(t, http.MethodPost, "/api/v1/analyze", models.AnalyzeRequest{Email: email, NoHistory: true}))
	if id != "" {
		t.Errorf("no_history should not return a history id, got %q", id)
	}
	after, err := ts.store.CountRecords(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if after != before {
		t.Errorf("no_history recorded a record: %d -> %d", before, after)
	}
}

func TestHandleAnalyze_errors(t *testing.T) {
	ts := newTestServer(t, true)
	if w := ts.do(t, http.MethodPost, "/api/v1/analyze", "{bad json"); w.Code != http.StatusBadRequest {
		t.Errorf("bad json: got %d", w.Code)
	}
	if w := ts.do(t, http.MethodPost, "/api/v1/analyze", models.AnalyzeRequest{Email: "   "}); w.Code != http.StatusBadRequest {
		t.Errorf("empty email: got %d", w.Code)
	}

	notReady := newTestServer(t, false)
	w := notReady.do(t, http.MethodPost, "/api/v1/analyze", models.AnalyzeRequest{Email: "hello"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("index not built: got %d", w.Code)
	}
}

func TestHandleQuery(t *testing.T) {
	ts := newTestServer(t, true)
	w := ts.do(t, http.MethodPost, "/api/v1/query", models.SimilarityQuery{Text: "claim your gift card prize", Limit: 2})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var resp models.SimilarityResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) == 0 || len(resp.Results) > 2 {
		t.Fatalf("results: %d", len(resp.Results))
	}
	if resp.Results[0].ID != "E003" {
		t.Errorf("top result: %+v", resp.Results[0])
	}

	if w := ts.do(t, http.MethodPost, "/api/v1/query", models.SimilarityQuery{}); w.Code != http.StatusBadRequest {
		t.Errorf("empty query: got %d", w.Code)
	}
}

func TestHandleNeighbors(t *testing.T) {
	ts := newTestServer(t, true)
	item, ok := ts.vectors.Load().Lookup("E003")
	if !ok {
		t.Fatal("E003 not indexed")
	}
	w := ts.do(t, http.MethodPost, "/api/v1/neighbors", models.NeighborsRequest{Vector: item.Vector, K: 50})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var resp models.NeighborsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Dimensions != 128 {
		t.Errorf("dimensions: got %d", resp.Dimensions)
	}
	if len(resp.Neighbors) != ts.vectors.Load().Size() {
		t.Errorf("k above size should clamp, got %d neighbors", len(resp.Neighbors))
	}
	if resp.Neighbors[0].ID != "E003" || resp.Neighbors[0].Score < 0.999 {
		t.Errorf("top neighbor: %+v", resp.Neighbors[0])
	}
	for i := 1; i < len(resp.Neighbors); i++ {
		if resp.Neighbors[i].Score > resp.Neighbors[i-1].Score {
			t.Fatalf("neighbors not sorted at %d", i)
		}
	}

	if w := ts.do(t, http.MethodPost, "/api/v1/neighbors", models.NeighborsRequest{Vector: item.Vector, K: 0}); w.Code != http.StatusBadRequest {
		t.Errorf("k=0: got %d", w.Code)
	}
	if w := ts.do(t, http.MethodPost, "/api/v1/neighbors", models.NeighborsRequest{Vector: []float32{1, 0}, K: 1}); w.Code != http.StatusBadRequest {
		t.Errorf("wrong dimensions: got %d", w.Code)
	}

	empty := newTestServer(t, false)
	if w := empty.do(t, http.MethodPost, "/api/v1/neighbors", models.NeighborsRequest{Vector: []float32{1}, K: 1}); w.Code != http.StatusServiceUnavailable {
		t.Errorf("not ready: got %d", w.Code)
	}
}

func TestHandleHistory(t *testing.T) {
	ts := newTestServer(t, true)
	ctx := context.Background()
	for i, session := range []string{"a", "a", "b"} {
		rec := &models.HistoryRecord{SessionID: session, Email: fmt.Sprintf("email %d", i), Response: "r"}
		if err := ts.store.SaveRecord(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	w := ts.do(t, http.MethodGet, "/api/v1/history?session_id=a&limit=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: got %d", w.Code)
	}
	var list struct {
		Records []*models.HistoryRecord `json:"records"`
		Total   int                     `json:"total"`
	}
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 2 || len(list.Records) != 1 {
		t.Errorf("list: total=%d records=%d", list.Total, len(list.Records))
	}

	w = ts.do(t, http.MethodGet, "/api/v1/history/"+list.Records[0].ID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("get: got %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/v1/history/missing", nil); w.Code != http.StatusNotFound {
		t.Errorf("get missing: got %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/v1/history?limit=x", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: got %d", w.Code)
	}

	w = ts.do(t, http.MethodGet, "/api/v1/history/export?session_id=b", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export: got %d", w.Code)
	}
	var exported []storage.Exchange
	if err := json.NewDecoder(w.Body).Decode(&exported); err != nil {
		t.Fatal(err)
	}
	if len(exported) != 1 || exported[0].User != "email 2" {
		t.Errorf("export: %+v", exported)
	}

	w = ts.do(t, http.MethodDelete, "/api/v1/history?session_id=a", nil)
	var cleared map[string]int64
	if err := json.NewDecoder(w.Body).Decode(&cleared); err != nil {
		t.Fatal(err)
	}
	if cleared["removed"] != 2 {
		t.Errorf("clear: %v", cleared)
	}

	w = ts.do(t, http.MethodPost, "/api/v1/history/import?session_id=c", `[{"question": "q", "answer": "a"}]`)
	if w.Code != http.StatusCreated {
		t.Fatalf("import: got %d, body %s", w.Code, w.Body.String())
	}
	if n, _ := ts.store.CountRecords(ctx, "c"); n != 1 {
		t.Errorf("imported count = %d", n)
	}
	if w := ts.do(t, http.MethodPost, "/api/v1/history/import", "not json"); w.Code != http.StatusBadRequest {
		t.Errorf("bad import: got %d", w.Code)
	}
}

func TestHandleReindexAndStatus(t *testing.T) {
	ts := newTestServer(t, false)

	w := ts.do(t, http.MethodGet, "/health", nil)
	if !strings.Contains(w.Body.String(), "indexing") {
		t.Errorf("health before build: %s", w.Body.String())
	}

	w = ts.do(t, http.MethodPost, "/api/v1/reindex", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reindex: got %d, body %s", w.Code, w.Body.String())
	}
	var stats indexer.Stats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Examples != 5 || stats.Dimensions != 128 {
		t.Errorf("stats: %+v", stats)
	}

	w = ts.do(t, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var status map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status["ready"] != true || status["examples"] != float64(5) {
		t.Errorf("status: %v", status)
	}
	labels, _ := status["labels"].(map[string]interface{})
	if labels["Safe"] != float64(2) {
		t.Errorf("labels: %v", labels)
	}
	if _, ok := status["embedding_cache"].(map[string]interface{}); !ok {
		t.Errorf("embedding cache stats missing: %v", status["embedding_cache"])
	}
	if usage, _ := status["disk_usage_bytes"].(float64); usage <= 0 {
		t.Errorf("disk usage: %v", status["disk_usage_bytes"])
	}

	w = ts.do(t, http.MethodGet, "/health", nil)
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("health after build: %s", w.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", models.ErrInvalidQuery), http.StatusBadRequest},
		{analyzer.ErrEmptyEmail, http.StatusBadRequest},
		{vector.ErrDimensionMismatch, http.StatusBadRequest},
		{vector.ErrInvalidK, http.StatusBadRequest},
		{vector.ErrNonFiniteVector, http.StatusBadRequest},
		{storage.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("find similar examples: %w", search.ErrIndexNotReady), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
