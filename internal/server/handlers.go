package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/phishrag/internal/analyzer"
	"github.com/hyperjump/phishrag/internal/embedding"
	"github.com/hyperjump/phishrag/internal/models"
	"github.com/hyperjump/phishrag/internal/search"
	"github.com/hyperjump/phishrag/internal/storage"
	"github.com/hyperjump/phishrag/internal/vector"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 10 << 20

const defaultHistoryPage = 50

type analyzeResponse struct {
	*analyzer.Analysis
	Summary   string `json:"summary"`
	HistoryID string `json:"history_id,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("analyze request", zap.Int("length", len(req.Email)),
		zap.String("session_id", req.SessionID), zap.Int("top_k", req.TopK))
	analysis, err := s.analyzer.AnalyzeTopK(r.Context(), req.Email, req.TopK)
	if err != nil {
		s.respondFailure(w, "analysis failed", err)
		return
	}
	resp := analyzeResponse{Analysis: analysis, Summary: analysis.Summary()}
	if req.NoHistory {
		s.respondJSON(w, http.StatusOK, resp)
		return
	}
	rec := &models.HistoryRecord{
		SessionID: req.SessionID,
		Email:     req.Email,
		Response:  resp.Summary,
		Risk:      string(analysis.Risk),
		Score:     analysis.Score,
		Label:     analysis.Label,
	}
	if err := s.storage.SaveRecord(r.Context(), rec); err != nil {
		s.logger.Warn("failed to save history", zap.Error(err))
	} else {
		resp.HistoryID = rec.ID
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var query models.SimilarityQuery
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("query request", zap.Int("limit", query.Limit))
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		s.respondFailure(w, "query failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleNeighbors(w http.ResponseWriter, r *http.Request) {
	var req models.NeighborsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	idx := s.vectors.Load()
	if idx == nil {
		s.respondFailure(w, "neighbors failed", search.ErrIndexNotReady)
		return
	}
	matches, err := idx.Query(req.Vector, req.K)
	if err != nil {
		s.respondFailure(w, "neighbors failed", err)
		return
	}
	resp := &models.NeighborsResponse{Neighbors: make([]*models.Neighbor, 0, len(matches)), Dimensions: idx.Dimensions()}
	for _, m := range matches {
		resp.Neighbors = append(resp.Neighbors, &models.Neighbor{
			ID:        m.Item.ID,
			Label:     m.Item.Label,
			Indicator: m.Item.Indicator,
			Text:      m.Item.Text,
			Score:     m.Score,
		})
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	session := q.Get("session_id")
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		s.respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, err := intParam(q.Get("limit"), defaultHistoryPage)
	if err != nil || limit < 0 {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	records, err := s.storage.ListRecords(r.Context(), session, offset, limit)
	if err != nil {
		s.respondFailure(w, "list history failed", err)
		return
	}
	total, err := s.storage.CountRecords(r.Context(), session)
	if err != nil {
		s.respondFailure(w, "count history failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"records": records, "total": total})
}

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.storage.GetRecord(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondFailure(w, "get history failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	session := r.URL.Query().Get("session_id")
	removed, err := s.storage.ClearRecords(r.Context(), session)
	if err != nil {
		s.respondFailure(w, "clear history failed", err)
		return
	}
	s.logger.Info("history cleared", zap.String("session_id", session), zap.Int64("removed", removed))
	s.respondJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

func (s *Server) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="history.json"`)
	if _, err := storage.ExportJSON(r.Context(), s.storage, w, r.URL.Query().Get("session_id")); err != nil {
		s.logger.Error("export history failed", zap.Error(err))
	}
}

func (s *Server) handleHistoryImport(w http.ResponseWriter, r *http.Request) {
	n, err := storage.ImportJSON(r.Context(), s.storage, http.MaxBytesReader(w, r.Body, maxBodyBytes), r.URL.Query().Get("session_id"))
	if err != nil {
		s.logger.Error("import history failed", zap.Error(err), zap.Int("imported", n))
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]int{"imported": n})
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	stats, err := s.indexer.Rebuild(r.Context())
	if err != nil {
		s.logger.Error("reindex failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.vectors.Load() == nil {
		status = "indexing"
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	historyCount, err := s.storage.CountRecords(ctx, "")
	if err != nil {
		s.logger.Error("status: count history failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"ready":           false,
		"history_records": historyCount,
	}
	if idx := s.vectors.Load(); idx != nil {
		resp["ready"] = true
		resp["examples"] = idx.Size()
		resp["dimensions"] = idx.Dimensions()
		resp["labels"] = idx.LabelCounts()
		resp["built_at"] = s.vectors.BuiltAt().UTC().Format(time.RFC3339)
	} else {
		resp["labels"] = map[vector.Label]int{}
	}
	if kw := s.keywords.Load(); kw != nil {
		if n, err := kw.DocCount(); err == nil {
			resp["keyword_documents"] = n
		}
	}
	if c, ok := s.engine.Embedder().(interface{ CacheStats() embedding.CacheStats }); ok {
		resp["embedding_cache"] = c.CacheStats()
	}

	cfg := s.config
	resp["config"] = map[string]interface{}{
		"embedding_provider":   cfg.Embedding.Provider,
		"embedding_dimensions": cfg.Embedding.Dimensions,
		"top_k":                cfg.Analysis.TopK,
		"min_similarity":       cfg.Analysis.MinSimilarity,
		"keyword_weight":       cfg.Analysis.KeywordWeight,
		"semantic_weight":      cfg.Analysis.SemanticWeight,
		"dataset_path":         cfg.Dataset.Path,
		"database_path":        cfg.Storage.DatabasePath,
		"snapshot_path":        cfg.Storage.SnapshotPath,
		"refresh_daily_at":     cfg.Refresh.DailyAt,
	}
	paths := append(storage.DatabaseFiles(cfg.Storage.DatabasePath),
		cfg.Storage.SnapshotPath, cfg.Storage.EmbeddingCachePath, cfg.Dataset.Path)
	if diskBytes, err := storage.DiskUsageBytes(paths...); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidQuery),
		errors.Is(err, analyzer.ErrEmptyEmail),
		errors.Is(err, vector.ErrDimensionMismatch),
		errors.Is(err, vector.ErrInvalidK),
		errors.Is(err, vector.ErrNonFiniteVector):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, search.ErrIndexNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondFailure(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

