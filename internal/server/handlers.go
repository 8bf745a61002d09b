package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/docqhq/docq-go/internal/extract"
	"github.com/docqhq/docq-go/internal/logging"
	"github.com/docqhq/docq-go/internal/query"
)

// handleUpload handles POST /api/upload. It accepts a multipart form with
// a "file" part plus optional "collection" and "embedding_model" fields,
// retains the raw file on disk, extracts its text, and runs the ingestion
// pipeline. The raw file is kept even when ingestion fails, so a broken
// extractor never loses the user's upload.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "file field is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "could not read uploaded file"})
		return
	}
	filename := filepath.Base(header.Filename)
	if filename == "" || filename == "." {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "filename is required"})
		return
	}

	if err := s.retainUpload(filename, data); err != nil {
		// Retention is best-effort; ingestion still proceeds.
		log.Warn("could not retain raw upload",
			slog.String("filename", filename),
			slog.Any("error", err),
		)
	}

	text, err := extract.Text(filename, data)
	if err != nil {
		s.metrics.ingestTotal.WithLabelValues("error").Inc()
		s.writeError(w, r, err)
		return
	}

	res, err := s.pipeline.Ingest(r.Context(), filename,
		text, r.FormValue("collection"), r.FormValue("embedding_model"))
	if err != nil {
		s.metrics.ingestTotal.WithLabelValues("error").Inc()
		s.writeError(w, r, err)
		return
	}

	s.metrics.ingestTotal.WithLabelValues("ok").Inc()
	s.metrics.ingestChunks.Add(float64(res.ChunksProcessed))
	log.Info("upload ingested",
		slog.String("filename", filename),
		slog.String("collection", res.Collection),
		slog.Int("chunks", res.ChunksProcessed),
		slog.Duration("duration", time.Since(start)),
	)
	writeJSON(w, http.StatusOK, uploadResponse{
		Filename:        filename,
		Collection:      res.Collection,
		ChunksProcessed: res.ChunksProcessed,
	})
}

// retainUpload writes the raw upload bytes under the uploads directory,
// prefixed with a random ID so repeated filenames never collide.
func (s *Server) retainUpload(filename string, data []byte) error {
	if err := os.MkdirAll(s.cfg.UploadsDir, 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	path := filepath.Join(s.cfg.UploadsDir, uuid.NewString()[:8]+"_"+filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// handleChat handles POST /api/chat: one retrieval-augmented question,
// one JSON answer with the context that produced it.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}

	resp, err := s.engine.Query(r.Context(), &query.Request{
		Query:            req.Query,
		Model:            req.Model,
		EmbeddingModel:   req.EmbeddingModel,
		CollectionFilter: req.CollectionFilter,
	})
	if err != nil {
		s.metrics.queryTotal.WithLabelValues("error").Inc()
		s.writeError(w, r, err)
		return
	}

	s.metrics.queryTotal.WithLabelValues("ok").Inc()
	s.metrics.queryDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, resp)
}

// handleModels handles GET /api/models by relaying the generation
// backend's model list.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if s.models == nil {
		writeJSON(w, http.StatusOK, map[string]any{"models": []any{}})
		return
	}
	models, err := s.models.ListModels(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

// handleCollectionsList handles GET /api/collections.
func (s *Server) handleCollectionsList(w http.ResponseWriter, r *http.Request) {
	infos, err := s.collections.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": infos})
}

// handleCollectionStats handles GET /api/collections/{name}.
func (s *Server) handleCollectionStats(w http.ResponseWriter, r *http.Request) {
	info, err := s.collections.Stats(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleCollectionCreate handles POST /api/collections.
func (s *Server) handleCollectionCreate(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}

	name, err := s.collections.Create(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": name})
}

// handleCollectionDelete handles DELETE /api/collections/{name}.
// Default collections are protected and return 400.
func (s *Server) handleCollectionDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.collections.Delete(r.Context(), r.PathValue("name")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCollectionClear handles POST /api/collections/{name}/clear.
func (s *Server) handleCollectionClear(w http.ResponseWriter, r *http.Request) {
	n, err := s.collections.Clear(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clearResponse{ChunksRemoved: n})
}

// handleCollectionsClearAll handles POST /api/collections/clear-all.
func (s *Server) handleCollectionsClearAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.collections.ClearAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clearResponse{ChunksRemoved: n})
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
