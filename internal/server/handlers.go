package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/memoro/internal/apperr"
	"github.com/hyperjump/memoro/internal/keyword"
	"github.com/hyperjump/memoro/internal/models"
	"github.com/hyperjump/memoro/internal/storage"
)

type createNoteRequest struct {
	Content   string   `json:"content"`
	Summary   string   `json:"summary"`
	Tags      []string `json:"tags"`
	Embedding any      `json:"embedding"`
	// Enrich generates summary, tags and embedding instead of taking them from the request.
	Enrich bool `json:"enrich"`
}

type reembedRequest struct {
	Embedding any `json:"embedding"`
}

type keywordRequest struct {
	models.KeywordQuery
	Fuzzy bool `json:"fuzzy"`
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctx := r.Context()
	if req.Enrich {
		note, err := s.notes.Capture(ctx, req.Content)
		if err != nil {
			s.fail(w, "capture note", err)
			return
		}
		s.respondJSON(w, http.StatusCreated, map[string]int64{"id": note.ID})
		return
	}

	in := models.NoteInput{Content: req.Content, Summary: req.Summary, Tags: req.Tags}
	if req.Embedding != nil {
		vec, err := s.validator.ValidateRaw(req.Embedding)
		if err != nil {
			s.logger.Warn("ignoring invalid embedding in request", zap.Error(err))
		}
		in.Embedding = vec
	}
	id, err := s.notes.Create(ctx, in)
	if err != nil {
		s.fail(w, "create note", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	list, err := s.notes.List(r.Context())
	if err != nil {
		s.fail(w, "list notes", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"notes": list, "total": len(list)})
}

func (s *Server) handleListByDay(w http.ResponseWriter, r *http.Request) {
	groups, err := s.notes.ListGroupedByDay(r.Context())
	if err != nil {
		s.fail(w, "list notes by day", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"days": groups})
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		s.fail(w, "get note", err)
		return
	}
	note, err := s.notes.Get(r.Context(), id)
	if err != nil {
		s.fail(w, "get note", err)
		return
	}
	s.respondJSON(w, http.StatusOK, note)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		s.fail(w, "update note", err)
		return
	}
	var upd models.NoteUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.notes.Update(r.Context(), id, upd); err != nil {
		s.fail(w, "update note", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		s.fail(w, "delete note", err)
		return
	}
	if err := s.notes.Delete(r.Context(), id); err != nil {
		s.fail(w, "delete note", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleReembed(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		s.fail(w, "re-embed note", err)
		return
	}
	var req reembedRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	var vec []float32
	if req.Embedding != nil {
		if vec, err = s.validator.ValidateRaw(req.Embedding); err != nil {
			s.fail(w, "re-embed note", err)
			return
		}
	}
	if err := s.notes.Reembed(r.Context(), id, vec); err != nil {
		s.fail(w, "re-embed note", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "embedded"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var q models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", q.Query), zap.Int("top_k", q.TopK))
	resp, err := s.engine.Query(r.Context(), &q, s.store)
	if err != nil {
		s.fail(w, "search", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleKeywordSearch(w http.ResponseWriter, r *http.Request) {
	var req keywordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var opts *keyword.SearchOptions
	if req.Fuzzy {
		opts = &keyword.SearchOptions{Fuzzy: true}
	}
	resp, err := s.engine.QueryKeyword(r.Context(), &req.KeywordQuery, opts, s.store)
	if err != nil {
		s.fail(w, "keyword search", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.fail(w, "status", err)
		return
	}
	resp := map[string]any{
		"notes":          stats.Notes,
		"with_embedding": stats.WithEmbedding,
		"index":          s.engine.IndexInfo(),
	}
	if s.version != "" {
		resp["version"] = s.version
	}
	if len(s.diskPaths) > 0 {
		if n, err := storage.DiskUsageBytes(s.diskPaths...); err == nil {
			resp["disk_usage_bytes"] = n
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func noteID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid note id", goerr.V("id", raw))
	}
	return id, nil
}

// fail maps err onto the error taxonomy. Server-side failures are logged at error level.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected", zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
