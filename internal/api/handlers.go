package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starford/perthro/internal/apperr"
	"github.com/starford/perthro/internal/models"
	"github.com/starford/perthro/internal/particleservice"
	"github.com/starford/perthro/internal/search"
	"github.com/starford/perthro/internal/sse"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *particleservice.Service
	engine *search.Engine
	broker *sse.Broker
}

// NewHandler creates a new Handler. broker may be nil; particle change
// events are then simply not broadcast.
func NewHandler(svc *particleservice.Service, engine *search.Engine, broker *sse.Broker) *Handler {
	return &Handler{svc: svc, engine: engine, broker: broker}
}

func (h *Handler) publish(kind, id string) {
	if h.broker != nil {
		h.broker.PublishParticleEvent(kind, id)
	}
}

func intQuery(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// CreateParticle handles POST /particles.
func (h *Handler) CreateParticle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateParticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Title == "" && req.Body == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title or body is required"))
		return
	}
	p, err := h.svc.Create(r.Context(), ownerFrom(r), req.Title, req.Body)
	if err != nil {
		slog.Error("create particle failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	h.publish("created", p.ID)
	writeJSON(w, http.StatusCreated, p)
}

// ListParticles handles GET /particles: a paginated listing, or a search
// when the query parameter is present (fuzzy=1 selects the edit-distance
// strategy).
func (h *Handler) ListParticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner := ownerFrom(r)
	page := intQuery(r, "page", 1)
	pageSize := intQuery(r, "page_size", search.DefaultPageSize)
	sortBy := q.Get("sort_by")
	query := q.Get("query")
	fuzzy := intQuery(r, "fuzzy", 0) != 0

	var (
		env *search.Envelope
		err error
	)
	if query != "" {
		env, err = h.engine.Search(owner, query, page, pageSize, sortBy, fuzzy)
	} else {
		env, err = h.engine.List(owner, page, pageSize, sortBy)
	}
	if err != nil {
		slog.Error("list particles failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, env)
}

// GetParticle handles GET /particles/{id}.
func (h *Handler) GetParticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.svc.Get(r.Context(), id, ownerFrom(r))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get particle failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateParticle handles PUT /particles/{id}.
func (h *Handler) UpdateParticle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	id := chi.URLParam(r, "id")
	var req UpdateParticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	p, err := h.svc.Update(r.Context(), id, ownerFrom(r), req.Title, req.Body)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("update particle failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	h.publish("updated", p.ID)
	writeJSON(w, http.StatusOK, p)
}

// DeleteParticle handles DELETE /particles/{id}.
func (h *Handler) DeleteParticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id, ownerFrom(r)); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("delete particle failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	h.publish("deleted", id)
	writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
}

// AllTags handles GET /particles/tags/all.
func (h *Handler) AllTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.AllTags(r.Context(), ownerFrom(r))
	if err != nil {
		slog.Error("all tags failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, TagsResponse{Tags: tags})
}

// ByTag handles GET /particles/by-tag/{tag}.
func (h *Handler) ByTag(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	env, err := h.engine.ByTag(ownerFrom(r), tag, intQuery(r, "page", 1), intQuery(r, "page_size", search.DefaultPageSize))
	if err != nil {
		slog.Error("by tag failed", slog.String("tag", tag), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, env)
}

// References handles GET /particles/{id}/references: the particles whose
// reference set points at the given id.
func (h *Handler) References(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	refs, err := h.svc.References(r.Context(), id, ownerFrom(r))
	if err != nil {
		slog.Error("references failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if refs == nil {
		refs = []models.Particle{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"references": refs})
}

// Count handles GET /particles/count.
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.Count(r.Context(), ownerFrom(r), r.URL.Query().Get("query"))
	if err != nil {
		slog.Error("count failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: count})
}
