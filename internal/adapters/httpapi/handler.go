// Package httpapi exposes the spy cat and mission operations over JSON HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"spycats/internal/core"
	"spycats/internal/dossier"
	"spycats/pkg/domain"
)

const (
	catsPath     = "/api/v1/spycats"
	missionsPath = "/api/v1/missions"
	dossiersPath = "/api/v1/dossiers"
)

// Service is the subset of core.Service used by the handler.
type Service interface {
	CreateCat(ctx context.Context, draft domain.CatDraft) (domain.SpyCat, domain.Result, error)
	UpdateCat(ctx context.Context, id string, patch domain.CatPatch) (domain.SpyCat, domain.Result, error)
	ReplaceCat(ctx context.Context, id string, draft domain.CatDraft) (domain.SpyCat, domain.Result, error)
	DeleteCat(ctx context.Context, id string) (domain.Result, error)
	GetCat(ctx context.Context, id string) (domain.SpyCat, error)
	ListCats(ctx context.Context) ([]domain.SpyCat, error)
	CreateMission(ctx context.Context, draft domain.MissionDraft) (domain.Mission, domain.Result, error)
	UpdateMission(ctx context.Context, id string, patch domain.MissionPatch) (domain.Mission, domain.Result, error)
	DeleteMission(ctx context.Context, id string) (domain.Result, error)
	GetMission(ctx context.Context, id string) (domain.Mission, error)
	ListMissions(ctx context.Context) ([]domain.Mission, error)
}

// Dossiers archives mission snapshots.
type Dossiers interface {
	Archive(ctx context.Context, missionID string) (dossier.Entry, error)
	List(ctx context.Context, missionID string) ([]dossier.Entry, error)
}

var _ Service = (*core.Service)(nil)

// Option configures a Handler.
type Option func(*Handler)

// WithDossiers enables the dossier endpoints.
func WithDossiers(d Dossiers) Option {
	return func(h *Handler) { h.Dossiers = d }
}

// WithMetricsHandler serves the given handler at /metrics.
func WithMetricsHandler(m http.Handler) Option {
	return func(h *Handler) { h.Metrics = m }
}

// WithLogger sets the logger used for unexpected failures.
func WithLogger(logger core.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.Logger = logger
		}
	}
}

// Handler routes API requests to the service.
type Handler struct {
	Service  Service
	Dossiers Dossiers
	Metrics  http.Handler
	Logger   core.Logger
}

// NewHandler constructs the API handler.
func NewHandler(svc Service, opts ...Option) *Handler {
	h := &Handler{Service: svc, Logger: discardLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		writeError(w, http.StatusInternalServerError, apiError{Code: "unavailable", Message: "service not configured"})
		return
	}
	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/healthz":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case path == "/metrics" && h.Metrics != nil:
		h.Metrics.ServeHTTP(w, r)
	case path == catsPath:
		h.handleCats(w, r)
	case strings.HasPrefix(path, catsPath+"/"):
		id := strings.TrimPrefix(path, catsPath+"/")
		if id == "" || strings.Contains(id, "/") {
			notFound(w)
			return
		}
		h.handleCat(w, r, id)
	case path == missionsPath:
		h.handleMissions(w, r)
	case strings.HasPrefix(path, missionsPath+"/"):
		segments := strings.Split(strings.TrimPrefix(path, missionsPath+"/"), "/")
		switch {
		case len(segments) == 1 && segments[0] != "":
			h.handleMission(w, r, segments[0])
		case len(segments) == 2 && segments[0] != "" && segments[1] == "dossier" && h.Dossiers != nil:
			h.handleArchive(w, r, segments[0])
		default:
			notFound(w)
		}
	case path == dossiersPath && h.Dossiers != nil:
		h.handleListDossiers(w, r)
	default:
		notFound(w)
	}
}

func (h *Handler) handleCats(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cats, err := h.Service.ListCats(r.Context())
		if err != nil {
			h.fail(w, err)
			return
		}
		out := make([]catResponse, 0, len(cats))
		for _, c := range cats {
			out = append(out, newCatResponse(c))
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var draft domain.CatDraft
		if !decodeBody(w, r, &draft) {
			return
		}
		cat, _, err := h.Service.CreateCat(r.Context(), draft)
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newCatResponse(cat))
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) handleCat(w http.ResponseWriter, r *http.Request, id string) {
	var (
		cat domain.SpyCat
		err error
	)
	switch r.Method {
	case http.MethodGet:
		cat, err = h.Service.GetCat(r.Context(), id)
	case http.MethodPatch:
		var patch domain.CatPatch
		if !decodeBody(w, r, &patch) {
			return
		}
		cat, _, err = h.Service.UpdateCat(r.Context(), id, patch)
	case http.MethodPut:
		var draft domain.CatDraft
		if !decodeBody(w, r, &draft) {
			return
		}
		cat, _, err = h.Service.ReplaceCat(r.Context(), id, draft)
	case http.MethodDelete:
		if _, err := h.Service.DeleteCat(r.Context(), id); err != nil {
			h.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	default:
		methodNotAllowed(w)
		return
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCatResponse(cat))
}

func (h *Handler) handleMissions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		missions, err := h.Service.ListMissions(r.Context())
		if err != nil {
			h.fail(w, err)
			return
		}
		out := make([]missionResponse, 0, len(missions))
		for _, m := range missions {
			out = append(out, newMissionResponse(m))
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var draft domain.MissionDraft
		if !decodeBody(w, r, &draft) {
			return
		}
		mission, _, err := h.Service.CreateMission(r.Context(), draft)
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newMissionResponse(mission))
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) handleMission(w http.ResponseWriter, r *http.Request, id string) {
	var (
		mission domain.Mission
		err     error
	)
	switch r.Method {
	case http.MethodGet:
		mission, err = h.Service.GetMission(r.Context(), id)
	case http.MethodPatch, http.MethodPut:
		var patch domain.MissionPatch
		if !decodeBody(w, r, &patch) {
			return
		}
		mission, _, err = h.Service.UpdateMission(r.Context(), id, patch)
	case http.MethodDelete:
		if _, err := h.Service.DeleteMission(r.Context(), id); err != nil {
			h.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	default:
		methodNotAllowed(w)
		return
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newMissionResponse(mission))
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	entry, err := h.Dossiers.Archive(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"dossier": entry})
}

func (h *Handler) handleListDossiers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	entries, err := h.Dossiers.List(r.Context(), r.URL.Query().Get("mission"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dossiers": entries})
}

// decodeBody treats an empty body as an empty object.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeError(w, http.StatusBadRequest, apiError{Code: "malformed_json", Message: err.Error()})
	return false
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		h.Logger.Error("request failed", "error", err)
	}
	writeError(w, status, body)
}

type discardLogger struct{}

func (discardLogger) Debug(string, ...any) {}
func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}
