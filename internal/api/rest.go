package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"incgraph/internal/changeset"
	"incgraph/internal/config"
	"incgraph/internal/logging"
	"incgraph/internal/metrics"
	"incgraph/internal/session"
	"incgraph/internal/tree"
)

// Session is the part of session.Session the API drives.
type Session interface {
	Init(ctx context.Context, root string, ignore []string) (session.Result, error)
	Root() string
	Generation() uint64
	Watching() bool
}

type RestHandler struct {
	Session  Session
	Config   *config.Store
	Tree     *tree.View
	Registry *metrics.Registry
	Logger   *logging.Logger
}

type sessionRequest struct {
	Root string `json:"root"`
}

type sessionStatus struct {
	Root       string `json:"root"`
	Generation uint64 `json:"generation"`
	Watching   bool   `json:"watching"`
}

type filesResponse struct {
	Root  string                   `json:"root"`
	Files []changeset.FileMetadata `json:"files"`
	Stats tree.Stats               `json:"stats"`
}

func (h *RestHandler) handleSession(w http.ResponseWriter, r *http.Request) *apiError {
	if h.Session == nil {
		return &apiError{Status: http.StatusServiceUnavailable, Message: "session unavailable"}
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, sessionStatus{
			Root:       h.Session.Root(),
			Generation: h.Session.Generation(),
			Watching:   h.Session.Watching(),
		})
		return nil
	case http.MethodPost:
	default:
		return methodNotAllowed(w, "GET, POST")
	}

	var request sessionRequest
	if err := decodeJSON(r, &request); err != nil {
		return err
	}
	root := strings.TrimSpace(request.Root)
	if root == "" {
		return &apiError{Status: http.StatusBadRequest, Message: "root is required"}
	}

	var ignore []string
	if h.Config != nil {
		cfg, err := h.Config.Load(root)
		if err != nil {
			h.Logger.Warn("config unavailable, using defaults", map[string]string{
				"root":  root,
				"error": err.Error(),
			})
		} else {
			ignore = cfg.IgnoreList
		}
	}

	result, err := h.Session.Init(r.Context(), root, ignore)
	if err != nil {
		return sessionError(err)
	}
	writeJSON(w, http.StatusOK, result)
	return nil
}

func sessionError(err error) *apiError {
	switch {
	case errors.Is(err, session.ErrRootRequired):
		return &apiError{Status: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, session.ErrClosed):
		return &apiError{Status: http.StatusServiceUnavailable, Message: err.Error()}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &apiError{Status: http.StatusServiceUnavailable, Message: "initial scan interrupted"}
	default:
		return &apiError{Status: http.StatusInternalServerError, Message: err.Error()}
	}
}

func (h *RestHandler) handleFiles(w http.ResponseWriter, r *http.Request) *apiError {
	if r.Method != http.MethodGet {
		return methodNotAllowed(w, "GET")
	}
	if h.Tree == nil {
		return &apiError{Status: http.StatusServiceUnavailable, Message: "file view unavailable"}
	}
	response := filesResponse{
		Files: h.Tree.Snapshot(),
		Stats: h.Tree.Stats(),
	}
	if h.Session != nil {
		response.Root = h.Session.Root()
	}
	writeJSON(w, http.StatusOK, response)
	return nil
}

func (h *RestHandler) handleConfig(w http.ResponseWriter, r *http.Request) *apiError {
	if h.Config == nil || h.Session == nil {
		return &apiError{Status: http.StatusServiceUnavailable, Message: "config unavailable"}
	}
	root := h.Session.Root()
	if root == "" {
		return &apiError{Status: http.StatusConflict, Message: "no active root"}
	}

	switch r.Method {
	case http.MethodGet:
		cfg, err := h.Config.Load(root)
		if err != nil {
			return &apiError{Status: http.StatusInternalServerError, Message: err.Error()}
		}
		writeJSON(w, http.StatusOK, cfg)
		return nil
	case http.MethodPut:
		var cfg config.ConfigTree
		if err := decodeJSON(r, &cfg); err != nil {
			return err
		}
		if err := h.Config.Save(root, cfg); err != nil {
			if errors.Is(err, config.ErrInvalid) {
				return &apiError{Status: http.StatusBadRequest, Message: err.Error()}
			}
			return &apiError{Status: http.StatusInternalServerError, Message: err.Error()}
		}
		writeJSON(w, http.StatusOK, cfg)
		return nil
	default:
		return methodNotAllowed(w, "GET, PUT")
	}
}

func (h *RestHandler) handleMetrics(w http.ResponseWriter, r *http.Request) *apiError {
	if r.Method != http.MethodGet {
		return methodNotAllowed(w, "GET")
	}
	registry := h.Registry
	if registry == nil {
		registry = metrics.Default
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	if err := registry.WritePrometheus(w); err != nil {
		h.Logger.Warn("metrics write failed", map[string]string{"error": err.Error()})
	}
	return nil
}
