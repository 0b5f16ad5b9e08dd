package api

import (
	"net/http"

	"incgraph/internal/config"
	"incgraph/internal/event"
	"incgraph/internal/logging"
	"incgraph/internal/metrics"
	"incgraph/internal/notify"
	"incgraph/internal/tree"
)

type Dependencies struct {
	Session        Session
	Config         *config.Store
	Tree           *tree.View
	Events         *event.Bus[notify.Message]
	Registry       *metrics.Registry
	Logger         *logging.Logger
	AuthToken      string
	AllowedOrigins []string
}

func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	logger := deps.Logger.Component("api")
	rest := &RestHandler{
		Session:  deps.Session,
		Config:   deps.Config,
		Tree:     deps.Tree,
		Registry: deps.Registry,
		Logger:   logger,
	}
	wrap := func(handler http.Handler) http.Handler {
		return loggingMiddleware(logger, handler)
	}

	mux.Handle("/api/session", wrap(restHandler(deps.AuthToken, rest.handleSession)))
	mux.Handle("/api/files", wrap(restHandler(deps.AuthToken, rest.handleFiles)))
	mux.Handle("/api/config", wrap(restHandler(deps.AuthToken, rest.handleConfig)))
	mux.Handle("/metrics", wrap(restHandler(deps.AuthToken, rest.handleMetrics)))
	mux.Handle("/ws/events", wrap(&EventsHandler{
		Bus:            deps.Events,
		Logger:         logger,
		AuthToken:      deps.AuthToken,
		AllowedOrigins: deps.AllowedOrigins,
	}))
	mux.Handle("/ws/logs", wrap(&LogsHandler{
		Logger:         deps.Logger,
		AuthToken:      deps.AuthToken,
		AllowedOrigins: deps.AllowedOrigins,
	}))
}
