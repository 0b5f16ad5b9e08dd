package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"incgraph/internal/api"
	"incgraph/internal/config"
	"incgraph/internal/event"
	"incgraph/internal/logging"
	"incgraph/internal/metrics"
	"incgraph/internal/notify"
	"incgraph/internal/session"
	"incgraph/internal/tree"
)

const shutdownTimeout = 5 * time.Second

// app wires the session, its sinks and the HTTP surface for one process.
type app struct {
	cfg      Config
	logger   *logging.Logger
	registry *metrics.Registry
	events   *event.Bus[notify.Message]
	view     *tree.View
	store    *config.Store
	session  *session.Session
	server   *http.Server
	listener net.Listener
}

func newApp(cfg Config, logger *logging.Logger, console io.Writer) (*app, error) {
	registry := &metrics.Registry{}
	view, err := tree.New(cfg.TreeSize)
	if err != nil {
		return nil, err
	}
	events := event.NewBus[notify.Message](context.Background(), event.BusOptions{
		Name:     "ui_events",
		Registry: registry,
		Logger:   logger,
	})

	var consoleSink notify.Sink
	if console != nil {
		consoleSink = notify.NewConsoleSink(console, !cfg.NoColor)
	}
	sink := notify.Multi(consoleSink, view, notify.NewBusSink(events))

	store := &config.Store{Logger: logger, Sink: sink}
	sess := session.New(session.Options{
		Sink:          sink,
		Logger:        logger,
		Registry:      registry,
		RelayCapacity: cfg.RelayCapacity,
		ScanWorkers:   cfg.ScanWorkers,
		MaxWatches:    cfg.MaxWatches,
	})

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, api.Dependencies{
		Session:   sess,
		Config:    store,
		Tree:      view,
		Events:    events,
		Registry:  registry,
		Logger:    logger,
		AuthToken: cfg.AuthToken,
	})

	listener, err := net.Listen("tcp", ":"+strconv.Itoa(cfg.Port))
	if err != nil {
		events.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		events:   events,
		view:     view,
		store:    store,
		session:  sess,
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: listener,
	}, nil
}

func (a *app) Addr() string {
	return a.listener.Addr().String()
}

// Serve runs until ctx is done or the HTTP server fails, then shuts every
// component down in dependency order.
func (a *app) Serve(ctx context.Context) error {
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		_ = a.session.Run(runCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- a.server.Serve(a.listener)
	}()
	a.logger.Info("incgraph listening", map[string]string{"addr": a.Addr()})

	if a.cfg.Root != "" {
		go a.initRoot(runCtx, a.cfg.Root)
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}

	coordinator := newShutdownCoordinator(a.logger)
	coordinator.Add("http", func(ctx context.Context) error {
		if err := a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	coordinator.Add("session", func(context.Context) error {
		return a.session.Close()
	})
	coordinator.Add("dispatcher", func(ctx context.Context) error {
		cancelRun()
		select {
		case <-dispatcherDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	coordinator.Add("events", func(context.Context) error {
		a.events.Close()
		return nil
	})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(err, coordinator.Run(shutdownCtx))
}

// initRoot starts the session on the root given at startup, the same way a
// POST to /api/session would.
func (a *app) initRoot(ctx context.Context, root string) {
	cfg, err := a.store.Load(root)
	if err != nil {
		a.logger.Warn("config unavailable, using defaults", map[string]string{
			"root":  root,
			"error": err.Error(),
		})
		cfg = config.Default()
	}
	result, err := a.session.Init(ctx, root, cfg.IgnoreList)
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, session.ErrClosed) {
			a.logger.Error("initial session failed", map[string]string{
				"root":  root,
				"error": err.Error(),
			})
		}
		return
	}
	a.logger.Info("watching", map[string]string{
		"root":     result.Root,
		"files":    strconv.Itoa(result.Files),
		"watching": strconv.FormatBool(result.Watching),
	})
}
