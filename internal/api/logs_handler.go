package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"incgraph/internal/logging"
)

const defaultLogBacklog = 100

// LogsHandler streams log entries over a websocket. The client may send
// {"level": "..."} at any time to change the minimum level.
type LogsHandler struct {
	Logger         *logging.Logger
	AuthToken      string
	AllowedOrigins []string
}

type logFilterMessage struct {
	Level string `json:"level"`
}

type levelFilter struct {
	mu    sync.RWMutex
	level logging.Level
}

func (f *levelFilter) Get() logging.Level {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.level
}

func (f *levelFilter) Set(level logging.Level) {
	f.mu.Lock()
	f.level = level
	f.mu.Unlock()
}

func (h *LogsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !requireWSToken(w, r, h.AuthToken, h.Logger) {
		return
	}
	if h.Logger == nil {
		writeWSError(w, r, nil, nil, wsError{
			Status:  http.StatusServiceUnavailable,
			Message: "log stream unavailable",
		})
		return
	}

	filter := &levelFilter{level: logging.LevelInfo}
	if level, ok := logging.ParseLevel(r.URL.Query().Get("level")); ok {
		filter.Set(level)
	}
	backlog := defaultLogBacklog
	if raw := r.URL.Query().Get("backlog"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			backlog = parsed
		}
	}

	live, cancel := h.Logger.Subscribe()
	conn, err := upgradeWebSocket(w, r, h.AllowedOrigins)
	if err != nil {
		cancel()
		logWSError(h.Logger, r, wsError{
			Status:  http.StatusBadRequest,
			Message: "websocket upgrade failed",
			Err:     err,
		})
		return
	}
	defer cancel()

	if backlog > 0 && h.Logger.Buffer() != nil {
		for _, entry := range h.Logger.Buffer().Tail(backlog, filter.Get()) {
			if err := conn.WriteJSON(entry); err != nil {
				_ = conn.Close()
				return
			}
		}
	}

	serveWSStream(r, wsStreamConfig[logging.LogEntry]{
		Conn:   conn,
		Output: live,
		Logger: h.Logger,
		BuildPayload: func(entry logging.LogEntry) (any, bool) {
			return entry, logging.AtLeast(entry.Level, filter.Get())
		},
	}, func(data []byte) {
		var message logFilterMessage
		if err := json.Unmarshal(data, &message); err != nil {
			return
		}
		if level, ok := logging.ParseLevel(message.Level); ok {
			filter.Set(level)
		}
	})
}
