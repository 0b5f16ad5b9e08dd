package api

import (
	"net/http"
	"strings"

	"incgraph/internal/event"
	"incgraph/internal/logging"
	"incgraph/internal/notify"
)

// EventsHandler streams UI messages to websocket clients. An optional event
// query parameter (comma separated) limits the stream to those names.
type EventsHandler struct {
	Bus            *event.Bus[notify.Message]
	Logger         *logging.Logger
	AuthToken      string
	AllowedOrigins []string
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !requireWSToken(w, r, h.AuthToken, h.Logger) {
		return
	}
	if h.Bus == nil {
		writeWSError(w, r, nil, h.Logger, wsError{
			Status:  http.StatusServiceUnavailable,
			Message: "event stream unavailable",
		})
		return
	}

	names := eventNames(r.URL.Query().Get("event"))
	output, cancel := h.Bus.SubscribeFiltered(func(message notify.Message) bool {
		if len(names) == 0 {
			return true
		}
		_, ok := names[message.Name]
		return ok
	})

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

	serveWSStream(r, wsStreamConfig[notify.Message]{
		Conn:   conn,
		Output: output,
		Logger: h.Logger,
	}, nil)
}

func eventNames(raw string) map[string]struct{} {
	names := map[string]struct{}{}
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names[name] = struct{}{}
		}
	}
	return names
}
