package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"leadboard/internal/app"
	"leadboard/internal/demand"
)

const heartbeatInterval = 30 * time.Second

type boardEvent struct {
	Loading bool             `json:"loading"`
	Demands []DemandResponse `json:"demands"`
}

// registerEvents streams the demand list as server-sent events. Every snapshot of the signed-in
// user's demands is pushed as one "demands" event; slow clients only see the latest snapshot.
func registerEvents(r chi.Router, basePath string, ws *app.Workspace, log *zap.Logger) {
	r.Get(path.Join(basePath, "events"), func(w http.ResponseWriter, req *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			respondStatusError(w, newAPIError(http.StatusInternalServerError, "internal_error", "streaming unsupported", nil))
			return
		}
		if _, authErr := userIDFromContext(req.Context()); authErr != nil {
			respondStatusError(w, authErr)
			return
		}

		updates := make(chan demand.State, 1)
		push := func(s demand.State) {
			for {
				select {
				case updates <- s:
					return
				default:
				}
				select {
				case <-updates:
				default:
				}
			}
		}
		cancel := ws.Demands.Subscribe(push)
		defer cancel()
		push(ws.Demands.State())

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		fmt.Fprintf(w, "event: connected\ndata: {\"userId\":%q}\n\n", ws.UserID())
		flusher.Flush()

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()
		for {
			select {
			case <-req.Context().Done():
				return
			case s := <-updates:
				data, err := json.Marshal(boardEvent{Loading: s.Loading, Demands: mapDemands(s.Demands)})
				if err != nil {
					log.Warn("encode board event", zap.Error(err))
					continue
				}
				fmt.Fprintf(w, "event: demands\ndata: %s\n\n", data)
				flusher.Flush()
			case <-heartbeat.C:
				fmt.Fprint(w, ": keepalive\n\n")
				flusher.Flush()
			}
		}
	})
}
