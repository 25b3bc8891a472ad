package ws

import (
	"context"
	"math/rand"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/DoyleJ11/tablecloth/internal/hub"
	"github.com/DoyleJ11/tablecloth/internal/run"
	"github.com/DoyleJ11/tablecloth/internal/types"
	"github.com/DoyleJ11/tablecloth/internal/worker"
)

// Handler streams one run's progress: the history so far, then live events,
// then a normal close after the terminal event. A stream that ends without
// one is closed with StatusGoingAway.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("run")
		if id == "" {
			http.Error(w, "missing run", http.StatusBadRequest)
			return
		}

		reply := make(chan *run.Run, 1)
		lr, err := hub.Ask(r.Context(), h, hub.GetRun{ID: id, Reply: reply}, reply)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if lr == nil {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()

		out := make(chan worker.Event, run.MaxEvents)
		clientID := randID(6)

		select {
		case lr.Inbox() <- run.Join{ClientID: clientID, Outbox: out}:
		case <-lr.Context().Done():
			conn.Close(websocket.StatusGoingAway, "run discarded")
			return
		}
		defer func() {
			select {
			case lr.Inbox() <- run.Leave{ClientID: clientID}:
			case <-lr.Context().Done():
			}
		}()

		// The client only listens; CloseRead handles its close frames.
		ctx := conn.CloseRead(r.Context())
		var finished bool
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-out:
				if !ok {
					if finished {
						conn.Close(websocket.StatusNormalClosure, "end of stream")
					} else {
						// Log discarded or this client fell behind; re-join to replay.
						conn.Close(websocket.StatusGoingAway, "stream interrupted")
					}
					return
				}
				finished = ev.Terminal()
				wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				err := wsjson.Write(wctx, conn, types.FromEvent(id, ev))
				cancel()
				if err != nil {
					log.Debug("websocket write failed", zap.String("run", id), zap.Error(err))
					return
				}
			}
		}
	}
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
