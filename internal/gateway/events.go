package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const eventWriteTimeout = 10 * time.Second

// handleEvents upgrades GET /v1/events to a websocket and streams every
// trigger event as a JSON text message. ?chat_id= narrows the stream to one
// chat.
func (g *Gateway) handleEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.hub == nil {
			http.Error(w, "trigger not loaded", http.StatusServiceUnavailable)
			return
		}
		chatID := r.URL.Query().Get("chat_id")

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: g.config.OriginPatterns})
		if err != nil {
			g.logger.Warn("event stream upgrade failed", "error", err)
			return
		}
		defer conn.CloseNow()

		events, cancel := g.hub.Subscribe(64)
		defer cancel()
		defer g.metrics.StreamOpened()()

		// The client only listens; CloseRead handles its close frame.
		ctx := conn.CloseRead(r.Context())
		g.logger.Debug("event stream opened", "request_id", requestID(r.Context()), "chat_id", chatID)

		for {
			select {
			case <-ctx.Done():
				return
			case <-g.done:
				_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			case e, ok := <-events:
				if !ok {
					_ = conn.Close(websocket.StatusNormalClosure, "")
					return
				}
				if chatID != "" && e.ChatID != chatID {
					continue
				}
				wctx, wcancel := context.WithTimeout(ctx, eventWriteTimeout)
				err := wsjson.Write(wctx, conn, e)
				wcancel()
				if err != nil {
					g.logger.Debug("event stream closed", "error", err)
					return
				}
				g.metrics.RecordStreamed()
			}
		}
	}
}
