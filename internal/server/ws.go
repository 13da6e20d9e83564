package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"legacylift/internal/pipeline"
)

const (
	progressWSWriteWait = 10 * time.Second
	progressWSPongWait  = 60 * time.Second
	progressWSPingEvery = (progressWSPongWait * 9) / 10
)

func newProgressWSUpgrader(policy originPolicy) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     policy.checkOrigin,
	}
}

type progressWSOutbound struct {
	Type    string          `json:"type"`
	Running bool            `json:"running,omitempty"`
	Event   *pipeline.Event `json:"event,omitempty"`
}

// handleProgressWS streams pipeline events for the caller's session until
// the client goes away.
func (h *Handler) handleProgressWS(w http.ResponseWriter, r *http.Request) {
	sid, slot := h.session(w, r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(progressWSPongWait)); err != nil {
		h.log.Debug("progress ws set read deadline failed", zap.Error(err))
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(progressWSPongWait))
	})

	events, unsubscribe := h.broker.Subscribe(sid)
	defer unsubscribe()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		ticker := time.NewTicker(progressWSPingEvery)
		defer ticker.Stop()

		write := func(out progressWSOutbound) error {
			if err := conn.SetWriteDeadline(time.Now().Add(progressWSWriteWait)); err != nil {
				return err
			}
			return conn.WriteJSON(out)
		}
		if err := write(progressWSOutbound{Type: "subscribed", Running: slot.Running()}); err != nil {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				if err := write(progressWSOutbound{Type: "progress", Event: &e}); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(progressWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Inbound messages are ignored; reading drives pong handling and close
	// detection.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	cancel()
	<-writerDone
}
