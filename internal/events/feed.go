package events

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Feed отдает события хаба клиенту через websocket, по одному JSON-сообщению на событие.
type Feed struct {
	hub          *Hub
	logger       *slog.Logger
	upgrader     websocket.Upgrader
	pingInterval time.Duration
}

func NewFeed(hub *Hub, logger *slog.Logger) *Feed {
	return &Feed{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		pingInterval: 10 * time.Second,
	}
}

func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту ошибкой
		f.logger.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	events, cancel := f.hub.Subscribe()
	defer cancel()

	// Входящие сообщения не нужны, читаем только чтобы заметить закрытие соединения.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(f.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := conn.WriteJSON(ev); err != nil {
				f.logger.Debug("websocket write failed", "err", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
