package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"rftdraft/internal/gateway/repository/task"
	"rftdraft/internal/logger"
)

const (
	watchWriteWait = 10 * time.Second
	watchPongWait  = 60 * time.Second
	watchPingEvery = (watchPongWait * 9) / 10
)

var watchUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type watchMessage struct {
	Type    string       `json:"type"`
	Task    *task.Record `json:"task,omitempty"`
	Message string       `json:"message,omitempty"`
}

// HandleWatch serves GET /api/tasks/{id}/watch. It pushes the record each
// time it changes and closes once the task reaches a terminal status.
func (h *TaskHandler) HandleWatch(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeTaskError(w, r, err)
		return
	}

	conn, err := watchUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	log := logger.FromContext(r.Context()).With(zap.String("task_id", id))

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(watchPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(watchPongWait))
	})
	// Drain client frames so control messages are processed; any read
	// error means the client is gone.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	write := func(msg watchMessage) bool {
		if err := conn.SetWriteDeadline(time.Now().Add(watchWriteWait)); err != nil {
			return false
		}
		return conn.WriteJSON(msg) == nil
	}

	if !write(watchMessage{Type: "task", Task: &rec}) {
		return
	}
	last := rec
	poll := time.NewTicker(h.pollInterval)
	defer poll.Stop()
	ping := time.NewTicker(watchPingEvery)
	defer ping.Stop()

	for !last.Status.Terminal() {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(watchWriteWait)); err != nil {
				return
			}
		case <-poll.C:
			cur, err := h.store.Get(ctx, id)
			if err != nil {
				log.Warn("task watch poll failed", zap.Error(err))
				write(watchMessage{Type: "error", Message: err.Error()})
				return
			}
			if cur.UpdatedAt.Equal(last.UpdatedAt) && cur.Status == last.Status {
				continue
			}
			last = cur
			if !write(watchMessage{Type: "task", Task: &cur}) {
				return
			}
		}
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(last.Status)),
		time.Now().Add(watchWriteWait))
}
