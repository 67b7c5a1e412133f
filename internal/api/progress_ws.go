package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type wsMessage struct {
	Type  string         `json:"type"`
	RunID string         `json:"runId,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// ProgressWSHandler handles /v1/progress/ws. Clients send
// {"type":"subscribe","runId":"..."} and receive run.progress,
// run.completed and run.failed events for that run.
func (s *Server) ProgressWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	subs := map[string]chan RunEvent{}
	defer func() {
		for runID, ch := range subs {
			s.Broker.Unsubscribe(runID, ch)
		}
	}()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	var writeMu = make(chan struct{}, 1)
	writeMu <- struct{}{}
	write := func(v any) error {
		<-writeMu
		defer func() { writeMu <- struct{}{} }()
		return conn.WriteJSON(v)
	}

	// Keepalive
	go func() {
		ticker := time.NewTicker(20 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := write(wsMessage{Type: "ping"}); err != nil {
				return
			}
		}
	}()

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		switch msg.Type {
		case "ping":
			_ = write(wsMessage{Type: "pong"})
		case "subscribe":
			if msg.RunID == "" {
				_ = write(wsMessage{Type: "error", Data: map[string]any{"message": "runId required"}})
				continue
			}
			if _, ok := subs[msg.RunID]; ok {
				continue
			}
			ch := s.Broker.Subscribe(msg.RunID)
			subs[msg.RunID] = ch
			go func(runID string, c chan RunEvent) {
				for evt := range c {
					if err := write(wsMessage{Type: evt.Type, RunID: runID, Data: evt.Data}); err != nil {
						return
					}
				}
			}(msg.RunID, ch)
		case "unsubscribe":
			if ch, ok := subs[msg.RunID]; ok {
				delete(subs, msg.RunID)
				s.Broker.Unsubscribe(msg.RunID, ch)
			}
		}
	}
}
