// Package main runs a demo WebSocket client for solver progress events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type  string         `json:"type"`
	RunID string         `json:"runId,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	post := func(path string, body []byte) *http.Response {
		req, _ := http.NewRequest(http.MethodPost, base+path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-Id", "t_demo")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			log.Fatal(err)
		}
		return resp
	}

	// Create a generated dataset
	resp := post("/v1/datasets", []byte(`{"name":"demo","count":30,"seed":42}`))
	var ds struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ds); err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	log.Printf("Dataset ID: %s", ds.ID)

	// Kick off an async run
	resp = post("/v1/solve", []byte(fmt.Sprintf(`{"datasetId":"%s","numVehicles":3,"nGen":30,"async":true}`, ds.ID)))
	var run struct {
		RunID string `json:"runId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	log.Printf("Run ID: %s", run.RunID)

	// Connect WS and subscribe to progress
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/progress/ws"}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "subscribe", RunID: run.RunID}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			data, _ := json.Marshal(m.Data)
			log.Printf("WS <- %s: %s", m.Type, data)
			if m.Type == "run.completed" || m.Type == "run.failed" {
				return
			}
		}
	}()

	select {
	case <-time.After(30 * time.Second):
	case <-done:
	}
}
