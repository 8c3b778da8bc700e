package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/websocket"

	"github.com/httptimesync/httptimesync/internal/config"
	"github.com/httptimesync/httptimesync/internal/fetch"
	"github.com/httptimesync/httptimesync/internal/state"
	"github.com/httptimesync/httptimesync/internal/system"
)

type staticSource struct{}

func (staticSource) Fetch(ctx context.Context, urls []string) (fetch.Result, error) {
	return fetch.Result{Time: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), URL: urls[0]}, nil
}

type fakeLogs []string

func (f fakeLogs) Tail(n int) ([]string, error) { return f, nil }

func newTestServer(logs LogSource) (*Server, *state.Machine) {
	m := state.New(staticSource{}, &system.DryRunClock{}, nil, zerolog.Nop(), state.Options{
		Targets: []string{"https://one/"},
		RunOnce: true,
	})
	return NewServer(m, "test-version", logs, zerolog.Nop()), m
}

func TestStatusEndpoint(t *testing.T) {
	s, _ := newTestServer(nil)

	req := httptest.NewRequest("GET", "/api/status", nil)
	w := httptest.NewRecorder()
	s.handleStatus(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	var result map[string]any
	json.NewDecoder(w.Body).Decode(&result)
	if result["version"] != "test-version" {
		t.Errorf("expected test-version, got %v", result["version"])
	}
	if result["state"] != "idle" || result["mode"] != "once" {
		t.Errorf("unexpected status %v", result)
	}
}

func TestGetConfigEndpointRedactsWebhook(t *testing.T) {
	cfg := config.Defaults()
	cfg.NotifyWebhookURL = "https://hooks.example/secret-token"
	cfg.ApplyEnv(func(string) (string, bool) { return "", false })

	s, _ := newTestServer(nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/config", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "secret-token") {
		t.Errorf("webhook URL leaked: %s", w.Body.String())
	}
}

func TestLogsEndpoint(t *testing.T) {
	s, _ := newTestServer(fakeLogs{"line one", "line two"})
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/logs", nil))

	var lines []string
	json.NewDecoder(w.Body).Decode(&lines)
	if len(lines) != 2 || lines[1] != "line two" {
		t.Errorf("unexpected lines %v", lines)
	}
}

func TestLogsEndpointWithoutSource(t *testing.T) {
	s, _ := newTestServer(nil)
	w := httptest.NewRecorder()
	s.handleLogs(w, httptest.NewRequest("GET", "/api/logs", nil))
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("expected empty list, got %q", w.Body.String())
	}
}

func TestWebSocketReceivesStateChanges(t *testing.T) {
	s, m := newTestServer(nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	ws, err := websocket.Dial(wsURL, "", srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.hub.Clients() != 1 {
		t.Fatal("websocket client never registered")
	}

	if err := m.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]any
	if err := websocket.JSON.Receive(ws, &msg); err != nil {
		t.Fatal(err)
	}
	if msg["type"] != "state" || msg["state"] != "syncing" {
		t.Errorf("expected syncing state event first, got %v", msg)
	}
}

func TestBroadcastDropsStalledClient(t *testing.T) {
	s, _ := newTestServer(nil)
	s.hub.WriteTimeout = 50 * time.Millisecond
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	ws, err := websocket.Dial(wsURL, "", srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.hub.Clients() != 1 {
		t.Fatal("websocket client never registered")
	}

	// The client never reads, so the socket buffers fill and writes stall.
	payload := map[string]string{"pad": strings.Repeat("x", 1<<20)}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 256 && s.hub.Clients() > 0; i++ {
			s.hub.Broadcast(payload)
		}
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("broadcast blocked on a client that stopped reading")
	}
	if n := s.hub.Clients(); n != 0 {
		t.Errorf("expected stalled client to be dropped, got %d clients", n)
	}
}
