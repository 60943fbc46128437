package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestHubBroadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(ctx)
	go hub.Run()
	defer hub.Stop()

	client := NewClient(ctx, hub, nil, "test-client", nil)
	hub.register <- client

	// Wait for registration to be processed.
	deadline := time.After(time.Second)
	for hub.ClientCount() != 1 {
		select {
		case <-deadline:
			t.Fatal("client never registered")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := hub.BroadcastChange(TypeAttackStarted, map[string]int{"id": 42}); err != nil {
		t.Fatalf("BroadcastChange: %v", err)
	}

	select {
	case data := <-client.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode broadcast: %v", err)
		}
		if msg.Type != TypeAttackStarted {
			t.Errorf("expected type %s, got %s", TypeAttackStarted, msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("broadcast never reached the client")
	}
}

func TestHubUnregisterOnStop(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(ctx)
	go hub.Run()

	client := NewClient(ctx, hub, nil, "test-client", nil)
	hub.register <- client
	for hub.ClientCount() != 1 {
		time.Sleep(time.Millisecond)
	}

	hub.Stop()
	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients after Stop, got %d", hub.ClientCount())
	}
	if _, ok := <-client.send; ok {
		t.Error("client send channel must be closed on Stop")
	}
}

func TestServeWSEndToEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(ctx)
	go hub.Run()
	defer hub.Stop()

	handler := NewHandler(ctx, hub, nil, nil)
	srv := httptest.NewServer(http.HandlerFunc(handler.ServeWS))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	for hub.ClientCount() != 1 {
		time.Sleep(5 * time.Millisecond)
	}

	if err := hub.BroadcastChange(TypeVocabularyUpdated, []string{"work"}); err != nil {
		t.Fatalf("BroadcastChange: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != TypeVocabularyUpdated {
		t.Errorf("expected type %s, got %s", TypeVocabularyUpdated, msg.Type)
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:5173"})

	allowed := httptest.NewRequest("GET", "/ws/changes", nil)
	allowed.Header.Set("Origin", "http://localhost:5173")
	if !check(allowed) {
		t.Error("configured origin must be allowed")
	}

	denied := httptest.NewRequest("GET", "/ws/changes", nil)
	denied.Header.Set("Origin", "http://evil.example")
	if check(denied) {
		t.Error("unknown origin must be rejected")
	}

	// No Origin header means a non-browser client.
	if !check(httptest.NewRequest("GET", "/ws/changes", nil)) {
		t.Error("requests without an Origin header must be allowed")
	}

	if !originChecker([]string{"*"})(denied) {
		t.Error("wildcard must allow any origin")
	}
}
