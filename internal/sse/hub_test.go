package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/testutil"
)

func TestFormatSSEMessage(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{
			name:      "single line data",
			eventName: "guess_made",
			data:      `{"word":"rocket"}`,
			expected:  "event: guess_made\ndata: {\"word\":\"rocket\"}\n\n",
		},
		{
			name:      "multi-line data",
			eventName: "update",
			data:      "{\n  \"a\": 1\n}",
			expected:  "event: update\ndata: {\ndata:   \"a\": 1\ndata: }\n\n",
		},
		{
			name:      "empty data",
			eventName: "ping",
			data:      "",
			expected:  "event: ping\ndata: \n\n",
		},
		{
			name:      "data with carriage returns",
			eventName: "test",
			data:      "line1\r\nline2",
			expected:  "event: test\ndata: line1\ndata: line2\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatSSEMessage(tt.eventName, tt.data)
			if string(result) != tt.expected {
				t.Errorf("formatSSEMessage(%q, %q)\ngot:  %q\nwant: %q",
					tt.eventName, tt.data, string(result), tt.expected)
			}
		})
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"hello", []string{"hello"}},
		{"line1\nline2", []string{"line1", "line2"}},
		{"line1\n", []string{"line1"}},
		{"", []string{""}},
		{"line1\r\nline2\r\n", []string{"line1", "line2"}},
	}

	for _, tt := range tests {
		result := splitLines(tt.input)
		if strings.Join(result, "|") != strings.Join(tt.expected, "|") || len(result) != len(tt.expected) {
			t.Errorf("splitLines(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

// waitForClients polls because registration completes on the hub goroutine
func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", hub.ClientCount(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := NewHub("g1", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient("p1")
	if !hub.Register(client) {
		t.Fatal("Register returned false on a running hub")
	}
	waitForClients(t, hub, 1)

	hub.BroadcastEvent("test-event", "test data")

	select {
	case msg := <-client.send:
		expected := "event: test-event\ndata: test data\n\n"
		if string(msg) != expected {
			t.Errorf("client received %q, want %q", string(msg), expected)
		}
	case <-time.After(time.Second):
		t.Error("client did not receive message")
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub("g1", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient("p1")
	hub.Register(client)
	hub.Unregister(client)

	// Unregister is processed before any later request to the hub
	hub.Register(NewClient("p2"))
	waitForClients(t, hub, 1)
	if _, ok := <-client.send; ok {
		t.Error("unregistered client channel should be closed")
	}
}

func TestHub_RegisterAfterClose(t *testing.T) {
	hub := NewHub("g1", testutil.NopLogger())
	go hub.Run()
	hub.Close()
	hub.Close()

	if hub.Register(NewClient("p1")) {
		t.Error("Register succeeded on a closed hub")
	}
}

func TestHubManager_GetOrCreateHub(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	hub1 := manager.GetOrCreateHub("g1")
	if hub1 != manager.GetOrCreateHub("g1") {
		t.Error("GetOrCreateHub returned different hub for same game")
	}
	if manager.GetOrCreateHub("g2") == hub1 {
		t.Error("GetOrCreateHub returned same hub for different game")
	}
	if manager.GetHub("missing") != nil {
		t.Error("GetHub returned non-nil for unknown game")
	}

	manager.RemoveHub("g1")
	if manager.GetHub("g1") != nil {
		t.Error("hub still exists after RemoveHub")
	}
	manager.RemoveHub("missing")
}

func TestHubManager_CleanupEmptyHubs(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	manager.GetOrCreateHub("empty")
	busy := manager.GetOrCreateHub("busy")
	busy.Register(NewClient("p1"))
	waitForClients(t, busy, 1)

	if removed := manager.CleanupEmptyHubs(); removed != 1 {
		t.Errorf("CleanupEmptyHubs() = %d, want 1", removed)
	}
	if manager.GetHub("empty") != nil {
		t.Error("empty hub still exists after cleanup")
	}
	if manager.GetHub("busy") == nil {
		t.Error("busy hub was removed during cleanup")
	}
}

func TestServeSSEStreamsPublishedEvents(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()
	broadcaster := NewBroadcaster(manager, testutil.NopLogger())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeSSE(w, r, manager, "g1", "p1")
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("stream ended: %v", err)
			}
			if strings.HasPrefix(line, "event: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "event: "))
			}
		}
	}

	if name := readEvent(); name != "connected" {
		t.Fatalf("first event = %q, want connected", name)
	}

	// Events for other games are not delivered
	broadcaster.Publish(ctx, &model.Event{Type: model.EventPlayerLeft, GameID: "other"})
	broadcaster.Publish(ctx, &model.Event{
		Type:    model.EventGuessMade,
		GameID:  "g1",
		Payload: model.GuessMadePayload{PlayerID: "p2", Word: "orbit", Distance: 12},
	})

	if name := readEvent(); name != string(model.EventGuessMade) {
		t.Errorf("event = %q, want %s", name, model.EventGuessMade)
	}
}
