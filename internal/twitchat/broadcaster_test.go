package twitchat

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SecareLupus/twitchat-bridge/internal/obs"
)

// fakeSender records the last request and returns canned results.
type fakeSender struct {
	mu        sync.Mutex
	lastType  string
	lastData  map[string]any
	resp      json.RawMessage
	err       error
	ensureErr error
}

func (f *fakeSender) SendRequest(requestType string, data any, timeout time.Duration) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastType = requestType
	f.lastData, _ = data.(map[string]any)
	return f.resp, f.err
}

func (f *fakeSender) EnsureConnection() error {
	return f.ensureErr
}

func (f *fakeSender) last() (string, map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastType, f.lastData
}

func TestBroadcast_EventTypeFormatting(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
		action    string
		wantEvent string
	}{
		{"namespaced", "twitchat", "GREET_FEED_READ_ALL", "twitchat:GREET_FEED_READ_ALL"},
		{"custom namespace", "myoverlay", "PING", "myoverlay:PING"},
		{"fully qualified passes through", "twitchat", "other:EVENT", "other:EVENT"},
		{"whitespace trimmed", "twitchat", "  PING  ", "twitchat:PING"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			b := NewBroadcaster(sender, tt.namespace, nil)

			if _, err := b.Broadcast(tt.action, nil, 0); err != nil {
				t.Fatalf("Broadcast failed: %v", err)
			}

			reqType, data := sender.last()
			if reqType != "BroadcastCustomEvent" {
				t.Errorf("request type = %q, want BroadcastCustomEvent", reqType)
			}
			if data["eventType"] != tt.wantEvent {
				t.Errorf("eventType = %v, want %q", data["eventType"], tt.wantEvent)
			}
		})
	}
}

func TestBroadcast_EmptyAction(t *testing.T) {
	b := NewBroadcaster(&fakeSender{}, "", nil)
	if _, err := b.Broadcast("   ", nil, 0); err == nil {
		t.Fatal("expected error for empty action")
	}
}

func TestBroadcast_DefaultsPayload(t *testing.T) {
	sender := &fakeSender{}
	b := NewBroadcaster(sender, "", nil)

	if _, err := b.Broadcast("PING", nil, 0); err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}

	_, data := sender.last()
	payload, ok := data["eventData"].(map[string]any)
	if !ok {
		t.Fatalf("eventData = %T, want map", data["eventData"])
	}
	if len(payload) != 0 {
		t.Errorf("eventData = %v, want empty map", payload)
	}
}

func TestSetNamespace(t *testing.T) {
	sender := &fakeSender{}
	b := NewBroadcaster(sender, "", nil)

	if b.Namespace() != DefaultNamespace {
		t.Errorf("Namespace() = %q, want %q", b.Namespace(), DefaultNamespace)
	}

	if err := b.SetNamespace(""); err == nil {
		t.Error("expected error for empty namespace")
	}

	if err := b.SetNamespace("overlay"); err != nil {
		t.Fatalf("SetNamespace failed: %v", err)
	}
	if _, err := b.Broadcast("PING", nil, 0); err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}
	_, data := sender.last()
	if data["eventType"] != "overlay:PING" {
		t.Errorf("eventType = %v, want %q", data["eventType"], "overlay:PING")
	}
}

func TestSafeBroadcast_ConnectivityErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"not connected", obs.ErrNotConnected},
		{"response timeout", obs.ErrTimeout},
		{"request rejected", &obs.RequestError{RequestType: "BroadcastCustomEvent", Code: 400, Comment: "bad"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBroadcaster(&fakeSender{err: tt.err}, "", nil)

			ok, err := b.SafeBroadcast(ActionGreetFeedReadAll, nil, 0)
			if err != nil {
				t.Fatalf("SafeBroadcast returned error %v, want logged false", err)
			}
			if ok {
				t.Error("SafeBroadcast = true, want false")
			}
		})
	}
}

func TestSafeBroadcast_Success(t *testing.T) {
	b := NewBroadcaster(&fakeSender{}, "", nil)
	ok, err := b.SafeBroadcast("PING", nil, 0)
	if err != nil {
		t.Fatalf("SafeBroadcast failed: %v", err)
	}
	if !ok {
		t.Error("SafeBroadcast = false, want true")
	}
}

func TestSafeBroadcast_DoesNotSwallowOtherErrors(t *testing.T) {
	// Validation failures must propagate, not turn into false.
	b := NewBroadcaster(&fakeSender{}, "", nil)
	if _, err := b.SafeBroadcast("", nil, 0); err == nil {
		t.Error("expected validation error to propagate")
	}

	unknown := errors.New("wire exploded")
	b = NewBroadcaster(&fakeSender{err: unknown}, "", nil)
	if _, err := b.SafeBroadcast("PING", nil, 0); !errors.Is(err, unknown) {
		t.Errorf("SafeBroadcast error = %v, want %v", err, unknown)
	}
}

func TestMarkGreetFeedRead(t *testing.T) {
	sender := &fakeSender{}
	b := NewBroadcaster(sender, "", nil)

	if !b.MarkGreetFeedRead() {
		t.Fatal("MarkGreetFeedRead = false, want true")
	}
	_, data := sender.last()
	if data["eventType"] != "twitchat:GREET_FEED_READ_ALL" {
		t.Errorf("eventType = %v, want %q", data["eventType"], "twitchat:GREET_FEED_READ_ALL")
	}

	b = NewBroadcaster(&fakeSender{err: obs.ErrNotConnected}, "", nil)
	if b.MarkGreetFeedRead() {
		t.Error("MarkGreetFeedRead = true while not connected")
	}
}
