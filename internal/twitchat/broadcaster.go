package twitchat

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/SecareLupus/twitchat-bridge/internal/obs"
)

// DefaultNamespace prefixes broadcast event types unless the caller
// supplies a fully qualified one.
const DefaultNamespace = "twitchat"

// ActionGreetFeedReadAll asks Twitchat to mark every greet feed entry as
// read.
const ActionGreetFeedReadAll = "GREET_FEED_READ_ALL"

// requestSender is the slice of the OBS connection manager the
// broadcaster needs.
type requestSender interface {
	SendRequest(requestType string, data any, timeout time.Duration) (json.RawMessage, error)
	EnsureConnection() error
}

// Broadcaster formats and sends BroadcastCustomEvent requests.
type Broadcaster struct {
	conn   requestSender
	logger *slog.Logger

	mu        sync.RWMutex
	namespace string
}

// NewBroadcaster creates a broadcaster over conn. An empty namespace
// falls back to DefaultNamespace.
func NewBroadcaster(conn requestSender, namespace string, logger *slog.Logger) *Broadcaster {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		conn:      conn,
		logger:    logger,
		namespace: namespace,
	}
}

// Namespace returns the active event namespace.
func (b *Broadcaster) Namespace() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.namespace
}

// SetNamespace swaps the namespace. In-flight broadcasts keep the value
// they started with.
func (b *Broadcaster) SetNamespace(namespace string) error {
	if namespace == "" {
		return errors.New("namespace cannot be empty")
	}
	b.mu.Lock()
	b.namespace = namespace
	b.mu.Unlock()
	return nil
}

// EnsureConnection connects the underlying manager if needed.
func (b *Broadcaster) EnsureConnection() error {
	return b.conn.EnsureConnection()
}

// Broadcast sends a Twitchat custom event and returns the raw response
// payload. A zero timeout uses the connection's configured request
// timeout.
func (b *Broadcaster) Broadcast(action string, payload map[string]any, timeout time.Duration) (json.RawMessage, error) {
	eventType, err := b.formatEventType(action)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		payload = map[string]any{}
	}

	b.logger.Debug("broadcasting twitchat event", "event_type", eventType)
	return b.conn.SendRequest("BroadcastCustomEvent", map[string]any{
		"eventType": eventType,
		"eventData": payload,
	}, timeout)
}

// SafeBroadcast converts the expected connectivity failures — not
// connected, request rejected, response timeout — into a false result
// after logging them. Argument validation failures and any other error
// kind are returned instead of being swallowed.
func (b *Broadcaster) SafeBroadcast(action string, payload map[string]any, timeout time.Duration) (bool, error) {
	_, err := b.Broadcast(action, payload, timeout)
	if err == nil {
		return true, nil
	}

	var reqErr *obs.RequestError
	if errors.Is(err, obs.ErrNotConnected) || errors.Is(err, obs.ErrTimeout) || errors.As(err, &reqErr) {
		b.logger.Error("failed to broadcast twitchat event",
			"action", action,
			"error", err,
		)
		return false, nil
	}
	return false, err
}

// MarkGreetFeedRead broadcasts the greet feed read-all action, reporting
// success as a boolean.
func (b *Broadcaster) MarkGreetFeedRead() bool {
	ok, err := b.SafeBroadcast(ActionGreetFeedReadAll, nil, 0)
	if err != nil {
		b.logger.Error("greet feed read-all failed", "error", err)
		return false
	}
	return ok
}

// formatEventType namespaces action unless it already carries a
// namespace separator.
func (b *Broadcaster) formatEventType(action string) (string, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return "", errors.New("action identifier must be provided")
	}
	if strings.Contains(action, ":") {
		return action, nil
	}
	return b.Namespace() + ":" + action, nil
}
