package obs

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultRPCVersion = 1
	writeTimeout      = 5 * time.Second
	receiverStopWait  = 2 * time.Second
)

// Manager owns a single logical connection to OBS: the socket, the
// handshake state machine, and the receive goroutine. All lifecycle
// transitions (connect, disconnect, reconfigure) are serialized by one
// lock; frame writes are serialized by a separate send lock so neither
// ever blocks the other.
type Manager struct {
	logger *slog.Logger

	// mu guards the socket, the configuration, and lifecycle transitions.
	mu         sync.Mutex
	cfg        ConnectionConfig
	conn       *websocket.Conn
	recvDone   chan struct{}
	rpcVersion int

	// writeMu serializes sends so concurrent callers never interleave
	// partial frames.
	writeMu sync.Mutex

	identified atomic.Bool
	closing    atomic.Bool

	registry *responseRegistry
}

// NewManager creates a manager for the given configuration. The
// connection is not opened until Connect or EnsureConnection is called.
func NewManager(cfg ConnectionConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	return &Manager{
		logger:     logger,
		cfg:        cfg,
		rpcVersion: defaultRPCVersion,
		registry:   newResponseRegistry(),
	}
}

// Config returns the active configuration.
func (m *Manager) Config() ConnectionConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// IsConnected reports whether the manager holds an identified session.
func (m *Manager) IsConnected() bool {
	return m.identified.Load()
}

// Connect dials OBS and performs the Hello/Identify/Identified handshake.
// It is a no-op when the session is already identified. A zero timeout
// uses the configured request timeout. On failure no half-open socket is
// left behind.
func (m *Manager) Connect(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.identified.Load() {
		return nil
	}
	return m.connectLocked(timeout)
}

func (m *Manager) connectLocked(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = m.cfg.RequestTimeout
	}

	m.logger.Debug("connecting to obs websocket", "url", m.cfg.URL())

	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	conn, _, err := dialer.Dial(m.cfg.URL(), nil)
	if err != nil {
		return fmt.Errorf("dial obs at %s: %w", m.cfg.URL(), err)
	}

	m.conn = conn
	m.closing.Store(false)
	if err := m.handshake(conn, m.cfg, timeout); err != nil {
		m.closeSocketLocked()
		return err
	}

	// The receiver owns the read side from here on and may block forever.
	conn.SetReadDeadline(time.Time{})

	m.recvDone = make(chan struct{})
	go m.receiveLoop(conn, m.recvDone)
	return nil
}

// EnsureConnection connects only when no identified session exists. Safe
// to call repeatedly and concurrently with other lifecycle calls.
func (m *Manager) EnsureConnection() error {
	if m.IsConnected() {
		return nil
	}
	return m.Connect(0)
}

// ConnectBackground starts a connection attempt on its own goroutine and
// returns a channel carrying the single result. Callers wanting only
// opportunistic connectivity can log the error instead of failing.
func (m *Manager) ConnectBackground() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- m.Connect(0)
	}()
	return errCh
}

// Disconnect stops the receiver, closes the socket, and clears the
// identified state. Idempotent.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnectLocked()
}

func (m *Manager) disconnectLocked() {
	m.closing.Store(true)
	done := m.recvDone
	m.recvDone = nil

	// Closing the socket unblocks the receiver's pending read.
	m.closeSocketLocked()

	if done != nil {
		select {
		case <-done:
		case <-time.After(receiverStopWait):
			m.logger.Warn("obs websocket receiver did not stop in time")
		}
	}
	m.identified.Store(false)
}

func (m *Manager) closeSocketLocked() {
	if m.conn == nil {
		return
	}
	m.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	m.conn.Close()
	m.conn = nil
}

// UpdateConfig applies a patch and returns the resulting configuration.
// An empty patch returns the current config with no side effect. When an
// endpoint or credential field changes while a session is identified, the
// manager disconnects and reconnects with the new values; a reconnect
// failure is logged, leaving the manager disconnected for a later
// EnsureConnection to retry.
func (m *Manager) UpdateConfig(patch ConfigPatch) ConnectionConfig {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := patch.Apply(m.cfg)
	if next == m.cfg {
		return m.cfg
	}

	reconnect := m.cfg.requiresReconnect(next)
	wasConnected := m.identified.Load()
	m.cfg = next

	if wasConnected && reconnect {
		m.logger.Info("reconnecting to obs websocket after configuration change",
			"url", next.URL(),
		)
		m.disconnectLocked()
		if err := m.connectLocked(0); err != nil {
			m.logger.Error("failed to reconnect to obs", "error", err)
		}
	}
	return m.cfg
}

// SendRequest issues one RPC request and blocks until the matching
// response arrives or the timeout elapses. A zero timeout uses the
// configured request timeout. If OBS rejects the request the returned
// error is a *RequestError carrying the protocol status.
func (m *Manager) SendRequest(requestType string, data any, timeout time.Duration) (json.RawMessage, error) {
	if !m.identified.Load() {
		return nil, ErrNotConnected
	}

	m.mu.Lock()
	conn := m.conn
	if timeout <= 0 {
		timeout = m.cfg.RequestTimeout
	}
	m.mu.Unlock()
	if conn == nil {
		return nil, ErrNotConnected
	}

	id := uuid.NewString()
	req := requestPayload{
		RequestType: requestType,
		RequestID:   id,
		RequestData: data,
	}
	if req.RequestData == nil {
		req.RequestData = map[string]any{}
	}

	deadline := time.Now().Add(timeout)
	m.registry.register(id)
	if err := m.writeFrame(conn, opRequest, req); err != nil {
		m.registry.forget(id)
		return nil, fmt.Errorf("send %s request: %w", requestType, err)
	}

	resp, err := m.registry.waitFor(id, deadline)
	if err != nil {
		return nil, fmt.Errorf("await %s response: %w", requestType, err)
	}

	if !resp.RequestStatus.Result {
		return nil, &RequestError{
			RequestType: requestType,
			Code:        resp.RequestStatus.Code,
			Comment:     resp.RequestStatus.Comment,
		}
	}
	return resp.ResponseData, nil
}

// handshake drives the Hello -> Identify -> Identified exchange on a
// freshly dialed socket.
func (m *Manager) handshake(conn *websocket.Conn, cfg ConnectionConfig, timeout time.Duration) error {
	hello, err := readFrame(conn, timeout)
	if err != nil {
		return fmt.Errorf("%w: read hello: %v", ErrHandshake, err)
	}
	return m.completeHandshake(conn, cfg, hello, timeout)
}

// completeHandshake finishes the handshake given an already-read first
// frame. It is also the re-identification path, entered from the receive
// loop when the server sends a fresh Hello mid-session.
func (m *Manager) completeHandshake(conn *websocket.Conn, cfg ConnectionConfig, hello frame, timeout time.Duration) error {
	if hello.Op != opHello {
		return fmt.Errorf("%w: expected hello (op %d), got op %d", ErrHandshake, opHello, hello.Op)
	}

	var hd helloData
	if err := json.Unmarshal(hello.D, &hd); err != nil {
		return fmt.Errorf("%w: decode hello: %v", ErrHandshake, err)
	}
	if hd.RPCVersion > 0 {
		m.rpcVersion = hd.RPCVersion
	}

	identify := identifyData{
		RPCVersion:         m.rpcVersion,
		EventSubscriptions: cfg.EventSubscriptions,
	}
	if hd.Authentication != nil {
		if cfg.Password == "" {
			return ErrAuthenticationRequired
		}
		identify.Authentication = authResponse(cfg.Password, hd.Authentication.Challenge, hd.Authentication.Salt)
	}

	if err := m.writeFrame(conn, opIdentify, identify); err != nil {
		return fmt.Errorf("%w: send identify: %v", ErrHandshake, err)
	}

	ack, err := readFrame(conn, timeout)
	if err != nil {
		return fmt.Errorf("%w: read identified: %v", ErrHandshake, err)
	}
	if ack.Op != opIdentified {
		return fmt.Errorf("%w: expected identified (op %d), got op %d", ErrHandshake, opIdentified, ack.Op)
	}

	m.identified.Store(true)
	m.logger.Debug("obs websocket handshake complete", "rpc_version", m.rpcVersion)
	return nil
}

// reidentify repeats the handshake in place for a server-initiated Hello.
// It takes the lifecycle lock so the handshake cannot race a concurrent
// Disconnect or UpdateConfig; if either is already in progress the
// re-identification is skipped and the receiver surfaces the fallout
// naturally on its next read.
func (m *Manager) reidentify(conn *websocket.Conn, hello frame) error {
	if !m.mu.TryLock() {
		return errors.New("connection lifecycle busy")
	}
	defer m.mu.Unlock()

	if m.closing.Load() || m.conn != conn {
		return errors.New("connection closed during re-identification")
	}

	err := m.completeHandshake(conn, m.cfg, hello, m.cfg.RequestTimeout)
	conn.SetReadDeadline(time.Time{})
	return err
}

// receiveLoop owns the read side of conn for the lifetime of one
// connection. A frame that fails to parse is logged and skipped; only a
// transport error terminates the loop, which clears the identified state
// as its last act before signalling done.
func (m *Manager) receiveLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	defer m.identified.Store(false)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if m.closing.Load() {
				m.logger.Debug("obs websocket receiver stopped", "error", err)
			} else {
				m.logger.Warn("lost connection to obs websocket", "error", err)
			}
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			m.logger.Warn("received malformed obs payload", "error", err)
			continue
		}

		m.handleFrame(conn, f)
	}
}

// handleFrame dispatches one inbound frame by opcode.
func (m *Manager) handleFrame(conn *websocket.Conn, f frame) {
	switch f.Op {
	case opHello:
		// Server-initiated re-identification (e.g. OBS settings reload).
		// A failure here degrades the session rather than tearing it down;
		// subsequent requests surface the problem.
		m.logger.Info("obs websocket requested re-identification")
		if err := m.reidentify(conn, f); err != nil {
			m.logger.Error("re-identification failed", "error", err)
		}

	case opIdentified:
		m.identified.Store(true)
		m.logger.Debug("obs websocket identified again")

	case opEvent:
		var ev eventPayload
		if err := json.Unmarshal(f.D, &ev); err != nil {
			m.logger.Warn("received malformed obs event", "error", err)
			return
		}
		m.logger.Debug("obs event received", "event_type", ev.EventType)

	case opResponse, opBatchResponse:
		var resp responsePayload
		if err := json.Unmarshal(f.D, &resp); err != nil {
			m.logger.Warn("received malformed obs response", "error", err)
			return
		}
		if resp.RequestID == "" {
			return
		}
		if !m.registry.put(resp.RequestID, resp) {
			m.logger.Debug("dropping obs response with no waiter",
				"request_id", resp.RequestID,
			)
		}

	default:
		m.logger.Debug("unhandled obs message", "op", f.Op)
	}
}

// writeFrame marshals and writes one envelope under the send lock.
func (m *Manager) writeFrame(conn *websocket.Conn, op int, d any) error {
	payload, err := json.Marshal(struct {
		Op int `json:"op"`
		D  any `json:"d"`
	}{Op: op, D: d})
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// readFrame reads a single envelope with a bounded deadline. Used only
// during handshakes; steady-state reads happen in the receive loop with
// no deadline.
func readFrame(conn *websocket.Conn, timeout time.Duration) (frame, error) {
	conn.SetReadDeadline(time.Now().Add(timeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return frame{}, err
	}

	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}
