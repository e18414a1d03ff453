package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"campsync/internal/httpclient"
	"campsync/internal/logging"
	"campsync/internal/metrics"
	jsonx "campsync/internal/shared/json"
)

var errClosed = errors.New("transport is closed")

// The fallback and status endpoints answer with small acknowledgements; a
// bound on the body read keeps a misbehaving backend from tying up memory.
const maxResponseBytes = 64 << 10

// Config locates the workflow backend endpoints.
type Config struct {
	BaseURL        string        // http(s)://host:port of the workflow backend
	SocketPath     string        // websocket endpoint
	MessagePath    string        // one-shot message fallback endpoint
	StatusPath     string        // liveness probe endpoint
	ReconnectDelay time.Duration // fixed delay between reconnect attempts
	ProbeInterval  time.Duration // liveness probe period
	HTTPTimeout    time.Duration
}

func (c Config) withDefaults() Config {
	out := c
	out.BaseURL = strings.TrimRight(strings.TrimSpace(out.BaseURL), "/")
	if out.BaseURL == "" {
		out.BaseURL = "http://127.0.0.1:8090"
	}
	if out.SocketPath == "" {
		out.SocketPath = "/api/workflow/ws"
	}
	if out.MessagePath == "" {
		out.MessagePath = "/api/workflow/message"
	}
	if out.StatusPath == "" {
		out.StatusPath = "/api/workflow/status"
	}
	if out.ReconnectDelay <= 0 {
		out.ReconnectDelay = 3 * time.Second
	}
	if out.ProbeInterval <= 0 {
		out.ProbeInterval = 10 * time.Second
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	return out
}

// Callbacks are injected at construction so the transport never reaches for
// globals to push connection or stage information upstream.
type Callbacks struct {
	OnMessage      func(raw []byte)
	OnConnected    func()
	OnDisconnected func()
	OnOnline       func(online bool)
}

// Transport owns the single logical connection to the workflow backend.
// It reconnects after a fixed delay forever, and falls back to a one-shot
// HTTP POST when asked to send without a live socket, so operator input is
// never silently dropped.
type Transport struct {
	cfg       Config
	callbacks Callbacks
	logger    logging.Logger
	observer  metrics.Observer

	httpClient  *http.Client
	probeClient *http.Client
	dialer      *websocket.Dialer

	mu               sync.Mutex
	conn             *websocket.Conn
	reconnectTimer   *time.Timer
	reconnectPending bool
	closed           bool

	writeMu sync.Mutex
}

// New builds a transport. Callbacks may be partially nil.
func New(cfg Config, callbacks Callbacks, logger logging.Logger, observer metrics.Observer) *Transport {
	cfg = cfg.withDefaults()
	return &Transport{
		cfg:        cfg,
		callbacks:  callbacks,
		logger:     logging.OrNop(logger),
		observer:   metrics.OrNop(observer),
		httpClient: httpclient.NewWithCircuitBreaker(cfg.HTTPTimeout, logger, "workflow-backend"),
		// The probe is expected to fail for the whole length of an outage;
		// routing it through the breaker would open the circuit and make the
		// first operator fallback send fail fast instead of attempting
		// delivery. It gets a plain client.
		probeClient: httpclient.New(cfg.HTTPTimeout, logger),
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HTTPTimeout,
		},
	}
}

// Connect dials the websocket endpoint. A failed dial is not fatal: the
// reconnect policy takes over and the error is only informational.
func (t *Transport) Connect(ctx context.Context) error {
	if err := t.dial(ctx); err != nil {
		t.logger.Warn("initial connect failed, scheduling reconnect: %v", err)
		t.scheduleReconnect()
		return err
	}
	return nil
}

func (t *Transport) socketURL() string {
	url := t.cfg.BaseURL + t.cfg.SocketPath
	if strings.HasPrefix(url, "https://") {
		return "wss://" + strings.TrimPrefix(url, "https://")
	}
	return "ws://" + strings.TrimPrefix(url, "http://")
}

func (t *Transport) dial(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return errClosed
	}
	if t.conn != nil {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	conn, resp, err := t.dialer.DialContext(ctx, t.socketURL(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", t.socketURL(), err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close()
		return errClosed
	}
	t.conn = conn
	t.mu.Unlock()

	t.logger.Info("connected to workflow backend")
	if t.callbacks.OnConnected != nil {
		t.callbacks.OnConnected()
	}
	go t.readLoop(conn)
	return nil
}

func (t *Transport) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if t.callbacks.OnMessage != nil {
			t.callbacks.OnMessage(data)
		}
	}
	conn.Close()

	t.mu.Lock()
	current := t.conn == conn
	if current {
		t.conn = nil
	}
	closed := t.closed
	t.mu.Unlock()

	if !current || closed {
		return
	}
	t.logger.Warn("workflow connection lost")
	if t.callbacks.OnDisconnected != nil {
		t.callbacks.OnDisconnected()
	}
	t.scheduleReconnect()
}

// scheduleReconnect arms the fixed-delay reconnect timer. The pending guard
// keeps overlapping connection attempts from piling up.
func (t *Transport) scheduleReconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.reconnectPending {
		return
	}
	t.reconnectPending = true
	t.reconnectTimer = time.AfterFunc(t.cfg.ReconnectDelay, t.reconnect)
}

func (t *Transport) reconnect() {
	t.mu.Lock()
	t.reconnectPending = false
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return
	}

	t.observer.RecordReconnect()
	if err := t.dial(context.Background()); err != nil {
		if errors.Is(err, errClosed) {
			return
		}
		t.logger.Debug("reconnect failed: %v", err)
		t.scheduleReconnect()
	}
}

// Send delivers a user or system command. With a live socket it writes a
// text frame; otherwise it falls back to the one-shot message endpoint.
func (t *Transport) Send(ctx context.Context, text string) error {
	t.mu.Lock()
	conn := t.conn
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return errClosed
	}

	if conn != nil {
		t.writeMu.Lock()
		err := conn.WriteMessage(websocket.TextMessage, []byte(text))
		t.writeMu.Unlock()
		if err == nil {
			return nil
		}
		// The read loop notices the broken socket and drives the reconnect;
		// this send still has to get through.
		t.logger.Warn("socket write failed, using fallback: %v", err)
		conn.Close()
	}

	return t.sendFallback(ctx, text)
}

// Connected reports whether a live socket exists.
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

func (t *Transport) sendFallback(ctx context.Context, text string) error {
	body, err := jsonx.Marshal(map[string]string{"content": text})
	if err != nil {
		return fmt.Errorf("encode fallback payload: %w", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BaseURL+t.cfg.MessagePath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build fallback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	t.observer.RecordFallbackSend(err)
	if err != nil {
		return fmt.Errorf("fallback send: %w", err)
	}
	defer resp.Body.Close()
	respBody, readErr := httpclient.ReadAllWithLimit(resp.Body, maxResponseBytes)
	if resp.StatusCode >= http.StatusBadRequest {
		detail := string(bytes.TrimSpace(respBody))
		if detail == "" {
			return fmt.Errorf("fallback send: status %d", resp.StatusCode)
		}
		return fmt.Errorf("fallback send: status %d: %s", resp.StatusCode, detail)
	}
	if readErr != nil && !httpclient.IsResponseTooLarge(readErr) {
		t.logger.Debug("fallback response body discarded: %v", readErr)
	}
	return nil
}

// Close tears down the transport: the pending reconnect timer is cancelled
// and the active socket is closed. Safe to call more than once.
func (t *Transport) Close(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	timer := t.reconnectTimer
	conn := t.conn
	t.conn = nil
	t.reconnectTimer = nil
	t.reconnectPending = false
	t.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if conn != nil {
		deadline := time.Now().Add(time.Second)
		if ctx != nil {
			if d, ok := ctx.Deadline(); ok {
				deadline = d
			}
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		conn.Close()
	}
	return nil
}
