package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"campsync/internal/logging"
	jsonx "campsync/internal/shared/json"
)

// backendStub fakes the workflow backend endpoints used by the transport.
type backendStub struct {
	t        *testing.T
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu         sync.Mutex
	conns      []*websocket.Conn
	inbound    chan string
	fallbacks  chan string
	rejectWS   bool
	failStatus bool
	statusHits int
	messageErr string
}

func newBackendStub(t *testing.T) *backendStub {
	stub := &backendStub{
		t:         t,
		inbound:   make(chan string, 16),
		fallbacks: make(chan string, 16),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/workflow/ws", stub.handleWS)
	mux.HandleFunc("/api/workflow/message", stub.handleMessage)
	mux.HandleFunc("/api/workflow/status", stub.handleStatus)
	stub.server = httptest.NewServer(mux)
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *backendStub) handleWS(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	reject := s.rejectWS
	s.mu.Unlock()
	if reject {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.inbound <- string(data)
		}
	}()
}

func (s *backendStub) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.statusHits++
	fail := s.failStatus
	s.mu.Unlock()
	if fail {
		http.Error(w, "degraded", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *backendStub) handleMessage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	reject := s.messageErr
	s.mu.Unlock()
	if reject != "" {
		http.Error(w, reject, http.StatusUnprocessableEntity)
		return
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := jsonx.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.fallbacks <- body.Content
	w.WriteHeader(http.StatusAccepted)
}

func (s *backendStub) send(payload map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.conns) == 0 {
		s.t.Fatal("no live connection to send on")
	}
	if err := s.conns[len(s.conns)-1].WriteJSON(payload); err != nil {
		s.t.Fatalf("stub write returned error: %v", err)
	}
}

func (s *backendStub) dropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns {
		_ = conn.Close()
	}
	s.conns = nil
}

func (s *backendStub) setRejectWS(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectWS = reject
}

func (s *backendStub) setFailStatus(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStatus = fail
}

func (s *backendStub) setMessageError(detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messageErr = detail
}

func (s *backendStub) statusHitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusHits
}

type events struct {
	messages     chan []byte
	connected    chan struct{}
	disconnected chan struct{}
}

func newEvents() *events {
	return &events{
		messages:     make(chan []byte, 16),
		connected:    make(chan struct{}, 16),
		disconnected: make(chan struct{}, 16),
	}
}

func (e *events) callbacks() Callbacks {
	return Callbacks{
		OnMessage:      func(raw []byte) { e.messages <- raw },
		OnConnected:    func() { e.connected <- struct{}{} },
		OnDisconnected: func() { e.disconnected <- struct{}{} },
	}
}

func waitSignal(t *testing.T, ch chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func newTestTransport(stub *backendStub, ev *events) *Transport {
	return New(Config{
		BaseURL:        stub.server.URL,
		ReconnectDelay: 30 * time.Millisecond,
	}, ev.callbacks(), logging.Nop(), nil)
}

func TestTransportDeliversMessagesInOrder(t *testing.T) {
	stub := newBackendStub(t)
	ev := newEvents()
	tr := newTestTransport(stub, ev)
	t.Cleanup(func() { _ = tr.Close(context.Background()) })

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	waitSignal(t, ev.connected, "connect")

	stub.send(map[string]any{"type": "workflow", "content": "one"})
	stub.send(map[string]any{"type": "workflow", "content": "two"})

	for _, want := range []string{"one", "two"} {
		select {
		case raw := <-ev.messages:
			var env struct {
				Content string `json:"content"`
			}
			if err := jsonx.Unmarshal(raw, &env); err != nil {
				t.Fatalf("unmarshal returned error: %v", err)
			}
			if env.Content != want {
				t.Fatalf("expected %q, got %q", want, env.Content)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %q", want)
		}
	}
}

func TestTransportSendOverSocket(t *testing.T) {
	stub := newBackendStub(t)
	ev := newEvents()
	tr := newTestTransport(stub, ev)
	t.Cleanup(func() { _ = tr.Close(context.Background()) })

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	waitSignal(t, ev.connected, "connect")

	if err := tr.Send(context.Background(), "holiday sock promo"); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	select {
	case got := <-stub.inbound:
		if got != "holiday sock promo" {
			t.Fatalf("unexpected inbound text %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for inbound text")
	}
	select {
	case got := <-stub.fallbacks:
		t.Fatalf("unexpected fallback send %q", got)
	default:
	}
}

func TestTransportSendFallsBackWithoutConnection(t *testing.T) {
	stub := newBackendStub(t)
	ev := newEvents()
	tr := newTestTransport(stub, ev)
	t.Cleanup(func() { _ = tr.Close(context.Background()) })

	// Never connected: user input must still be delivered.
	if err := tr.Send(context.Background(), "approve"); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	select {
	case got := <-stub.fallbacks:
		if got != "approve" {
			t.Fatalf("unexpected fallback content %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fallback")
	}
}

func TestTransportFallbackSurfacesBackendError(t *testing.T) {
	stub := newBackendStub(t)
	stub.setMessageError("campaign not active")
	ev := newEvents()
	tr := newTestTransport(stub, ev)
	t.Cleanup(func() { _ = tr.Close(context.Background()) })

	err := tr.Send(context.Background(), "approve")
	if err == nil {
		t.Fatal("expected fallback send to fail")
	}
	if !strings.Contains(err.Error(), "campaign not active") {
		t.Fatalf("error %q does not carry the backend detail", err)
	}
}

// An extended outage means the probe fails every period; those failures must
// not open the circuit the operator's fallback send goes through.
func TestTransportProbeFailuresDoNotOpenFallbackBreaker(t *testing.T) {
	stub := newBackendStub(t)
	stub.setFailStatus(true)
	ev := newEvents()
	tr := New(Config{
		BaseURL:        stub.server.URL,
		ReconnectDelay: 30 * time.Millisecond,
		ProbeInterval:  2 * time.Millisecond,
	}, ev.callbacks(), logging.Nop(), nil)
	t.Cleanup(func() { _ = tr.Close(context.Background()) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		tr.RunProbe(ctx)
	}()

	// Well past the breaker's failure threshold.
	deadline := time.Now().Add(2 * time.Second)
	for stub.statusHitCount() < 8 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for probe attempts")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if err := tr.Send(context.Background(), "approve"); err != nil {
		t.Fatalf("fallback send after probe failures returned error: %v", err)
	}
	select {
	case got := <-stub.fallbacks:
		if got != "approve" {
			t.Fatalf("unexpected fallback content %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fallback")
	}
}

func TestTransportReconnectsAfterDrop(t *testing.T) {
	stub := newBackendStub(t)
	ev := newEvents()
	tr := newTestTransport(stub, ev)
	t.Cleanup(func() { _ = tr.Close(context.Background()) })

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	waitSignal(t, ev.connected, "first connect")

	stub.dropConnections()
	waitSignal(t, ev.disconnected, "disconnect")
	waitSignal(t, ev.connected, "reconnect")

	stub.send(map[string]any{"type": "workflow", "content": "after reconnect"})
	select {
	case <-ev.messages:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for post-reconnect delivery")
	}
}

func TestTransportRetriesFailedDials(t *testing.T) {
	stub := newBackendStub(t)
	stub.setRejectWS(true)
	ev := newEvents()
	tr := newTestTransport(stub, ev)
	t.Cleanup(func() { _ = tr.Close(context.Background()) })

	if err := tr.Connect(context.Background()); err == nil {
		t.Fatal("expected dial error while backend rejects upgrades")
	}

	stub.setRejectWS(false)
	waitSignal(t, ev.connected, "connect after retries")
}

func TestTransportCloseCancelsReconnect(t *testing.T) {
	stub := newBackendStub(t)
	stub.setRejectWS(true)
	ev := newEvents()
	tr := newTestTransport(stub, ev)

	_ = tr.Connect(context.Background())
	if err := tr.Close(context.Background()); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	stub.setRejectWS(false)
	select {
	case <-ev.connected:
		t.Fatal("closed transport must not reconnect")
	case <-time.After(150 * time.Millisecond):
	}
	if tr.Connected() {
		t.Fatal("closed transport reports connected")
	}
	if err := tr.Send(context.Background(), "late"); err == nil {
		t.Fatal("expected send on closed transport to fail")
	}
}
