package console

import (
	"context"
	"strings"
	"sync"
	"time"

	"campsync/internal/campaign"
	"campsync/internal/logging"
	"campsync/internal/metrics"
	"campsync/internal/protocol"
	"campsync/internal/transport"
)

// Engine wires the transport, classifier, and store into the one-directional
// flow transport -> classifier -> {accumulator, stage detector}. Inbound
// messages are handled strictly in arrival order on the transport's read
// goroutine; there is no buffering or reordering.
type Engine struct {
	transport  *transport.Transport
	classifier *protocol.Classifier
	store      *Store
	logger     logging.Logger
	observer   metrics.Observer

	notifyMu sync.Mutex
	onUpdate func(Snapshot)
}

// Options configures an engine.
type Options struct {
	Transport transport.Config
	Logger    logging.Logger
	Observer  metrics.Observer

	// OnUpdate is invoked with a fresh snapshot after every applied change.
	// Changes originate on several goroutines (the read loop, the liveness
	// probe, operator calls), but notifications are serialized: OnUpdate
	// never runs concurrently with itself and snapshots arrive in apply
	// order. It must not block.
	OnUpdate func(Snapshot)
}

// New builds an engine with a fresh store. The transport callbacks are bound
// here at construction; stage and connection changes always flow through the
// store, never through process globals.
func New(opts Options) *Engine {
	logger := logging.OrNop(opts.Logger)
	engine := &Engine{
		classifier: protocol.NewClassifier(logging.WithComponent(logger, "classifier")),
		store:      NewStore(),
		logger:     logger,
		observer:   metrics.OrNop(opts.Observer),
		onUpdate:   opts.OnUpdate,
	}
	engine.transport = transport.New(opts.Transport, transport.Callbacks{
		OnMessage:      engine.handleRaw,
		OnConnected:    func() { engine.store.SetConnected(true); engine.notify() },
		OnDisconnected: func() { engine.store.SetConnected(false); engine.notify() },
		OnOnline:       func(online bool) { engine.store.SetOnline(online); engine.notify() },
	}, logging.WithComponent(logger, "transport"), opts.Observer)
	return engine
}

// Store exposes the engine's state store for read-side projections.
func (e *Engine) Store() *Store {
	return e.store
}

// Run connects and then drives the liveness probe until ctx is cancelled,
// at which point the transport is torn down. Reconnects keep feeding the
// same store instance; accumulated state survives connection drops.
func (e *Engine) Run(ctx context.Context) error {
	// A failed first dial is not fatal; the reconnect policy owns it.
	_ = e.transport.Connect(ctx)
	e.transport.RunProbe(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return e.transport.Close(closeCtx)
}

func (e *Engine) handleRaw(raw []byte) {
	msg, ok := e.classifier.Classify(raw)
	if !ok {
		e.observer.RecordParseFailure()
		return
	}
	e.observer.RecordMessage(string(msg.Kind))

	if msg.HasPatch() {
		e.store.ApplyPatch(msg.Patch)
		e.observer.RecordFold()
	}
	if msg.Kind == protocol.KindChat {
		e.store.AppendChat(msg)
	}
	e.notify()
}

// SubmitPrompt sends a free-text campaign request. A new request resets the
// pipeline back to the planner stage.
func (e *Engine) SubmitPrompt(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	e.store.SetStage(campaign.StagePlanner)
	e.store.AppendLocal(text, time.Now())
	e.notify()
	return e.transport.Send(ctx, text)
}

// Decide resolves a raised approval gate: the optimistic state update is
// applied first, then the protocol command goes out. Commands are silent;
// they never appear in the transcript.
func (e *Engine) Decide(ctx context.Context, decision campaign.Decision) error {
	command, err := e.store.ApplyDecision(decision)
	if err != nil {
		return err
	}
	e.notify()
	return e.transport.Send(ctx, command)
}

// notify takes the snapshot under the same lock that serializes OnUpdate,
// so consumers see snapshots in apply order and never reentrantly.
func (e *Engine) notify() {
	if e.onUpdate == nil {
		return
	}
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()
	e.onUpdate(e.store.Snapshot())
}
