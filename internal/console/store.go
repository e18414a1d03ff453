package console

import (
	"sync"
	"time"

	"campsync/internal/campaign"
	"campsync/internal/protocol"
)

// ChatMessage is a single entry in the visible chat transcript.
type ChatMessage struct {
	Sender     protocol.Sender
	Content    string
	ReceivedAt time.Time
}

// Store owns the live console state for one open session: the accumulated
// campaign snapshot, the detected pipeline stage, and the chat transcript.
// It is the single writer for campaign state; everything else observes it
// through Snapshot.
type Store struct {
	mu         sync.RWMutex
	state      campaign.State
	stage      campaign.Stage
	transcript []ChatMessage
	recentChat []string
	connected  bool
	online     bool
}

// NewStore creates an empty store for a freshly mounted console.
func NewStore() *Store {
	return &Store{stage: campaign.StageNone}
}

// Snapshot is a deep copy of the store for safe observation.
type Snapshot struct {
	State      campaign.State
	Stage      campaign.Stage
	Transcript []ChatMessage
	Connected  bool
	Online     bool
}

// Snapshot copies the current state so callers never alias internal slices.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := Snapshot{
		State:      s.state.Clone(),
		Stage:      s.stage,
		Transcript: make([]ChatMessage, len(s.transcript)),
		Connected:  s.connected,
		Online:     s.online,
	}
	copy(snapshot.Transcript, s.transcript)
	return snapshot
}

// ApplyPatch folds one patch into the campaign state.
func (s *Store) ApplyPatch(patch *campaign.Patch) {
	if patch.IsZero() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = campaign.Fold(s.state, patch)
}

// AppendChat records a chat-kind message: visible ones join the transcript,
// and every chat line feeds the stage-detection window.
func (s *Store) AppendChat(msg protocol.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recentChat = append(s.recentChat, msg.Content)
	if len(s.recentChat) > campaign.StageWindow {
		s.recentChat = s.recentChat[len(s.recentChat)-campaign.StageWindow:]
	}
	s.stage = campaign.DetectStage(s.recentChat, s.stage)

	if msg.Visible() {
		s.transcript = append(s.transcript, ChatMessage{
			Sender:     msg.Sender,
			Content:    msg.Content,
			ReceivedAt: msg.ReceivedAt,
		})
	}
}

// AppendLocal records an operator-entered visible line without running stage
// detection; local input is not a backend status announcement.
func (s *Store) AppendLocal(content string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, ChatMessage{
		Sender:     protocol.SenderUser,
		Content:    content,
		ReceivedAt: at,
	})
}

// SetStage forces the pipeline stage (new campaign request, schedule
// approval).
func (s *Store) SetStage(stage campaign.Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage = stage
}

// Stage returns the currently detected stage.
func (s *Store) Stage() campaign.Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stage
}

// ApplyDecision runs the approval gate controller against the current state
// and applies the optimistic update in the same critical section, so two
// racing decisions can never both observe a raised gate.
func (s *Store) ApplyDecision(decision campaign.Decision) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcome, err := campaign.Decide(s.state, decision)
	if err != nil {
		return "", err
	}
	s.state = outcome.State
	if outcome.NextStage != nil {
		s.stage = *outcome.NextStage
	}
	return outcome.Command, nil
}

// SetConnected tracks the websocket connection state.
func (s *Store) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
}

// SetOnline tracks the liveness probe indicator.
func (s *Store) SetOnline(online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online = online
}
