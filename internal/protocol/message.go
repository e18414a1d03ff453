package protocol

import (
	"strings"
	"time"

	"campsync/internal/campaign"
)

// Kind is the semantic classification of one inbound workflow message.
type Kind string

const (
	// KindChat is a visible transcript entry attributed to a sender.
	KindChat Kind = "chat"
	// KindData is a silent data-carrier whose patch is folded into state.
	KindData Kind = "data"
	// KindApproval is a synthesized data-carrier that raises an approval gate
	// together with the artifact it guards.
	KindApproval Kind = "approval"
)

// Sender attribution for chat-kind messages.
type Sender string

const (
	SenderUser     Sender = "user"
	SenderWorkflow Sender = "workflow"
	SenderSystem   Sender = "system"
)

// Inbound type values recognized on the wire.
const (
	TypeUser                 = "user"
	TypeWorkflow             = "workflow"
	TypeSystem               = "system"
	TypeCampaignData         = "campaign_data"
	TypeApprovalRequired     = "approval_required"
	TypeCreativeApproval     = "creative_approval_required"
	TypePublishingApproval   = "publishing_approval_required"
	TypeLocalizationApproval = "localization_approval_required"
)

// Envelope mirrors the inbound JSON wire format.
type Envelope struct {
	Type         string         `json:"type"`
	Content      string         `json:"content,omitempty"`
	CampaignData map[string]any `json:"campaign_data,omitempty"`
	RequestID    *int64         `json:"request_id,omitempty"`
	Sender       string         `json:"sender,omitempty"`
	Debug        bool           `json:"debug,omitempty"`
}

// Message is one classified inbound message.
type Message struct {
	Kind       Kind
	Sender     Sender
	Content    string
	Patch      *campaign.Patch
	RequestID  int64
	Debug      bool
	ReceivedAt time.Time
}

// HasPatch reports whether the message carries a state patch to fold.
func (m Message) HasPatch() bool {
	return m.Patch != nil
}

// Visible reports whether the message is eligible for chat rendering.
// Data-carriers and synthesized approval messages stay silent; debug chatter
// is hidden as well.
func (m Message) Visible() bool {
	if m.Kind != KindChat || m.Debug {
		return false
	}
	if m.Sender == SenderUser && IsCommand(m.Content) {
		return false
	}
	return strings.TrimSpace(m.Content) != ""
}

// IsCommand reports whether an outbound text is a protocol command echo
// (approve/reject family) rather than a user prompt.
func IsCommand(text string) bool {
	trimmed := strings.TrimSpace(text)
	for _, prefix := range []string{
		"approve_schedule",
		"reject_schedule",
		"approve",
		"reject",
	} {
		if trimmed == prefix || strings.HasPrefix(trimmed, prefix+":") {
			return true
		}
	}
	return false
}
