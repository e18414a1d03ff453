package protocol

import (
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"campsync/internal/campaign"
	"campsync/internal/logging"
	jsonx "campsync/internal/shared/json"
)

// Classifier assigns a semantic kind to each raw inbound payload. It never
// mutates state and never fails the stream: malformed payloads are logged
// and dropped.
type Classifier struct {
	logger logging.Logger
}

// NewClassifier builds a classifier with the given logger.
func NewClassifier(logger logging.Logger) *Classifier {
	return &Classifier{logger: logging.OrNop(logger)}
}

// Classify decodes and classifies one raw payload. The second return value
// is false when the payload must be dropped.
func (c *Classifier) Classify(raw []byte) (Message, bool) {
	env, ok := c.decode(raw)
	if !ok {
		return Message{}, false
	}

	msg := Message{
		Content:    env.Content,
		Debug:      env.Debug,
		ReceivedAt: time.Now(),
	}
	if env.RequestID != nil {
		msg.RequestID = *env.RequestID
	}

	// The explicit approval type always wins over campaign_data presence.
	if gate, isApproval := approvalGateForType(env.Type); isApproval {
		patch, err := campaign.ParsePatch(env.CampaignData)
		if err != nil {
			c.logger.Warn("dropping approval message with bad campaign_data: %v", err)
			return Message{}, false
		}
		msg.Kind = KindApproval
		msg.Patch = synthesizeApprovalPatch(gate, patch, env.Content)
		return msg, true
	}

	if env.CampaignData != nil {
		patch, err := campaign.ParsePatch(env.CampaignData)
		if err != nil {
			c.logger.Warn("dropping data-carrier with bad campaign_data: %v", err)
			return Message{}, false
		}
		msg.Kind = KindData
		msg.Patch = patch
		return msg, true
	}

	if strings.TrimSpace(env.Content) != "" {
		msg.Kind = KindChat
		msg.Sender = senderFor(env)
		return msg, true
	}

	c.logger.Debug("dropping empty message of type %q", env.Type)
	return Message{}, false
}

func (c *Classifier) decode(raw []byte) (Envelope, bool) {
	var env Envelope
	if err := jsonx.Unmarshal(raw, &env); err == nil {
		return env, true
	}

	// Agent output occasionally arrives with trailing garbage or unquoted
	// keys; try one repair pass before giving up.
	repaired, repairErr := jsonrepair.JSONRepair(string(raw))
	if repairErr != nil {
		c.logger.Warn("dropping unparseable payload (%d bytes): repair failed: %v", len(raw), repairErr)
		return Envelope{}, false
	}
	if err := jsonx.Unmarshal([]byte(repaired), &env); err != nil {
		c.logger.Warn("dropping unparseable payload (%d bytes): %v", len(raw), err)
		return Envelope{}, false
	}
	c.logger.Debug("recovered malformed payload via json repair")
	return env, true
}

func approvalGateForType(messageType string) (campaign.Gate, bool) {
	switch messageType {
	case TypeApprovalRequired:
		return campaign.GateBrief, true
	case TypeCreativeApproval:
		return campaign.GateCreative, true
	case TypeLocalizationApproval:
		return campaign.GateLocalization, true
	case TypePublishingApproval:
		return campaign.GateSchedule, true
	}
	return "", false
}

// synthesizeApprovalPatch shapes an approval request as a data-carrier patch
// that lands the artifact and its gate boolean in the same fold step. The
// two must change together; otherwise the UI could briefly show content
// without its gate, or a gate without content.
func synthesizeApprovalPatch(gate campaign.Gate, patch *campaign.Patch, content string) *campaign.Patch {
	if patch == nil {
		patch = &campaign.Patch{}
	}
	raised := true
	switch gate {
	case campaign.GateBrief:
		patch.NeedsApproval = &raised
		if patch.Brief == nil && strings.TrimSpace(content) != "" {
			brief := content
			patch.Brief = &brief
		}
	case campaign.GateCreative:
		patch.NeedsCreativeApproval = &raised
	case campaign.GateLocalization:
		patch.NeedsLocalizationApproval = &raised
	case campaign.GateSchedule:
		patch.NeedsScheduleApproval = &raised
	}
	return patch
}

func senderFor(env Envelope) Sender {
	if env.Type == TypeUser || env.Sender == string(SenderUser) {
		return SenderUser
	}
	if env.Type == TypeSystem || env.Sender == string(SenderSystem) {
		return SenderSystem
	}
	return SenderWorkflow
}
