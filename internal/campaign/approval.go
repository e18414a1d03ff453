package campaign

import (
	"fmt"
	"strings"
)

// Gate names one of the four human approval checkpoints.
type Gate string

const (
	GateBrief        Gate = "brief"
	GateCreative     Gate = "creative"
	GateLocalization Gate = "localization"
	GateSchedule     Gate = "schedule"
)

// Action is the operator's decision on a raised gate.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Decision captures one operator approval decision.
type Decision struct {
	Gate   Gate
	Action Action

	// EditedPayload carries only the operator's in-place edits (brief text,
	// edited captions) so the backend can apply them without the client
	// resending the whole artifact graph. Empty means approve as-is.
	EditedPayload string

	// Feedback optionally accompanies a rejection.
	Feedback string
}

// Outcome is the result of deciding a gate: the outbound protocol command
// plus the optimistically updated state.
type Outcome struct {
	Command string
	State   State

	// NextStage is non-nil when the decision forces a stage change ahead of
	// backend confirmation (schedule approval jumps straight to instagram).
	NextStage *Stage
}

// Decide translates an operator decision into the outbound command and
// clears every approval gate optimistically, before any backend
// acknowledgment. Clearing all four at once keeps overlapping network
// latency from ever showing two pending approvals.
func Decide(state State, decision Decision) (Outcome, error) {
	switch decision.Gate {
	case GateBrief, GateCreative, GateLocalization, GateSchedule:
	default:
		return Outcome{}, fmt.Errorf("unknown approval gate %q", decision.Gate)
	}

	var command string
	switch decision.Action {
	case ActionApprove:
		command = approveCommand(decision)
	case ActionReject:
		command = rejectCommand(decision)
	default:
		return Outcome{}, fmt.Errorf("unknown approval action %q", decision.Action)
	}

	next := state.Clone()
	next.NeedsApproval = false
	next.NeedsCreativeApproval = false
	next.NeedsLocalizationApproval = false
	next.NeedsScheduleApproval = false

	outcome := Outcome{Command: command, State: next}
	if decision.Gate == GateSchedule && decision.Action == ActionApprove {
		stage := StageInstagram
		outcome.NextStage = &stage
	}
	return outcome, nil
}

func approveCommand(decision Decision) string {
	if decision.Gate == GateSchedule {
		return "approve_schedule"
	}
	if payload := strings.TrimSpace(decision.EditedPayload); payload != "" {
		return "approve: " + payload
	}
	return "approve"
}

func rejectCommand(decision Decision) string {
	// Schedule rejection uses a distinct command so it cannot collide with
	// the generic reject handling upstream.
	if decision.Gate == GateSchedule {
		return "reject_schedule"
	}
	if feedback := strings.TrimSpace(decision.Feedback); feedback != "" {
		return "reject: " + feedback
	}
	return "reject"
}
