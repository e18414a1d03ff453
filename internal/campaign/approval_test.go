package campaign

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func allGatesRaised() State {
	return State{
		Brief:                     "## Final Brief",
		NeedsApproval:             true,
		NeedsCreativeApproval:     true,
		NeedsLocalizationApproval: true,
		NeedsScheduleApproval:     true,
	}
}

func TestDecideApproveBare(t *testing.T) {
	outcome, err := Decide(allGatesRaised(), Decision{Gate: GateBrief, Action: ActionApprove})
	require.NoError(t, err)
	require.Equal(t, "approve", outcome.Command)
	require.Nil(t, outcome.NextStage)
}

func TestDecideApproveWithEdits(t *testing.T) {
	outcome, err := Decide(allGatesRaised(), Decision{
		Gate:          GateBrief,
		Action:        ActionApprove,
		EditedPayload: `{"brief":"tightened copy"}`,
	})
	require.NoError(t, err)
	require.Equal(t, `approve: {"brief":"tightened copy"}`, outcome.Command)
}

func TestDecideRejectWithFeedback(t *testing.T) {
	outcome, err := Decide(allGatesRaised(), Decision{
		Gate:     GateCreative,
		Action:   ActionReject,
		Feedback: "too dark",
	})
	require.NoError(t, err)
	require.Equal(t, "reject: too dark", outcome.Command)

	outcome, err = Decide(allGatesRaised(), Decision{Gate: GateLocalization, Action: ActionReject})
	require.NoError(t, err)
	require.Equal(t, "reject", outcome.Command)
}

func TestDecideScheduleCommands(t *testing.T) {
	outcome, err := Decide(allGatesRaised(), Decision{Gate: GateSchedule, Action: ActionApprove})
	require.NoError(t, err)
	require.Equal(t, "approve_schedule", outcome.Command)
	require.NotNil(t, outcome.NextStage)
	require.Equal(t, StageInstagram, *outcome.NextStage)

	outcome, err = Decide(allGatesRaised(), Decision{Gate: GateSchedule, Action: ActionReject, Feedback: "wrong slots"})
	require.NoError(t, err)
	require.Equal(t, "reject_schedule", outcome.Command)
	require.Nil(t, outcome.NextStage)
}

// Any single decision clears every gate, not only the one that was raised,
// so overlapping latency can never show two pending approvals.
func TestDecideClearsAllGates(t *testing.T) {
	for _, gate := range []Gate{GateBrief, GateCreative, GateLocalization, GateSchedule} {
		for _, action := range []Action{ActionApprove, ActionReject} {
			outcome, err := Decide(allGatesRaised(), Decision{Gate: gate, Action: action})
			require.NoError(t, err)
			require.False(t, outcome.State.AnyGateRaised(), "gate %s action %s", gate, action)
		}
	}
}

func TestDecidePreservesArtifacts(t *testing.T) {
	state := allGatesRaised()
	state.Media = []MediaItem{{Type: MediaImage, URL: "a"}}

	outcome, err := Decide(state, Decision{Gate: GateCreative, Action: ActionApprove})
	require.NoError(t, err)
	require.Equal(t, state.Media, outcome.State.Media)
	require.Equal(t, "## Final Brief", outcome.State.Brief)
}

func TestDecideRejectsUnknownInputs(t *testing.T) {
	_, err := Decide(State{}, Decision{Gate: "budget", Action: ActionApprove})
	require.Error(t, err)

	_, err = Decide(State{}, Decision{Gate: GateBrief, Action: "defer"})
	require.Error(t, err)
}
