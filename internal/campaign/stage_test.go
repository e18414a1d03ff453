package campaign

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectStageMatchesAnnouncement(t *testing.T) {
	lines := []string{
		"Creative Agent is running...",
		"generating hero image",
		"uploading asset 1/2",
		"uploading asset 2/2",
	}
	require.Equal(t, StageCreative, DetectStage(lines, StageNone))
}

func TestDetectStageKeepsPreviousWithoutMatch(t *testing.T) {
	lines := []string{"no announcements here", "just chatter"}
	require.Equal(t, StageCreative, DetectStage(lines, StageCreative))
	// The detector never resets to none on its own.
	require.Equal(t, StagePlanner, DetectStage(nil, StagePlanner))
}

func TestDetectStageDeterminism(t *testing.T) {
	lines := []string{"Creative Agent is running..."}
	for _, extra := range []string{"line one", "line two", "line three"} {
		lines = append(lines, extra)
		require.Equal(t, StageCreative, DetectStage(lines, StageNone))
	}

	lines = append(lines, "Localization Agent is running...")
	require.Equal(t, StageLocalization, DetectStage(lines, StageCreative))
}

func TestDetectStageNewestMatchWins(t *testing.T) {
	lines := []string{
		"Coordinator is running...",
		"Creative Agent is running...",
	}
	require.Equal(t, StageCreative, DetectStage(lines, StageNone))
}

func TestDetectStageWindowIsBounded(t *testing.T) {
	lines := []string{
		"Publishing Agent is running...",
		"a", "b", "c", "d", "e",
	}
	// The announcement has scrolled out of the five-line window.
	require.Equal(t, StageNone, DetectStage(lines, StageNone))
}

func TestDetectStageAllAgents(t *testing.T) {
	cases := map[string]Stage{
		"Coordinator is running...":        StagePlanner,
		"coordinator is running...":        StagePlanner,
		"Creative Agent is running...":     StageCreative,
		"Localization Agent is running...": StageLocalization,
		"Publishing Agent is running...":   StagePublishing,
		"Instagram Agent is running...":    StageInstagram,
		"  Instagram Agent is running...":  StageInstagram,
	}
	for line, want := range cases {
		require.Equal(t, want, DetectStage([]string{line}, StageNone), "line %q", line)
	}
	require.Equal(t, StageNone, DetectStage([]string{"Unknown Agent is running..."}, StageNone))
}
