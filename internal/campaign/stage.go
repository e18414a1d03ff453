package campaign

import (
	"regexp"
	"strings"
)

// Stage identifies the currently executing producer in the five-step
// campaign pipeline.
type Stage string

const (
	StageNone         Stage = "none"
	StagePlanner      Stage = "campaign_planner"
	StageCreative     Stage = "creative"
	StageLocalization Stage = "localization"
	StagePublishing   Stage = "publishing"
	StageInstagram    Stage = "instagram"
)

// StageWindow is how many recent chat lines the detector scans.
const StageWindow = 5

// The backend announces stage hand-offs only as free-text status lines of the
// form "<agent> is running...". There is no structured stage field on the
// wire, so this lookup is the single place a renamed agent would have to be
// chased. TODO: drop the heuristic when the backend grows a first-class
// stage field.
var stageByAgent = map[string]Stage{
	"coordinator":        StagePlanner,
	"creative agent":     StageCreative,
	"localization agent": StageLocalization,
	"publishing agent":   StagePublishing,
	"instagram agent":    StageInstagram,
}

var runningLine = regexp.MustCompile(`(?i)^\s*(.+?)\s+is running\.\.\.`)

// DetectStage scans the most recent chat lines, newest first, for a stage
// announcement. The newest match wins. Without a match the previous stage is
// kept; the detector never resets to StageNone on its own.
func DetectStage(recentChat []string, prev Stage) Stage {
	window := recentChat
	if len(window) > StageWindow {
		window = window[len(window)-StageWindow:]
	}
	for i := len(window) - 1; i >= 0; i-- {
		if stage, ok := matchStageLine(window[i]); ok {
			return stage
		}
	}
	return prev
}

func matchStageLine(line string) (Stage, bool) {
	groups := runningLine.FindStringSubmatch(line)
	if groups == nil {
		return StageNone, false
	}
	name := strings.ToLower(strings.TrimSpace(groups[1]))
	stage, ok := stageByAgent[name]
	return stage, ok
}
