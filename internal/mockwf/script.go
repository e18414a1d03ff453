package mockwf

import "time"

// step is one scripted payload with the delay to wait before emitting it.
type step struct {
	delay   time.Duration
	payload map[string]any
}

// phase names the pipeline position a connection has reached, which decides
// what the next approve command plays.
type phase int

const (
	phaseIdle phase = iota
	phaseBriefPending
	phaseCreativePending
	phaseLocalizationPending
	phaseSchedulePending
	phaseDone
)

func chatStep(delay time.Duration, content string) step {
	return step{delay: delay, payload: map[string]any{"type": "workflow", "content": content}}
}

func systemStep(delay time.Duration, content string) step {
	return step{delay: delay, payload: map[string]any{"type": "system", "content": content}}
}

func plannerScript(prompt string) []step {
	return []step{
		systemStep(0, "Coordinator is running..."),
		chatStep(200*time.Millisecond, "Drafting a campaign brief for: "+prompt),
		{delay: 300 * time.Millisecond, payload: map[string]any{
			"type": "campaign_data",
			"campaign_data": map[string]any{
				"brief":            "Draft brief for " + prompt,
				"isFormattedBrief": false,
			},
		}},
		{delay: 400 * time.Millisecond, payload: map[string]any{
			"type": "approval_required",
			"campaign_data": map[string]any{
				"brief":            "## Campaign Brief\n\n" + prompt,
				"isFormattedBrief": true,
			},
		}},
	}
}

func creativeScript() []step {
	return []step{
		systemStep(0, "Creative Agent is running..."),
		{delay: 300 * time.Millisecond, payload: map[string]any{
			"type": "creative_approval_required",
			"campaign_data": map[string]any{
				"media": []map[string]any{
					{"type": "image", "url": "https://cdn.example/campaign/hero.png", "caption": "Hero shot", "hashtags": []string{"#promo"}},
					{"type": "video", "url": "https://cdn.example/campaign/teaser.mp4"},
				},
			},
		}},
	}
}

func localizationScript() []step {
	return []step{
		systemStep(0, "Localization Agent is running..."),
		{delay: 300 * time.Millisecond, payload: map[string]any{
			"type": "localization_approval_required",
			"campaign_data": map[string]any{
				"localizations": []map[string]any{
					{"locale": "de-DE", "caption": "Jetzt entdecken"},
					{"locale": "ja-JP", "caption": "今すぐチェック"},
				},
			},
		}},
	}
}

func publishingScript() []step {
	return []step{
		systemStep(0, "Publishing Agent is running..."),
		{delay: 300 * time.Millisecond, payload: map[string]any{
			"type": "publishing_approval_required",
			"campaign_data": map[string]any{
				"schedule": []map[string]any{
					{"platform": "instagram", "language": "en", "mediaRef": "hero.png", "postTime": "2026-09-01T09:00:00Z"},
					{"platform": "instagram", "language": "de", "mediaRef": "hero.png", "postTime": "2026-09-01T10:00:00Z"},
				},
			},
		}},
	}
}

func instagramScript() []step {
	return []step{
		systemStep(0, "Instagram Agent is running..."),
		{delay: 400 * time.Millisecond, payload: map[string]any{
			"type": "campaign_data",
			"campaign_data": map[string]any{
				"instagramPost": map[string]any{
					"caption":   "Hero shot",
					"mediaUrl":  "https://cdn.example/campaign/hero.png",
					"permalink": "https://instagram.example/p/abc123",
				},
				"published": true,
			},
		}},
		chatStep(500*time.Millisecond, "Campaign published."),
	}
}

func revisionScript(feedback string) []step {
	content := "Revising based on feedback..."
	if feedback != "" {
		content = "Revising based on feedback: " + feedback
	}
	return []step{systemStep(0, content)}
}
