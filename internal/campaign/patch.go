package campaign

import (
	"fmt"

	jsonx "campsync/internal/shared/json"
)

// Patch is one partial campaign_data update from the workflow backend.
// Nil pointers and empty slices mean "field absent from this patch".
type Patch struct {
	Brief            *string `json:"brief,omitempty"`
	IsFormattedBrief *bool   `json:"isFormattedBrief,omitempty"`

	Media         []MediaItem        `json:"media,omitempty"`
	Localizations []LocalizationItem `json:"localizations,omitempty"`
	Schedule      []ScheduleItem     `json:"schedule,omitempty"`

	InstagramPost *InstagramPost `json:"instagramPost,omitempty"`
	Published     *bool          `json:"published,omitempty"`
	Error         *string        `json:"error,omitempty"`

	NeedsApproval             *bool `json:"needsApproval,omitempty"`
	NeedsCreativeApproval     *bool `json:"needsCreativeApproval,omitempty"`
	NeedsLocalizationApproval *bool `json:"needsLocalizationApproval,omitempty"`
	NeedsScheduleApproval     *bool `json:"needsScheduleApproval,omitempty"`

	// Extra carries unrecognized top-level fields verbatim.
	Extra map[string]any `json:"-"`
}

// keyAliases maps wire spellings onto the canonical camelCase keys. The
// backend agents are not consistent about casing, and the publishing gate
// has shipped under two different names.
var keyAliases = map[string]string{
	"is_formatted_brief":          "isFormattedBrief",
	"instagram_post":              "instagramPost",
	"needs_approval":              "needsApproval",
	"needs_creative_approval":     "needsCreativeApproval",
	"needs_localization_approval": "needsLocalizationApproval",
	"needs_schedule_approval":     "needsScheduleApproval",
	"needs_publishing_approval":   "needsScheduleApproval",
	"needsPublishingApproval":     "needsScheduleApproval",
}

var knownKeys = map[string]struct{}{
	"brief":                     {},
	"isFormattedBrief":          {},
	"media":                     {},
	"localizations":             {},
	"schedule":                  {},
	"instagramPost":             {},
	"published":                 {},
	"error":                     {},
	"needsApproval":             {},
	"needsCreativeApproval":     {},
	"needsLocalizationApproval": {},
	"needsScheduleApproval":     {},
}

// ParsePatch converts a decoded campaign_data object into a typed Patch.
func ParsePatch(data map[string]any) (*Patch, error) {
	if data == nil {
		return nil, nil
	}

	canonical := make(map[string]any, len(data))
	for key, value := range data {
		if alias, ok := keyAliases[key]; ok {
			key = alias
		}
		canonical[key] = value
	}

	known := make(map[string]any, len(canonical))
	extra := make(map[string]any)
	for key, value := range canonical {
		if _, ok := knownKeys[key]; ok {
			known[key] = value
		} else {
			extra[key] = value
		}
	}

	raw, err := jsonx.Marshal(known)
	if err != nil {
		return nil, fmt.Errorf("encode campaign_data: %w", err)
	}
	var patch Patch
	if err := jsonx.Unmarshal(raw, &patch); err != nil {
		return nil, fmt.Errorf("decode campaign_data: %w", err)
	}
	if len(extra) > 0 {
		patch.Extra = extra
	}
	return &patch, nil
}

// IsZero reports whether the patch carries no fields at all.
func (p *Patch) IsZero() bool {
	if p == nil {
		return true
	}
	return p.Brief == nil && p.IsFormattedBrief == nil &&
		len(p.Media) == 0 && len(p.Localizations) == 0 && len(p.Schedule) == 0 &&
		p.InstagramPost == nil && p.Published == nil && p.Error == nil &&
		p.NeedsApproval == nil && p.NeedsCreativeApproval == nil &&
		p.NeedsLocalizationApproval == nil && p.NeedsScheduleApproval == nil &&
		len(p.Extra) == 0
}
