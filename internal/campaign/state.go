package campaign

// MediaType distinguishes generated campaign media.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// MediaItem is one creative artifact produced by the creative stage.
type MediaItem struct {
	Type     MediaType `json:"type"`
	URL      string    `json:"url"`
	Caption  string    `json:"caption,omitempty"`
	Hashtags []string  `json:"hashtags,omitempty"`
}

// LocalizationItem is one localized caption variant.
type LocalizationItem struct {
	Locale  string `json:"locale"`
	Caption string `json:"caption"`
	Image   string `json:"image,omitempty"`
}

// ScheduleItem is one planned post slot.
type ScheduleItem struct {
	Platform string `json:"platform"`
	Language string `json:"language"`
	MediaRef string `json:"mediaRef"`
	PostTime string `json:"postTime"`
}

// InstagramPost is the final publish artifact.
type InstagramPost struct {
	Caption   string `json:"caption,omitempty"`
	MediaURL  string `json:"mediaUrl,omitempty"`
	Permalink string `json:"permalink,omitempty"`
}

// State is the accumulated campaign snapshot folded from the message stream.
//
// Artifact collections are monotonically additive: once non-empty they are
// never truncated by a later incomplete patch. The brief freezes permanently
// the moment BriefIsFormatted flips true.
type State struct {
	Brief            string
	BriefIsFormatted bool

	Media         []MediaItem
	Localizations []LocalizationItem
	Schedule      []ScheduleItem

	InstagramPost *InstagramPost
	Published     *bool
	Error         string

	NeedsApproval             bool
	NeedsCreativeApproval     bool
	NeedsLocalizationApproval bool
	NeedsScheduleApproval     bool

	// Extra holds unrecognized scalar fields passed through shallow-merge so
	// new backend fields survive without code changes.
	Extra map[string]any
}

// AnyGateRaised reports whether any approval gate is currently blocking.
func (s State) AnyGateRaised() bool {
	return s.NeedsApproval || s.NeedsCreativeApproval ||
		s.NeedsLocalizationApproval || s.NeedsScheduleApproval
}

// Clone returns a deep copy so snapshots never alias internal slices.
func (s State) Clone() State {
	out := s
	if s.Media != nil {
		out.Media = make([]MediaItem, len(s.Media))
		copy(out.Media, s.Media)
		for i, item := range s.Media {
			if item.Hashtags != nil {
				out.Media[i].Hashtags = append([]string(nil), item.Hashtags...)
			}
		}
	}
	if s.Localizations != nil {
		out.Localizations = append([]LocalizationItem(nil), s.Localizations...)
	}
	if s.Schedule != nil {
		out.Schedule = append([]ScheduleItem(nil), s.Schedule...)
	}
	if s.InstagramPost != nil {
		post := *s.InstagramPost
		out.InstagramPost = &post
	}
	if s.Published != nil {
		published := *s.Published
		out.Published = &published
	}
	if s.Extra != nil {
		out.Extra = make(map[string]any, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = v
		}
	}
	return out
}
