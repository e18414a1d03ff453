package campaign

import "strings"

// Fold applies one patch to the state and returns the next state. It is a
// pure function: the input state is never mutated, and replaying the same
// message list always yields the same snapshot.
//
// Merge rules:
//   - brief: frozen once BriefIsFormatted is true; downstream stages echo the
//     brief back in their own patches and must not clobber the approved text.
//     Until frozen, a non-empty incoming brief replaces the prior value.
//   - media/localizations/schedule: replace-if-non-empty; an empty or absent
//     array never truncates artifacts that are already rendered.
//   - gates, instagramPost, published, error: last-write-wins.
//   - unrecognized fields: shallow-merge passthrough.
func Fold(state State, patch *Patch) State {
	if patch.IsZero() {
		return state
	}
	next := state.Clone()

	if !next.BriefIsFormatted {
		if patch.Brief != nil && strings.TrimSpace(*patch.Brief) != "" {
			next.Brief = *patch.Brief
		}
		if patch.IsFormattedBrief != nil {
			next.BriefIsFormatted = *patch.IsFormattedBrief
		}
	}

	if len(patch.Media) > 0 {
		next.Media = append([]MediaItem(nil), patch.Media...)
	}
	if len(patch.Localizations) > 0 {
		next.Localizations = append([]LocalizationItem(nil), patch.Localizations...)
	}
	if len(patch.Schedule) > 0 {
		next.Schedule = append([]ScheduleItem(nil), patch.Schedule...)
	}

	if patch.InstagramPost != nil {
		post := *patch.InstagramPost
		next.InstagramPost = &post
	}
	if patch.Published != nil {
		published := *patch.Published
		next.Published = &published
	}
	if patch.Error != nil {
		next.Error = *patch.Error
	}

	if patch.NeedsApproval != nil {
		next.NeedsApproval = *patch.NeedsApproval
	}
	if patch.NeedsCreativeApproval != nil {
		next.NeedsCreativeApproval = *patch.NeedsCreativeApproval
	}
	if patch.NeedsLocalizationApproval != nil {
		next.NeedsLocalizationApproval = *patch.NeedsLocalizationApproval
	}
	if patch.NeedsScheduleApproval != nil {
		next.NeedsScheduleApproval = *patch.NeedsScheduleApproval
	}

	if len(patch.Extra) > 0 {
		if next.Extra == nil {
			next.Extra = make(map[string]any, len(patch.Extra))
		}
		for key, value := range patch.Extra {
			next.Extra[key] = value
		}
	}

	return next
}
