package retrieval

import "strings"

// Compose builds the enriched query: the prompt, then the recipient's
// interests, hobbies and personality, then the occasion label and mood.
// Absent or empty components are omitted.
func Compose(prompt string, profile *RecipientProfile, occasion *OccasionInfo) string {
	parts := make([]string, 0, 6)
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}

	add(prompt)
	if profile != nil {
		add(joinNonEmpty(profile.Interests))
		add(joinNonEmpty(profile.Hobbies))
		add(joinNonEmpty(profile.Personality))
	}
	if occasion != nil {
		add(occasion.Occasion)
		if occasion.Mood != nil {
			add(*occasion.Mood)
		}
	}
	return strings.Join(parts, " ")
}

func joinNonEmpty(items []string) string {
	kept := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, " ")
}
