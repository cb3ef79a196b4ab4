// Package retrieval composes the enriched query and selects candidate
// products through semantic ranking with keyword and random fallbacks.
package retrieval

// RecipientProfile describes the gift recipient. Every field is optional and
// absence means unknown.
type RecipientProfile struct {
	Age          *int     `json:"age,omitempty" validate:"omitempty,gte=0,lte=150"`
	Gender       *string  `json:"gender,omitempty"`
	Interests    []string `json:"interests"`
	Hobbies      []string `json:"hobbies"`
	Personality  []string `json:"personality"`
	Lifestyle    []string `json:"lifestyle"`
	Preferences  []string `json:"preferences"`
	Relationship *string  `json:"relationship,omitempty"`
}

// Normalized returns a copy with nil lists replaced by empty ones so that the
// profile serialises with [] rather than null.
func (p RecipientProfile) Normalized() RecipientProfile {
	for _, l := range []*[]string{&p.Interests, &p.Hobbies, &p.Personality, &p.Lifestyle, &p.Preferences} {
		if *l == nil {
			*l = []string{}
		}
	}
	return p
}

// OccasionInfo describes the occasion the gift is for.
type OccasionInfo struct {
	Occasion    string             `json:"occasion" validate:"required"`
	Mood        *string            `json:"mood,omitempty"`
	Formality   *string            `json:"formality,omitempty"`
	BudgetRange map[string]float64 `json:"budget_range,omitempty"`
}
