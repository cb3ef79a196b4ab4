package recommend

import (
	"fmt"
	"strconv"
	"strings"
)

const recipientAnalysisPrompt = `You are an expert at analyzing gift requests. Extract detailed information about the recipient from the user's prompt.
Return a JSON object with these fields:
- age: number or null
- gender: string or null
- interests: array of strings
- hobbies: array of strings
- relationship: string
- personality: array of strings
- lifestyle: array of strings
- preferences: array of strings`

const notSpecified = "Not specified"

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return notSpecified
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func systemPrompt(count int, profile RecipientProfile, occasion OccasionInfo) string {
	age := ""
	if profile.Age != nil {
		age = strconv.Itoa(*profile.Age)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert gift recommendation AI. Given a user prompt and a list of products, select the %d most suitable products for the user.\n\n", count)
	b.WriteString("Recipient Profile:\n")
	fmt.Fprintf(&b, "- Age: %s\n", orNotSpecified(age))
	fmt.Fprintf(&b, "- Interests: %s\n", orNotSpecified(strings.Join(profile.Interests, ", ")))
	fmt.Fprintf(&b, "- Hobbies: %s\n", orNotSpecified(strings.Join(profile.Hobbies, ", ")))
	fmt.Fprintf(&b, "- Relationship: %s\n", orNotSpecified(deref(profile.Relationship)))
	fmt.Fprintf(&b, "- Personality: %s\n\n", orNotSpecified(strings.Join(profile.Personality, ", ")))
	fmt.Fprintf(&b, "Occasion: %s\n", occasion.Occasion)
	fmt.Fprintf(&b, "Mood: %s\n\n", orNotSpecified(deref(occasion.Mood)))
	b.WriteString("For each recommendation, include:\n")
	b.WriteString("1. Product name\n")
	b.WriteString("2. Why this gift is perfect (explainability)\n")
	b.WriteString("3. How it matches the recipient's profile\n")
	b.WriteString("4. Why it fits the occasion\n\n")
	b.WriteString("Only recommend products from the provided list.")
	return b.String()
}

func userPrompt(prompt, products string, count int) string {
	return fmt.Sprintf("User prompt: %s\n\nProduct list:\n%s\n\nReturn a numbered list of the top %d product recommendations with detailed explanations.",
		prompt, products, count)
}
