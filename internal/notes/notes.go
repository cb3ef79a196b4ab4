// Package notes writes greeting cards and thank-you notes with the text
// generator, falling back to canned text when it fails.
package notes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/giftlens/giftlens/internal/llm"
	"github.com/giftlens/giftlens/internal/observability"
)

// CardRequest asks for a greeting card.
type CardRequest struct {
	RecipientName   string  `json:"recipient_name" validate:"required"`
	Occasion        string  `json:"occasion" validate:"required"`
	MessageStyle    string  `json:"message_style" validate:"required"` // funny, formal, emotional, romantic
	PersonalMessage *string `json:"personal_message,omitempty"`
}

// CardContent is the body of a card.
type CardContent struct {
	Title     string `json:"title"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

// Card is a generated greeting card.
type Card struct {
	CardID    string      `json:"card_id"`
	Content   CardContent `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

// ThankYouRequest asks for a thank-you note.
type ThankYouRequest struct {
	GiftName     string `json:"gift_name" validate:"required"`
	SenderName   string `json:"sender_name" validate:"required"`
	Occasion     string `json:"occasion" validate:"required"`
	MessageStyle string `json:"message_style" validate:"required"`
}

// Note is a generated thank-you note.
type Note struct {
	NoteID    string    `json:"note_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Writer generates cards and notes.
type Writer struct {
	gen    llm.Generator
	logger *observability.Logger
	now    func() time.Time
}

// NewWriter creates a Writer.
func NewWriter(gen llm.Generator, logger *observability.Logger) *Writer {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Writer{gen: gen, logger: logger.WithComponent("notes"), now: time.Now}
}

// GreetingCard writes a card. It never fails: unparsable output becomes the
// card message under a default title, and generator errors yield a generic
// card.
func (w *Writer) GreetingCard(ctx context.Context, req CardRequest) Card {
	card := Card{CardID: uuid.NewString(), CreatedAt: w.now().UTC()}

	personal := "None provided"
	if req.PersonalMessage != nil && strings.TrimSpace(*req.PersonalMessage) != "" {
		personal = *req.PersonalMessage
	}

	system := fmt.Sprintf(`You are an expert greeting card writer. Create a personalized greeting card for %s.
Style: %s
Recipient: %s
Personal message: %s

Return a JSON object with:
- title: card title
- message: main greeting message
- signature: suggested signature`, req.Occasion, req.MessageStyle, req.RecipientName, personal)

	text, err := w.gen.Generate(ctx, llm.Request{
		System:      system,
		User:        fmt.Sprintf("Create a %s greeting card for %s for %s", req.MessageStyle, req.RecipientName, req.Occasion),
		MaxTokens:   500,
		Temperature: 0.7,
		Purpose:     "greeting_card",
	})
	if err != nil {
		w.logger.Warn().Err(err).Msg("Greeting card generation failed, using generic card")
		card.Content = CardContent{Title: "Greeting Card", Message: "Happy occasion!", Signature: "Best wishes"}
		return card
	}

	if err := llm.DecodeJSON(text, &card.Content); err != nil || card.Content.Message == "" {
		card.Content = CardContent{
			Title:     fmt.Sprintf("Happy %s!", req.Occasion),
			Message:   strings.TrimSpace(text),
			Signature: "With love",
		}
	}
	return card
}

// ThankYou writes a thank-you note. Generator errors yield a short canned
// note.
func (w *Writer) ThankYou(ctx context.Context, req ThankYouRequest) Note {
	note := Note{NoteID: uuid.NewString(), CreatedAt: w.now().UTC()}

	system := fmt.Sprintf(`You are an expert at writing thank you notes. Create a %s thank you note.
Gift: %s
Sender: %s
Occasion: %s`, req.MessageStyle, req.GiftName, req.SenderName, req.Occasion)

	text, err := w.gen.Generate(ctx, llm.Request{
		System:      system,
		User:        fmt.Sprintf("Write a %s thank you note for %s from %s", req.MessageStyle, req.GiftName, req.SenderName),
		MaxTokens:   300,
		Temperature: 0.7,
		Purpose:     "thank_you",
	})
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			w.logger.Warn().Err(err).Msg("Thank-you note generation failed, using canned note")
		}
		note.Content = fmt.Sprintf("Thank you so much for the %s! It's perfect for %s.", req.GiftName, req.Occasion)
		return note
	}

	note.Content = text
	return note
}
