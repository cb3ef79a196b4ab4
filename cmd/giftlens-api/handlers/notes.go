package handlers

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/giftlens/giftlens/internal/notes"
	"github.com/giftlens/giftlens/internal/observability"
)

// NoteWriter writes cards and notes. *notes.Writer implements it.
type NoteWriter interface {
	GreetingCard(ctx context.Context, req notes.CardRequest) notes.Card
	ThankYou(ctx context.Context, req notes.ThankYouRequest) notes.Note
}

// NotesHandler serves greeting cards and thank-you notes.
type NotesHandler struct {
	logger   *observability.Logger
	writer   NoteWriter
	validate *validator.Validate
}

// NewNotesHandler creates a new notes handler.
func NewNotesHandler(logger *observability.Logger, writer NoteWriter) *NotesHandler {
	return &NotesHandler{
		logger:   logger.WithComponent("notes_handler"),
		writer:   writer,
		validate: newValidator(),
	}
}

// GreetingCard handles POST /greeting-card.
func (h *NotesHandler) GreetingCard(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.WithContext(r.Context())

	var req notes.CardRequest
	if msg, err := decodeAndValidate(w, r, h.validate, &req); err != nil {
		writeError(w, logger, http.StatusBadRequest, msg, err.Error())
		return
	}

	writeJSON(w, logger, http.StatusOK, h.writer.GreetingCard(r.Context(), req))
}

// ThankYou handles POST /thank-you.
func (h *NotesHandler) ThankYou(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.WithContext(r.Context())

	var req notes.ThankYouRequest
	if msg, err := decodeAndValidate(w, r, h.validate, &req); err != nil {
		writeError(w, logger, http.StatusBadRequest, msg, err.Error())
		return
	}

	writeJSON(w, logger, http.StatusOK, h.writer.ThankYou(r.Context(), req))
}
