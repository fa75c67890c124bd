package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/notes-be/internal/models"
	"github.com/isdelr/notes-be/internal/services"
)

// NoteHandler handles HTTP requests for notes.
type NoteHandler struct {
	service services.NoteServiceProvider
}

// NewNoteHandler creates a new NoteHandler.
func NewNoteHandler(service services.NoteServiceProvider) *NoteHandler {
	return &NoteHandler{service: service}
}

// CreateNotePayload is the body of a create request.
type CreateNotePayload struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	UserID  string `json:"userId"`
}

// UpdateNotePayload is the body of an update request. Omitted fields are
// left unchanged.
type UpdateNotePayload struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// NoteResponse acknowledges a write and carries the stored note.
type NoteResponse struct {
	Message string      `json:"message"`
	Note    models.Note `json:"note"`
}

// GetAll lists every note with its owner resolved.
func (h *NoteHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	notes, err := h.service.GetAll(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, notes)
}

// Get returns one note with its owner resolved.
func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	note, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, note)
}

// Create stores a new note.
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload CreateNotePayload
	if err := decodeRequest(r, &payload); err != nil {
		respondError(w, r, err)
		return
	}

	note, err := h.service.Create(r.Context(), payload.Title, payload.Content, payload.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, NoteResponse{Message: "Note created successfully", Note: note})
}

// Update changes a note's title and/or content.
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	var payload UpdateNotePayload
	if err := decodeRequest(r, &payload); err != nil {
		respondError(w, r, err)
		return
	}

	note, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), payload.Title, payload.Content)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, NoteResponse{Message: "Note updated successfully", Note: note})
}

// Delete removes a note.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, MessageResponse{Message: "Note deleted successfully"})
}
