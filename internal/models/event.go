package models

import "time"

const (
	NoteCreated = "note.created"
	NoteUpdated = "note.updated"
	NoteDeleted = "note.deleted"
)

// NoteEvent describes a change to a note, pushed to live feed subscribers.
type NoteEvent struct {
	Type      string    `json:"type"` // e.g., "note.created"
	NoteID    string    `json:"noteId"`
	UserID    string    `json:"userId"`
	Note      *Note     `json:"note,omitempty"` // nil for deletions
	CreatedAt time.Time `json:"createdAt"`
}
