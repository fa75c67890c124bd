package models

import "time"

// Note is a note as stored. UserID is a weak reference to a User.
type Note struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// NoteView is a note whose owner reference has been resolved. Owner is nil
// when the reference does not point at an existing user.
type NoteView struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Owner     *Owner    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
