package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/isdelr/notes-be/internal/database"
	"github.com/isdelr/notes-be/internal/models"
)

// NoteServiceProvider defines the interface for note services.
type NoteServiceProvider interface {
	Create(ctx context.Context, title, content, ownerID string) (models.Note, error)
	GetAll(ctx context.Context) ([]models.NoteView, error)
	GetByID(ctx context.Context, id string) (models.NoteView, error)
	Update(ctx context.Context, id string, title, content *string) (models.Note, error)
	Delete(ctx context.Context, id string) error
}

// EventPublisher receives note change events.
type EventPublisher interface {
	Publish(event models.NoteEvent)
}

// ownerField is the note field holding the owner's user id.
const ownerField = "userId"

// ownerProjection lists the user fields shown when a note's owner is resolved.
var ownerProjection = []string{"username", "email"}

// NoteService provides business logic for note management.
type NoteService struct {
	store  database.Gateway
	events EventPublisher
}

// NewNoteService creates a new NoteService. events may be nil.
func NewNoteService(store database.Gateway, events EventPublisher) *NoteService {
	return &NoteService{store: store, events: events}
}

// Create stores a new note. ownerID is kept as given; it is not checked
// against the users collection.
func (s *NoteService) Create(ctx context.Context, title, content, ownerID string) (models.Note, error) {
	const op = "services.NoteService.Create"

	doc, err := database.Encode(models.Note{
		Title:     title,
		Content:   content,
		UserID:    ownerID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return models.Note{}, fmt.Errorf("%s: %w", op, err)
	}
	delete(doc, database.IDField)

	stored, err := s.store.Insert(ctx, database.Notes, doc)
	if err != nil {
		return models.Note{}, fmt.Errorf("%s: %w", op, err)
	}
	note, err := decodeNote(op, stored)
	if err != nil {
		return models.Note{}, err
	}

	s.publish(models.NoteCreated, note.ID, note.UserID, &note)
	return note, nil
}

// GetAll returns every note with its owner resolved.
func (s *NoteService) GetAll(ctx context.Context) ([]models.NoteView, error) {
	const op = "services.NoteService.GetAll"

	docs, err := s.store.FindMany(ctx, database.Notes, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	notes := make([]models.NoteView, 0, len(docs))
	for _, doc := range docs {
		view, err := s.resolve(ctx, op, doc)
		if err != nil {
			return nil, err
		}
		notes = append(notes, view)
	}
	return notes, nil
}

// GetByID retrieves a single note with its owner resolved.
func (s *NoteService) GetByID(ctx context.Context, id string) (models.NoteView, error) {
	const op = "services.NoteService.GetByID"

	doc, err := s.store.FindByID(ctx, database.Notes, id)
	if err != nil {
		return models.NoteView{}, noteErr(op, err)
	}
	return s.resolve(ctx, op, doc)
}

// Update replaces the title and/or content of a note. Nil arguments
// leave the field unchanged; createdAt and the owner never change.
func (s *NoteService) Update(ctx context.Context, id string, title, content *string) (models.Note, error) {
	const op = "services.NoteService.Update"

	fields := database.Document{}
	if title != nil {
		fields["title"] = *title
	}
	if content != nil {
		fields["content"] = *content
	}

	var (
		doc database.Document
		err error
	)
	if len(fields) == 0 {
		doc, err = s.store.FindByID(ctx, database.Notes, id)
	} else {
		doc, err = s.store.UpdateByID(ctx, database.Notes, id, fields)
	}
	if err != nil {
		return models.Note{}, noteErr(op, err)
	}

	note, err := decodeNote(op, doc)
	if err != nil {
		return models.Note{}, err
	}
	s.publish(models.NoteUpdated, note.ID, note.UserID, &note)
	return note, nil
}

// Delete removes a note. Deleting a missing note is an error.
func (s *NoteService) Delete(ctx context.Context, id string) error {
	const op = "services.NoteService.Delete"

	doc, err := s.store.DeleteByID(ctx, database.Notes, id)
	if err != nil {
		return noteErr(op, err)
	}

	owner, _ := doc[ownerField].(string)
	s.publish(models.NoteDeleted, id, owner, nil)
	return nil
}

func (s *NoteService) resolve(ctx context.Context, op string, doc database.Document) (models.NoteView, error) {
	if err := database.ResolveReference(ctx, s.store, doc, ownerField, database.Users, ownerProjection...); err != nil {
		return models.NoteView{}, fmt.Errorf("%s: %w", op, err)
	}
	var view models.NoteView
	if err := database.Decode(doc, &view); err != nil {
		return models.NoteView{}, fmt.Errorf("%s: %w", op, err)
	}
	return view, nil
}

func (s *NoteService) publish(eventType, noteID, userID string, note *models.Note) {
	if s.events == nil {
		return
	}
	s.events.Publish(models.NoteEvent{
		Type:      eventType,
		NoteID:    noteID,
		UserID:    userID,
		Note:      note,
		CreatedAt: time.Now().UTC(),
	})
}

// noteErr maps gateway lookups that cannot name an existing note to
// ErrNoteNotFound.
func noteErr(op string, err error) error {
	if errors.Is(err, database.ErrNotFound) || errors.Is(err, database.ErrInvalidID) {
		return ErrNoteNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func decodeNote(op string, doc database.Document) (models.Note, error) {
	var note models.Note
	if err := database.Decode(doc, &note); err != nil {
		return models.Note{}, fmt.Errorf("%s: %w", op, err)
	}
	return note, nil
}
