package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"soulcircle/internal/domain/entity"
	"soulcircle/internal/domain/repository"
	"soulcircle/pkg/errors"
)

const (
	feelNotesCollection   = "feelNotes"
	moodEntriesCollection = "moodEntries"
)

type firestoreFeelNoteRepository struct {
	client *firestore.Client
}

// NewFirestoreFeelNoteRepository keeps notes under users/{author}/feelNotes.
func NewFirestoreFeelNoteRepository(client *firestore.Client) repository.FeelNoteRepository {
	return &firestoreFeelNoteRepository{
		client: client,
	}
}

func (r *firestoreFeelNoteRepository) notes(authorID string) *firestore.CollectionRef {
	return r.client.Collection(usersCollection).Doc(authorID).Collection(feelNotesCollection)
}

func (r *firestoreFeelNoteRepository) Create(ctx context.Context, note *entity.FeelNote) error {
	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	now := time.Now()
	note.CreatedAt = now
	note.UpdatedAt = now

	if _, err := r.notes(note.AuthorID).Doc(note.ID).Set(ctx, note); err != nil {
		return errors.Internal("Failed to create feel note", err)
	}
	return nil
}

func (r *firestoreFeelNoteRepository) ListByAuthor(ctx context.Context, authorID string, limit int) ([]*entity.FeelNote, error) {
	query := r.notes(authorID).OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	notes := make([]*entity.FeelNote, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate feel notes", err)
		}

		var note entity.FeelNote
		if err := doc.DataTo(&note); err != nil {
			return nil, errors.Internal("Failed to parse feel note data", err)
		}
		note.ID = doc.Ref.ID
		notes = append(notes, &note)
	}
	return notes, nil
}

// FindByID runs a collection group query over every user's notes.
func (r *firestoreFeelNoteRepository) FindByID(ctx context.Context, noteID string) (*entity.FeelNote, error) {
	iter := r.client.CollectionGroup(feelNotesCollection).Where("id", "==", noteID).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, errors.NotFound("FeelNote", nil)
	}
	if err != nil {
		return nil, errors.Internal("Failed to find feel note", err)
	}

	var note entity.FeelNote
	if err := doc.DataTo(&note); err != nil {
		return nil, errors.Internal("Failed to parse feel note data", err)
	}
	note.ID = doc.Ref.ID
	if note.AuthorID == "" && doc.Ref.Parent != nil && doc.Ref.Parent.Parent != nil {
		note.AuthorID = doc.Ref.Parent.Parent.ID
	}
	return &note, nil
}

func (r *firestoreFeelNoteRepository) IncrementLikes(ctx context.Context, authorID, noteID string) (int, error) {
	ref := r.notes(authorID).Doc(noteID)

	var likes int
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return errors.NotFound("FeelNote", err)
			}
			return err
		}

		var note entity.FeelNote
		if err := doc.DataTo(&note); err != nil {
			return err
		}
		likes = note.Likes + 1
		return tx.Update(ref, []firestore.Update{
			{Path: "likes", Value: likes},
			{Path: "updatedAt", Value: time.Now()},
		})
	})
	if err != nil {
		return 0, errors.Wrap(err, "Failed to like feel note")
	}
	return likes, nil
}

type firestoreMoodRepository struct {
	client *firestore.Client
}

// NewFirestoreMoodRepository keeps entries under users/{uid}/moodEntries.
func NewFirestoreMoodRepository(client *firestore.Client) repository.MoodRepository {
	return &firestoreMoodRepository{
		client: client,
	}
}

func (r *firestoreMoodRepository) entries(userID string) *firestore.CollectionRef {
	return r.client.Collection(usersCollection).Doc(userID).Collection(moodEntriesCollection)
}

func (r *firestoreMoodRepository) Create(ctx context.Context, entry *entity.MoodEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.Timestamp = time.Now()

	if _, err := r.entries(entry.UserID).Doc(entry.ID).Set(ctx, entry); err != nil {
		return errors.Internal("Failed to create mood entry", err)
	}
	return nil
}

func decodeMoods(iter *firestore.DocumentIterator) ([]*entity.MoodEntry, error) {
	defer iter.Stop()

	entries := make([]*entity.MoodEntry, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate mood entries", err)
		}

		var entry entity.MoodEntry
		if err := doc.DataTo(&entry); err != nil {
			return nil, errors.Internal("Failed to parse mood entry", err)
		}
		entry.ID = doc.Ref.ID
		entries = append(entries, &entry)
	}
	return entries, nil
}

func (r *firestoreMoodRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entity.MoodEntry, error) {
	query := r.entries(userID).OrderBy("timestamp", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}
	return decodeMoods(query.Documents(ctx))
}

// GetByDate returns the latest entry logged for date.
func (r *firestoreMoodRepository) GetByDate(ctx context.Context, userID, date string) (*entity.MoodEntry, error) {
	entries, err := decodeMoods(r.entries(userID).Where("date", "==", date).Documents(ctx))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.NotFound("Mood entry", nil)
	}

	latest := entries[0]
	for _, e := range entries[1:] {
		if e.Timestamp.After(latest.Timestamp) {
			latest = e
		}
	}
	return latest, nil
}
