package repository

import (
	"context"

	"soulcircle/internal/domain/entity"
)

type FeelNoteRepository interface {
	Create(ctx context.Context, note *entity.FeelNote) error
	ListByAuthor(ctx context.Context, authorID string, limit int) ([]*entity.FeelNote, error)
	// FindByID locates a note without knowing its author.
	FindByID(ctx context.Context, noteID string) (*entity.FeelNote, error)
	IncrementLikes(ctx context.Context, authorID, noteID string) (int, error)
}

type MoodRepository interface {
	Create(ctx context.Context, entry *entity.MoodEntry) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*entity.MoodEntry, error)
	GetByDate(ctx context.Context, userID, date string) (*entity.MoodEntry, error)
}
