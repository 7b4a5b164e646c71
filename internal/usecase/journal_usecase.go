package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"soulcircle/internal/domain/entity"
	"soulcircle/internal/domain/repository"
	"soulcircle/pkg/errors"
)

const (
	defaultNoteLimit      = 50
	defaultCommunityLimit = 100
	communityPerAuthor    = 20
	statsSampleLimit      = 1000
	defaultMoodLimit      = 100
)

type FeelNoteUseCase struct {
	noteRepo repository.FeelNoteRepository
	userRepo repository.UserRepository
	now      func() time.Time
}

func NewFeelNoteUseCase(noteRepo repository.FeelNoteRepository, userRepo repository.UserRepository) *FeelNoteUseCase {
	return &FeelNoteUseCase{
		noteRepo: noteRepo,
		userRepo: userRepo,
		now:      time.Now,
	}
}

type SaveFeelNoteInput struct {
	Title       string   `json:"title" validate:"max=120"`
	Content     string   `json:"content" validate:"required,max=5000"`
	Mood        string   `json:"mood" validate:"max=30"`
	Tags        []string `json:"tags" validate:"max=10,dive,max=30"`
	IsAnonymous bool     `json:"is_anonymous"`
}

func (uc *FeelNoteUseCase) Save(ctx context.Context, authorID string, input SaveFeelNoteInput) (*entity.FeelNote, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, errors.BadRequest("Content is required", nil)
	}

	note := &entity.FeelNote{
		AuthorID:    authorID,
		Title:       strings.TrimSpace(input.Title),
		Content:     content,
		Mood:        input.Mood,
		Tags:        input.Tags,
		IsAnonymous: input.IsAnonymous,
	}
	if err := uc.noteRepo.Create(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

func (uc *FeelNoteUseCase) ListMine(ctx context.Context, authorID string, limit int) ([]*entity.FeelNote, error) {
	if limit <= 0 {
		limit = defaultNoteLimit
	}
	return uc.noteRepo.ListByAuthor(ctx, authorID, limit)
}

// Community gathers the latest notes of every user, newest first, with the
// author removed.
func (uc *FeelNoteUseCase) Community(ctx context.Context, limit int) ([]*entity.FeelNote, error) {
	if limit <= 0 {
		limit = defaultCommunityLimit
	}

	authors, err := uc.userRepo.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	var notes []*entity.FeelNote
	for _, authorID := range authors {
		own, err := uc.noteRepo.ListByAuthor(ctx, authorID, communityPerAuthor)
		if err != nil {
			return nil, err
		}
		for _, n := range own {
			notes = append(notes, n.Anonymized())
		}
	}

	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})
	if len(notes) > limit {
		notes = notes[:limit]
	}
	if notes == nil {
		notes = []*entity.FeelNote{}
	}
	return notes, nil
}

// Like adds one like and returns the new total.
func (uc *FeelNoteUseCase) Like(ctx context.Context, noteID string) (int, error) {
	note, err := uc.noteRepo.FindByID(ctx, noteID)
	if err != nil {
		return 0, err
	}
	return uc.noteRepo.IncrementLikes(ctx, note.AuthorID, note.ID)
}

func (uc *FeelNoteUseCase) Stats(ctx context.Context) (*entity.FeelNoteStats, error) {
	notes, err := uc.Community(ctx, statsSampleLimit)
	if err != nil {
		return nil, err
	}

	dayAgo := uc.now().Add(-24 * time.Hour)
	stats := &entity.FeelNoteStats{TotalNotes: len(notes)}
	for _, n := range notes {
		stats.TotalLikes += n.Likes
		if n.CreatedAt.After(dayAgo) {
			stats.RecentNotes++
		}
	}
	return stats, nil
}

type MoodUseCase struct {
	moodRepo repository.MoodRepository
	now      func() time.Time
}

func NewMoodUseCase(moodRepo repository.MoodRepository) *MoodUseCase {
	return &MoodUseCase{
		moodRepo: moodRepo,
		now:      time.Now,
	}
}

type SaveMoodInput struct {
	Mood  string `json:"mood" validate:"required,max=30"`
	Score int    `json:"score" validate:"required,min=1,max=10"`
	Note  string `json:"note" validate:"max=1000"`
}

func (uc *MoodUseCase) Save(ctx context.Context, userID string, input SaveMoodInput) (*entity.MoodEntry, error) {
	if input.Score < 1 || input.Score > 10 {
		return nil, errors.BadRequest("Score must be between 1 and 10", nil)
	}

	entry := &entity.MoodEntry{
		UserID: userID,
		Mood:   input.Mood,
		Score:  input.Score,
		Note:   input.Note,
		Date:   uc.now().Format(entity.MoodDateLayout),
	}
	if err := uc.moodRepo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (uc *MoodUseCase) List(ctx context.Context, userID string, limit int) ([]*entity.MoodEntry, error) {
	if limit <= 0 {
		limit = defaultMoodLimit
	}
	return uc.moodRepo.ListByUser(ctx, userID, limit)
}

// Today returns today's latest entry, or nil when none was logged.
func (uc *MoodUseCase) Today(ctx context.Context, userID string) (*entity.MoodEntry, error) {
	entry, err := uc.moodRepo.GetByDate(ctx, userID, uc.now().Format(entity.MoodDateLayout))
	if errors.Is(err, errors.CodeNotFound) {
		return nil, nil
	}
	return entry, err
}
