package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"soulcircle/internal/domain/entity"
	"soulcircle/internal/domain/repository"
	"soulcircle/pkg/errors"
)

type userRepository struct {
	s *Store
}

func NewUserRepository(s *Store) repository.UserRepository {
	return &userRepository{s: s}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.users[user.ID]; exists {
		return errors.Conflict("user already exists")
	}
	now := r.s.now()
	user.CreatedAt = now
	user.LastLoginAt = now
	user.UpdatedAt = now
	c := *user
	r.s.users[user.ID] = &c
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	c := *u
	return &c, nil
}

func (r *userRepository) Update(ctx context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.ID]; !ok {
		return errors.NotFound("User", nil)
	}
	user.UpdatedAt = r.s.now()
	c := *user
	r.s.users[user.ID] = &c
	return nil
}

func (r *userRepository) TouchLogin(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return errors.NotFound("User", nil)
	}
	u.LastLoginAt = r.s.now()
	return nil
}

func (r *userRepository) ListIDs(ctx context.Context) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ids := make([]string, 0, len(r.s.users))
	for id := range r.s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

type feelNoteRepository struct {
	s *Store
}

func NewFeelNoteRepository(s *Store) repository.FeelNoteRepository {
	return &feelNoteRepository{s: s}
}

func (r *feelNoteRepository) Create(ctx context.Context, note *entity.FeelNote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	now := r.s.now()
	note.CreatedAt = now
	note.UpdatedAt = now
	c := *note
	c.Tags = cloneStrings(note.Tags)
	r.s.notes[note.AuthorID] = append(r.s.notes[note.AuthorID], &c)
	return nil
}

func (r *feelNoteRepository) ListByAuthor(ctx context.Context, authorID string, limit int) ([]*entity.FeelNote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	notes := r.s.notes[authorID]
	out := make([]*entity.FeelNote, 0, len(notes))
	for i := len(notes) - 1; i >= 0; i-- {
		c := *notes[i]
		out = append(out, &c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *feelNoteRepository) FindByID(ctx context.Context, noteID string) (*entity.FeelNote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, notes := range r.s.notes {
		for _, n := range notes {
			if n.ID == noteID {
				c := *n
				return &c, nil
			}
		}
	}
	return nil, errors.NotFound("FeelNote", nil)
}

func (r *feelNoteRepository) IncrementLikes(ctx context.Context, authorID, noteID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, n := range r.s.notes[authorID] {
		if n.ID == noteID {
			n.Likes++
			return n.Likes, nil
		}
	}
	return 0, errors.NotFound("FeelNote", nil)
}

type moodRepository struct {
	s *Store
}

func NewMoodRepository(s *Store) repository.MoodRepository {
	return &moodRepository{s: s}
}

func (r *moodRepository) Create(ctx context.Context, entry *entity.MoodEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.Timestamp = r.s.now()
	c := *entry
	r.s.moods[entry.UserID] = append(r.s.moods[entry.UserID], &c)
	return nil
}

func (r *moodRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entity.MoodEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	entries := r.s.moods[userID]
	out := make([]*entity.MoodEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		c := *entries[i]
		out = append(out, &c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *moodRepository) GetByDate(ctx context.Context, userID, date string) (*entity.MoodEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	entries := r.s.moods[userID]
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Date == date {
			c := *entries[i]
			return &c, nil
		}
	}
	return nil, errors.NotFound("Mood entry", nil)
}
