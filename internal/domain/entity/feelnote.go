package entity

import "time"

type FeelNote struct {
	ID          string    `json:"id" firestore:"id"`
	AuthorID    string    `json:"author_id,omitempty" firestore:"authorId"`
	Title       string    `json:"title,omitempty" firestore:"title,omitempty"`
	Content     string    `json:"content" firestore:"content"`
	Mood        string    `json:"mood,omitempty" firestore:"mood,omitempty"`
	Tags        []string  `json:"tags,omitempty" firestore:"tags,omitempty"`
	IsAnonymous bool      `json:"is_anonymous" firestore:"isAnonymous"`
	Likes       int       `json:"likes" firestore:"likes"`
	Comments    int       `json:"comments" firestore:"comments"`
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt   time.Time `json:"updated_at" firestore:"updatedAt"`
}

// Anonymized returns a copy without the author.
func (n *FeelNote) Anonymized() *FeelNote {
	c := *n
	c.AuthorID = ""
	return &c
}

type FeelNoteStats struct {
	TotalNotes  int `json:"total_notes"`
	TotalLikes  int `json:"total_likes"`
	RecentNotes int `json:"recent_notes"`
}
