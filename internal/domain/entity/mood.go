package entity

import "time"

const MoodDateLayout = "2006-01-02"

type MoodEntry struct {
	ID        string    `json:"id" firestore:"id"`
	UserID    string    `json:"user_id" firestore:"userId"`
	Mood      string    `json:"mood" firestore:"mood"`
	Score     int       `json:"score" firestore:"score"`
	Note      string    `json:"note,omitempty" firestore:"note,omitempty"`
	Date      string    `json:"date" firestore:"date"`
	Timestamp time.Time `json:"timestamp" firestore:"timestamp"`
}
