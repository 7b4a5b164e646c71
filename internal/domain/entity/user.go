package entity

import "time"

type User struct {
	ID          string    `json:"id" firestore:"id"`
	DisplayName string    `json:"display_name" firestore:"displayName"`
	Email       string    `json:"email" firestore:"email"`
	PhotoURL    string    `json:"photo_url,omitempty" firestore:"photoURL,omitempty"`
	Bio         string    `json:"bio,omitempty" firestore:"bio,omitempty"`
	IsActive    bool      `json:"is_active" firestore:"isActive"`
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt"`
	LastLoginAt time.Time `json:"last_login_at" firestore:"lastLoginAt"`
	UpdatedAt   time.Time `json:"updated_at" firestore:"updatedAt"`
}
