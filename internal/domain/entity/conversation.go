package entity

import (
	"sort"
	"strings"
	"time"
)

const ConversationIDSeparator = "_"

type Conversation struct {
	ID           string         `json:"id" firestore:"id"`
	Participants []string       `json:"participants" firestore:"participants"`
	LastMessage  *LastMessage   `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	UnreadCount  map[string]int `json:"unread_count" firestore:"unreadCount"`
	CreatedAt    time.Time      `json:"created_at" firestore:"createdAt"`
	UpdatedAt    time.Time      `json:"updated_at" firestore:"updatedAt"`
}

// ConversationID is the lexicographically sorted pair joined by "_".
func ConversationID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, ConversationIDSeparator)
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not userID.
func (c *Conversation) OtherParticipant(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

func (c *Conversation) lastActivity() time.Time {
	if c.LastMessage != nil {
		return c.LastMessage.Timestamp
	}
	return time.Time{}
}

// SortConversations orders by last message time, newest first.
func SortConversations(convs []*Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].lastActivity().After(convs[j].lastActivity())
	})
}
