package entity

import "time"

const (
	LogGroup = "group"
	LogDM    = "dm"
)

// LogRef addresses one message log: a group's or a DM conversation's.
type LogRef struct {
	Kind string
	ID   string
}

func GroupLog(groupID string) LogRef { return LogRef{Kind: LogGroup, ID: groupID} }

func DMLog(conversationID string) LogRef { return LogRef{Kind: LogDM, ID: conversationID} }

func (r LogRef) String() string { return r.Kind + "/" + r.ID }

type Message struct {
	ID         string            `json:"id" firestore:"id"`
	LogID      string            `json:"log_id" firestore:"logId"`
	SenderID   string            `json:"sender_id" firestore:"senderId"`
	SenderName string            `json:"sender_name,omitempty" firestore:"senderName,omitempty"`
	Text       string            `json:"text" firestore:"text"`
	Timestamp  time.Time         `json:"timestamp" firestore:"timestamp,serverTimestamp"`
	Reactions  map[string]string `json:"reactions" firestore:"reactions"`
	Edited     bool              `json:"edited" firestore:"edited"`
	EditedAt   time.Time         `json:"edited_at,omitempty" firestore:"editedAt,omitempty"`
	Deleted    bool              `json:"deleted" firestore:"deleted"`
	DeletedAt  time.Time         `json:"deleted_at,omitempty" firestore:"deletedAt,omitempty"`
	Read       bool              `json:"read,omitempty" firestore:"read,omitempty"`
}

// VisibleMessages drops soft-deleted messages, keeping order.
func VisibleMessages(msgs []*Message) []*Message {
	out := make([]*Message, 0, len(msgs))
	for _, m := range msgs {
		if !m.Deleted {
			out = append(out, m)
		}
	}
	return out
}
