package entity

import "time"

type Presence struct {
	UserID      string    `json:"user_id"`
	Online      bool      `json:"online"`
	LastSeen    time.Time `json:"last_seen"`
	CurrentRoom string    `json:"current_room,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
}

// PresenceMeta is the caller-supplied part of a presence record.
type PresenceMeta struct {
	DisplayName string `json:"display_name,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// OnlineUsers filters a presence map down to the online records.
func OnlineUsers(presence map[string]*Presence) []*Presence {
	out := make([]*Presence, 0, len(presence))
	for _, p := range presence {
		if p.Online {
			out = append(out, p)
		}
	}
	return out
}

// TypingUsers lists typing users other than self.
func TypingUsers(typing map[string]bool, self string) []string {
	out := make([]string, 0, len(typing))
	for uid, on := range typing {
		if on && uid != self {
			out = append(out, uid)
		}
	}
	return out
}
