package entity

import (
	"strings"
	"time"
)

const (
	GroupKindRoom   = "room"
	GroupKindCircle = "circle"
)

const (
	RoleOwner  = "owner"
	RoleMod    = "mod"
	RoleMember = "member"
)

type Group struct {
	ID            string            `json:"id" firestore:"id"`
	Kind          string            `json:"kind" firestore:"kind"` // "room", "circle"
	Name          string            `json:"name" firestore:"name"`
	Description   string            `json:"description" firestore:"description"`
	Topic         string            `json:"topic" firestore:"topic"`
	Tags          []string          `json:"tags,omitempty" firestore:"tags,omitempty"`
	Color         string            `json:"color,omitempty" firestore:"color,omitempty"`
	Members       []string          `json:"members" firestore:"members"`
	MemberCount   int               `json:"member_count" firestore:"memberCount"`
	MaxMembers    int               `json:"max_members" firestore:"maxMembers"` // 0 means unlimited
	Roles         map[string]string `json:"roles,omitempty" firestore:"roles,omitempty"`
	BannedUsers   []string          `json:"banned_users,omitempty" firestore:"bannedUsers,omitempty"`
	InviteCode    string            `json:"invite_code" firestore:"inviteCode"`
	CreatedBy     string            `json:"created_by" firestore:"createdBy"`
	CreatorName   string            `json:"creator_name,omitempty" firestore:"creatorName,omitempty"`
	MeetingDay    string            `json:"meeting_day,omitempty" firestore:"meetingDay,omitempty"`
	MeetingTime   string            `json:"meeting_time,omitempty" firestore:"meetingTime,omitempty"`
	Facilitator   string            `json:"facilitator,omitempty" firestore:"facilitator,omitempty"`
	IsUserCreated bool              `json:"is_user_created" firestore:"isUserCreated"`
	IsDeleted     bool              `json:"is_deleted" firestore:"isDeleted"`
	DeletedAt     time.Time         `json:"deleted_at,omitempty" firestore:"deletedAt,omitempty"`
	LastMessage   *LastMessage      `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	CreatedAt     time.Time         `json:"created_at" firestore:"createdAt"`
	UpdatedAt     time.Time         `json:"updated_at" firestore:"updatedAt"`
}

// LastMessage is the denormalized preview kept on groups and conversations.
type LastMessage struct {
	Text       string    `json:"text" firestore:"text"`
	SenderID   string    `json:"sender_id" firestore:"senderId"`
	SenderName string    `json:"sender_name,omitempty" firestore:"senderName,omitempty"`
	Timestamp  time.Time `json:"timestamp" firestore:"timestamp"`
}

type GroupMember struct {
	UserID    string    `json:"user_id" firestore:"userId"`
	UserName  string    `json:"user_name" firestore:"userName"`
	Role      string    `json:"role" firestore:"role"`
	JoinedAt  time.Time `json:"joined_at" firestore:"joinedAt"`
	LeftAt    time.Time `json:"left_at,omitempty" firestore:"leftAt,omitempty"`
	IsActive  bool      `json:"is_active" firestore:"isActive"`
	IsCreator bool      `json:"is_creator" firestore:"isCreator"`
}

func (g *Group) IsMember(userID string) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}

func (g *Group) IsBanned(userID string) bool {
	for _, b := range g.BannedUsers {
		if b == userID {
			return true
		}
	}
	return false
}

func (g *Group) IsFull() bool {
	return g.MaxMembers > 0 && g.MemberCount >= g.MaxMembers
}

// RoleOf returns the member's role, or "" for non-members.
func (g *Group) RoleOf(userID string) string {
	if !g.IsMember(userID) {
		return ""
	}
	if role, ok := g.Roles[userID]; ok {
		return role
	}
	if userID == g.CreatedBy {
		return RoleOwner
	}
	return RoleMember
}

func (g *Group) CanModerate(userID string) bool {
	role := g.RoleOf(userID)
	return role == RoleOwner || role == RoleMod
}

// AddMember appends userID and keeps MemberCount equal to len(Members).
func (g *Group) AddMember(userID, role string) {
	g.Members = append(g.Members, userID)
	g.MemberCount = len(g.Members)
	if g.Roles == nil {
		g.Roles = make(map[string]string)
	}
	g.Roles[userID] = role
}

// RemoveMember drops userID and keeps MemberCount equal to len(Members).
func (g *Group) RemoveMember(userID string) {
	members := g.Members[:0]
	for _, m := range g.Members {
		if m != userID {
			members = append(members, m)
		}
	}
	g.Members = members
	g.MemberCount = len(g.Members)
	delete(g.Roles, userID)
}

// Matches reports whether term occurs in the name, description, topic or tags.
func (g *Group) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(g.Name), term) ||
		strings.Contains(strings.ToLower(g.Description), term) ||
		strings.Contains(strings.ToLower(g.Topic), term) {
		return true
	}
	for _, tag := range g.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

type GroupFilter struct {
	Kind     string
	MemberID string
	Search   string
	Limit    int
}

// Accepts applies the filter to a non-deleted group.
func (f GroupFilter) Accepts(g *Group) bool {
	if g.IsDeleted {
		return false
	}
	if f.Kind != "" && g.Kind != f.Kind {
		return false
	}
	if f.MemberID != "" && !g.IsMember(f.MemberID) {
		return false
	}
	return g.Matches(f.Search)
}
