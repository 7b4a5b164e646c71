package usecase

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"soulcircle/internal/domain/entity"
	"soulcircle/internal/domain/repository"
	"soulcircle/internal/infrastructure/metrics"
	"soulcircle/internal/infrastructure/ratelimit"
	"soulcircle/pkg/errors"
	"soulcircle/pkg/logger"
)

const (
	inviteCodeLength   = 8
	inviteCodeAttempts = 5
	inviteCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Actor is the authenticated caller of a usecase.
type Actor struct {
	ID   string
	Name string
}

type GroupUseCase struct {
	groupRepo   repository.GroupRepository
	rateLimiter *ratelimit.RateLimiter
	now         func() time.Time
	newCode     func() (string, error)
}

func NewGroupUseCase(groupRepo repository.GroupRepository, rateLimiter *ratelimit.RateLimiter) *GroupUseCase {
	return &GroupUseCase{
		groupRepo:   groupRepo,
		rateLimiter: rateLimiter,
		now:         time.Now,
		newCode:     randomInviteCode,
	}
}

type CreateGroupInput struct {
	Kind        string   `json:"kind" validate:"required,oneof=room circle"`
	Name        string   `json:"name" validate:"required,min=3,max=80"`
	Description string   `json:"description" validate:"max=500"`
	Topic       string   `json:"topic" validate:"max=80"`
	Tags        []string `json:"tags" validate:"max=10,dive,max=30"`
	Color       string   `json:"color" validate:"max=60"`
	MaxMembers  int      `json:"max_members" validate:"min=0,max=1000"`
	MeetingDay  string   `json:"meeting_day" validate:"max=30"`
	MeetingTime string   `json:"meeting_time" validate:"max=30"`
	Facilitator string   `json:"facilitator" validate:"max=80"`
}

type UpdateGroupInput struct {
	Name        *string  `json:"name" validate:"omitempty,min=3,max=80"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
	Topic       *string  `json:"topic" validate:"omitempty,max=80"`
	Tags        []string `json:"tags" validate:"omitempty,max=10,dive,max=30"`
	Color       *string  `json:"color" validate:"omitempty,max=60"`
	MaxMembers  *int     `json:"max_members" validate:"omitempty,min=0,max=1000"`
	MeetingDay  *string  `json:"meeting_day" validate:"omitempty,max=30"`
	MeetingTime *string  `json:"meeting_time" validate:"omitempty,max=30"`
	Facilitator *string  `json:"facilitator" validate:"omitempty,max=80"`
}

func randomInviteCode() (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(inviteCodeAlphabet)))
	for i := 0; i < inviteCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(inviteCodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

func (uc *GroupUseCase) uniqueInviteCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		code, err := uc.newCode()
		if err != nil {
			return "", errors.Internal("Failed to generate invite code", err)
		}
		exists, err := uc.groupRepo.InviteCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
		logger.Warn("Invite code collision on attempt %d", attempt+1)
	}
	return "", errors.Internal("Failed to generate a unique invite code", nil)
}

// Create stores a new group with actor as its owner and first member.
func (uc *GroupUseCase) Create(ctx context.Context, actor Actor, input CreateGroupInput) (*entity.Group, error) {
	if allowed, wait := uc.rateLimiter.Allow(actor.ID, ratelimit.ActionCreateGroup); !allowed {
		logger.Warn("Create group rate limited: user %s must wait %v", actor.ID, wait)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before creating another group")
	}

	code, err := uc.uniqueInviteCode(ctx)
	if err != nil {
		return nil, err
	}

	group := &entity.Group{
		Kind:          input.Kind,
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		Topic:         input.Topic,
		Tags:          input.Tags,
		Color:         input.Color,
		MaxMembers:    input.MaxMembers,
		InviteCode:    code,
		CreatedBy:     actor.ID,
		CreatorName:   actor.Name,
		MeetingDay:    input.MeetingDay,
		MeetingTime:   input.MeetingTime,
		Facilitator:   input.Facilitator,
		IsUserCreated: true,
	}
	group.AddMember(actor.ID, entity.RoleOwner)

	creator := &entity.GroupMember{
		UserID:    actor.ID,
		UserName:  actor.Name,
		Role:      entity.RoleOwner,
		IsActive:  true,
		IsCreator: true,
	}
	if err := uc.groupRepo.Create(ctx, group, creator); err != nil {
		return nil, err
	}

	logger.Info("Group %s (%s) created by %s", group.ID, group.Kind, actor.ID)
	return group, nil
}

func (uc *GroupUseCase) List(ctx context.Context, filter entity.GroupFilter) ([]*entity.Group, error) {
	return uc.groupRepo.List(ctx, filter)
}

// Get returns a non-deleted group.
func (uc *GroupUseCase) Get(ctx context.Context, groupID string) (*entity.Group, error) {
	group, err := uc.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.IsDeleted {
		return nil, errors.NotFound("Group", nil)
	}
	return group, nil
}

func (uc *GroupUseCase) Subscribe(ctx context.Context, filter entity.GroupFilter) (*repository.Subscription[[]*entity.Group], error) {
	return uc.groupRepo.Subscribe(ctx, filter)
}

// mutate runs fn on a live (non-deleted) group and records the outcome.
func (uc *GroupUseCase) mutate(ctx context.Context, op, groupID string, fn repository.GroupMutation) (*entity.Group, error) {
	group, err := uc.groupRepo.Mutate(ctx, groupID, func(g *entity.Group) (*entity.GroupMember, error) {
		if g.IsDeleted {
			return nil, errors.NotFound("Group", nil)
		}
		return fn(g)
	})

	result := "ok"
	if err != nil {
		result = errors.CodeOf(err)
	}
	metrics.ObserveMembership(op, result)

	return group, err
}

func (uc *GroupUseCase) Update(ctx context.Context, groupID string, actor Actor, input UpdateGroupInput) (*entity.Group, error) {
	return uc.mutate(ctx, "update", groupID, func(g *entity.Group) (*entity.GroupMember, error) {
		if g.CreatedBy != actor.ID {
			return nil, errors.NotAuthorized("Only the creator can update this group")
		}
		if input.MaxMembers != nil {
			if *input.MaxMembers > 0 && *input.MaxMembers < g.MemberCount {
				return nil, errors.BadRequest("max_members cannot be below the current member count", nil)
			}
			g.MaxMembers = *input.MaxMembers
		}
		if input.Name != nil {
			g.Name = strings.TrimSpace(*input.Name)
		}
		if input.Description != nil {
			g.Description = *input.Description
		}
		if input.Topic != nil {
			g.Topic = *input.Topic
		}
		if input.Tags != nil {
			g.Tags = input.Tags
		}
		if input.Color != nil {
			g.Color = *input.Color
		}
		if input.MeetingDay != nil {
			g.MeetingDay = *input.MeetingDay
		}
		if input.MeetingTime != nil {
			g.MeetingTime = *input.MeetingTime
		}
		if input.Facilitator != nil {
			g.Facilitator = *input.Facilitator
		}
		return nil, nil
	})
}

// Delete soft-deletes the group. Only its creator may do so.
func (uc *GroupUseCase) Delete(ctx context.Context, groupID, requesterID string) error {
	_, err := uc.mutate(ctx, "delete", groupID, func(g *entity.Group) (*entity.GroupMember, error) {
		if g.CreatedBy != requesterID {
			return nil, errors.NotAuthorized("Only the creator can delete this group")
		}
		g.IsDeleted = true
		g.DeletedAt = uc.now()
		return nil, nil
	})
	if err == nil {
		logger.Info("Group %s deleted by %s", groupID, requesterID)
	}
	return err
}

// admit adds userID to g after the ban, membership and capacity checks.
func (uc *GroupUseCase) admit(g *entity.Group, userID, userName, role string) (*entity.GroupMember, error) {
	if g.IsBanned(userID) {
		return nil, errors.Banned(g.ID)
	}
	if g.IsMember(userID) {
		return nil, errors.AlreadyMember(g.ID)
	}
	if g.IsFull() {
		return nil, errors.CapacityExceeded(g.ID)
	}

	g.AddMember(userID, role)
	return &entity.GroupMember{
		UserID:   userID,
		UserName: userName,
		Role:     role,
		JoinedAt: uc.now(),
		IsActive: true,
	}, nil
}

func (uc *GroupUseCase) Join(ctx context.Context, groupID string, actor Actor) (*entity.Group, error) {
	return uc.mutate(ctx, "join", groupID, func(g *entity.Group) (*entity.GroupMember, error) {
		return uc.admit(g, actor.ID, actor.Name, entity.RoleMember)
	})
}

// JoinByInviteCode resolves code by scanning the directory, then joins.
func (uc *GroupUseCase) JoinByInviteCode(ctx context.Context, code string, actor Actor) (*entity.Group, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, errors.InvalidInviteCode(code)
	}

	groups, err := uc.groupRepo.List(ctx, entity.GroupFilter{})
	if err != nil {
		return nil, err
	}

	for _, g := range groups {
		if g.InviteCode == code {
			return uc.Join(ctx, g.ID, actor)
		}
	}
	metrics.ObserveMembership("join", errors.CodeInvalidInviteCode)
	return nil, errors.InvalidInviteCode(code)
}

func (uc *GroupUseCase) Leave(ctx context.Context, groupID string, actor Actor) error {
	_, err := uc.mutate(ctx, "leave", groupID, func(g *entity.Group) (*entity.GroupMember, error) {
		if !g.IsMember(actor.ID) {
			return nil, errors.NotMember(g.ID)
		}
		role := g.RoleOf(actor.ID)
		g.RemoveMember(actor.ID)
		return &entity.GroupMember{
			UserID:   actor.ID,
			UserName: actor.Name,
			Role:     role,
			LeftAt:   uc.now(),
			IsActive: false,
		}, nil
	})
	return err
}

// Members lists the active member records. Only members may list them.
func (uc *GroupUseCase) Members(ctx context.Context, groupID, requesterID string) ([]*entity.GroupMember, error) {
	group, err := uc.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(requesterID) {
		return nil, errors.NotMember(groupID)
	}
	return uc.groupRepo.ListMembers(ctx, groupID)
}

// checkModeration enforces that actor may act on target: actor is owner or
// mod, the target is not the owner, and mods do not act on mods.
func checkModeration(g *entity.Group, actorID, targetID, verb string) error {
	actorRole := g.RoleOf(actorID)
	if actorRole != entity.RoleOwner && actorRole != entity.RoleMod {
		return errors.NotAuthorized("Only owners and moderators can " + verb + " members")
	}
	targetRole := g.RoleOf(targetID)
	if targetRole == entity.RoleOwner {
		return errors.NotAuthorized("Cannot " + verb + " the group owner")
	}
	if actorRole == entity.RoleMod && targetRole == entity.RoleMod {
		return errors.NotAuthorized("Moderators cannot " + verb + " other moderators")
	}
	return nil
}

// Invite adds userID as a member on behalf of an owner or moderator.
func (uc *GroupUseCase) Invite(ctx context.Context, groupID string, actor Actor, userID, userName string) (*entity.Group, error) {
	return uc.mutate(ctx, "invite", groupID, func(g *entity.Group) (*entity.GroupMember, error) {
		if !g.CanModerate(actor.ID) {
			return nil, errors.NotAuthorized("Only owners and moderators can invite members")
		}
		return uc.admit(g, userID, userName, entity.RoleMember)
	})
}

func (uc *GroupUseCase) Remove(ctx context.Context, groupID string, actor Actor, userID string) (*entity.Group, error) {
	return uc.mutate(ctx, "remove", groupID, func(g *entity.Group) (*entity.GroupMember, error) {
		if err := checkModeration(g, actor.ID, userID, "remove"); err != nil {
			return nil, err
		}
		if !g.IsMember(userID) {
			return nil, errors.NotMember(g.ID)
		}
		role := g.RoleOf(userID)
		g.RemoveMember(userID)
		return &entity.GroupMember{UserID: userID, Role: role, LeftAt: uc.now(), IsActive: false}, nil
	})
}

// Ban removes userID if present and blocks future joins.
func (uc *GroupUseCase) Ban(ctx context.Context, groupID string, actor Actor, userID string) (*entity.Group, error) {
	return uc.mutate(ctx, "ban", groupID, func(g *entity.Group) (*entity.GroupMember, error) {
		if err := checkModeration(g, actor.ID, userID, "ban"); err != nil {
			return nil, err
		}
		if g.IsBanned(userID) {
			return nil, errors.Conflict("User is already banned")
		}

		var member *entity.GroupMember
		if g.IsMember(userID) {
			role := g.RoleOf(userID)
			g.RemoveMember(userID)
			member = &entity.GroupMember{UserID: userID, Role: role, LeftAt: uc.now(), IsActive: false}
		}
		g.BannedUsers = append(g.BannedUsers, userID)
		return member, nil
	})
}

// ChangeRole lets the owner promote or demote a member between mod and member.
func (uc *GroupUseCase) ChangeRole(ctx context.Context, groupID string, actor Actor, userID, role string) (*entity.Group, error) {
	if role == entity.RoleOwner {
		return nil, errors.BadRequest("Cannot assign owner role", nil)
	}
	if role != entity.RoleMod && role != entity.RoleMember {
		return nil, errors.BadRequest("Unknown role: "+role, nil)
	}

	return uc.mutate(ctx, "change_role", groupID, func(g *entity.Group) (*entity.GroupMember, error) {
		if g.RoleOf(actor.ID) != entity.RoleOwner {
			return nil, errors.NotAuthorized("Only the owner can change roles")
		}
		if !g.IsMember(userID) {
			return nil, errors.NotMember(g.ID)
		}
		if userID == actor.ID {
			return nil, errors.BadRequest("The owner cannot change their own role", nil)
		}
		if g.Roles == nil {
			g.Roles = make(map[string]string)
		}
		g.Roles[userID] = role
		return nil, nil
	})
}

// SeedDefaultCircles creates the built-in support circles when the directory
// is empty. It reports whether anything was created.
func (uc *GroupUseCase) SeedDefaultCircles(ctx context.Context) (bool, error) {
	empty, err := uc.groupRepo.IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	if !empty {
		return false, nil
	}

	for _, circle := range defaultCircles() {
		code, err := uc.uniqueInviteCode(ctx)
		if err != nil {
			return false, err
		}
		circle.InviteCode = code
		circle.CreatedBy = systemUserID
		if err := uc.groupRepo.Create(ctx, circle, nil); err != nil {
			return false, err
		}
	}

	logger.Info("Default circles initialized")
	return true, nil
}

const systemUserID = "system"

func defaultCircles() []*entity.Group {
	circle := func(name, description, topic string, maxMembers int, day, at, facilitator, color string, tags ...string) *entity.Group {
		return &entity.Group{
			Kind:        entity.GroupKindCircle,
			Name:        name,
			Description: description,
			Topic:       topic,
			MaxMembers:  maxMembers,
			MeetingDay:  day,
			MeetingTime: at,
			Facilitator: facilitator,
			Color:       color,
			Tags:        tags,
			Members:     []string{},
		}
	}

	return []*entity.Group{
		circle("Anxiety Warriors",
			"A safe space for those dealing with anxiety to share experiences and coping strategies.",
			"Anxiety & Stress", 12, "Tuesdays", "7:00 PM", "Sarah M.", "from-blue-500 to-cyan-500",
			"Anxiety", "Coping Skills", "Mindfulness"),
		circle("Healing Hearts",
			"For those navigating grief, loss, and the journey of healing after difficult life changes.",
			"Grief & Loss", 10, "Thursdays", "6:30 PM", "Michael R.", "from-purple-500 to-pink-500",
			"Grief", "Loss", "Healing", "Support"),
		circle("New Beginnings",
			"Supporting each other through major life transitions and finding strength in change.",
			"Life Transitions", 15, "Mondays", "8:00 PM", "Emma L.", "from-green-500 to-teal-500",
			"Change", "Growth", "Resilience"),
		circle("Mindful Moments",
			"Practicing mindfulness and meditation together to find peace in daily life.",
			"Mindfulness & Meditation", 20, "Wednesdays", "7:30 PM", "David K.", "from-indigo-500 to-purple-500",
			"Mindfulness", "Meditation", "Peace"),
		circle("Young Adults Circle",
			"A supportive community for young adults (18-25) navigating the challenges of early adulthood.",
			"Young Adult Support", 18, "Fridays", "9:00 PM", "Alex T.", "from-orange-500 to-red-500",
			"Young Adults", "Life Skills", "Community"),
		circle("Creative Souls",
			"Using art, writing, and creativity as tools for healing and self-expression.",
			"Creative Therapy", 12, "Saturdays", "6:00 PM", "Luna P.", "from-pink-500 to-rose-500",
			"Creativity", "Art Therapy", "Expression"),
	}
}
