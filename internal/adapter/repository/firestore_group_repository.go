package repository

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"soulcircle/internal/domain/entity"
	"soulcircle/internal/domain/repository"
	"soulcircle/pkg/errors"
)

const (
	groupsCollection  = "groups"
	membersCollection = "members"
)

type firestoreGroupRepository struct {
	client *firestore.Client
}

func NewFirestoreGroupRepository(client *firestore.Client) repository.GroupRepository {
	return &firestoreGroupRepository{
		client: client,
	}
}

func (r *firestoreGroupRepository) groups() *firestore.CollectionRef {
	return r.client.Collection(groupsCollection)
}

func (r *firestoreGroupRepository) Create(ctx context.Context, group *entity.Group, creator *entity.GroupMember) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}

	now := time.Now()
	group.CreatedAt = now
	group.UpdatedAt = now

	ref := r.groups().Doc(group.ID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(ref, group); err != nil {
			return err
		}
		if creator != nil {
			creator.JoinedAt = now
			return tx.Set(ref.Collection(membersCollection).Doc(creator.UserID), creator)
		}
		return nil
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("group already exists")
		}
		return errors.Internal("Failed to create group", err)
	}

	return nil
}

func decodeGroup(doc *firestore.DocumentSnapshot) (*entity.Group, error) {
	var group entity.Group
	if err := doc.DataTo(&group); err != nil {
		return nil, errors.Internal("Failed to parse group data", err)
	}
	group.ID = doc.Ref.ID
	group.MemberCount = len(group.Members)
	return &group, nil
}

func (r *firestoreGroupRepository) GetByID(ctx context.Context, id string) (*entity.Group, error) {
	doc, err := r.groups().Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Group", err)
		}
		return nil, errors.Internal("Failed to get group", err)
	}
	return decodeGroup(doc)
}

// filterGroups applies filter in process. The collection is small and the
// search term matches substrings, which Firestore cannot query.
func filterGroups(docs []*firestore.DocumentSnapshot, filter entity.GroupFilter) ([]*entity.Group, error) {
	groups := make([]*entity.Group, 0, len(docs))
	for _, doc := range docs {
		g, err := decodeGroup(doc)
		if err != nil {
			return nil, err
		}
		if filter.Accepts(g) {
			groups = append(groups, g)
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].CreatedAt.After(groups[j].CreatedAt)
	})
	if filter.Limit > 0 && len(groups) > filter.Limit {
		groups = groups[:filter.Limit]
	}
	return groups, nil
}

func (r *firestoreGroupRepository) List(ctx context.Context, filter entity.GroupFilter) ([]*entity.Group, error) {
	docs, err := r.groups().Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to list groups", err)
	}
	return filterGroups(docs, filter)
}

func (r *firestoreGroupRepository) Mutate(ctx context.Context, id string, fn repository.GroupMutation) (*entity.Group, error) {
	ref := r.groups().Doc(id)

	var result *entity.Group
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return errors.NotFound("Group", err)
			}
			return err
		}

		group, err := decodeGroup(doc)
		if err != nil {
			return err
		}
		member, err := fn(group)
		if err != nil {
			return err
		}

		group.UpdatedAt = time.Now()
		if err := tx.Set(ref, group); err != nil {
			return err
		}
		if member != nil {
			if err := tx.Set(ref.Collection(membersCollection).Doc(member.UserID), member); err != nil {
				return err
			}
		}
		result = group
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "Failed to update group")
	}

	return result, nil
}

func (r *firestoreGroupRepository) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	iter := r.groups().Where("inviteCode", "==", code).Limit(1).Documents(ctx)
	defer iter.Stop()

	_, err := iter.Next()
	if err == iterator.Done {
		return false, nil
	}
	if err != nil {
		return false, errors.Internal("Failed to query invite code", err)
	}
	return true, nil
}

func (r *firestoreGroupRepository) SetLastMessage(ctx context.Context, id string, last *entity.LastMessage) error {
	_, err := r.groups().Doc(id).Update(ctx, []firestore.Update{
		{Path: "lastMessage", Value: last},
		{Path: "updatedAt", Value: time.Now()},
	})
	if err != nil {
		if isNotFound(err) {
			return errors.NotFound("Group", err)
		}
		return errors.Internal("Failed to update last message", err)
	}
	return nil
}

func (r *firestoreGroupRepository) ListMembers(ctx context.Context, id string) ([]*entity.GroupMember, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}

	iter := r.groups().Doc(id).Collection(membersCollection).Where("isActive", "==", true).Documents(ctx)
	defer iter.Stop()

	var members []*entity.GroupMember
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate members", err)
		}

		var member entity.GroupMember
		if err := doc.DataTo(&member); err != nil {
			return nil, errors.Internal("Failed to parse member data", err)
		}
		members = append(members, &member)
	}

	sort.Slice(members, func(i, j int) bool {
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members, nil
}

func (r *firestoreGroupRepository) IsEmpty(ctx context.Context) (bool, error) {
	iter := r.groups().Limit(1).Documents(ctx)
	defer iter.Stop()

	_, err := iter.Next()
	if err == iterator.Done {
		return true, nil
	}
	if err != nil {
		return false, errors.Internal("Failed to query groups", err)
	}
	return false, nil
}

func (r *firestoreGroupRepository) Subscribe(ctx context.Context, filter entity.GroupFilter) (*repository.Subscription[[]*entity.Group], error) {
	return watchQuery(ctx, r.groups().Query, func(docs []*firestore.DocumentSnapshot) ([]*entity.Group, error) {
		return filterGroups(docs, filter)
	}), nil
}
