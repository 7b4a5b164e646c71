package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"soulcircle/internal/domain/entity"
	"soulcircle/internal/domain/repository"
	"soulcircle/pkg/errors"
)

const usersCollection = "users"

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{
		client: client,
	}
}

func (r *firestoreUserRepository) users() *firestore.CollectionRef {
	return r.client.Collection(usersCollection)
}

func (r *firestoreUserRepository) Create(ctx context.Context, user *entity.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.LastLoginAt = now
	user.UpdatedAt = now

	if _, err := r.users().Doc(user.ID).Create(ctx, user); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("user already exists")
		}
		return errors.Internal("Failed to create user", err)
	}
	return nil
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	doc, err := r.users().Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("User", err)
		}
		return nil, errors.Internal("Failed to get user", err)
	}

	var user entity.User
	if err := doc.DataTo(&user); err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}
	user.ID = doc.Ref.ID
	return &user, nil
}

// Update merges the editable profile fields.
func (r *firestoreUserRepository) Update(ctx context.Context, user *entity.User) error {
	user.UpdatedAt = time.Now()

	updateData := map[string]interface{}{
		"displayName": user.DisplayName,
		"photoURL":    user.PhotoURL,
		"bio":         user.Bio,
		"isActive":    user.IsActive,
		"updatedAt":   user.UpdatedAt,
	}

	ref := r.users().Doc(user.ID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		return tx.Set(ref, updateData, firestore.MergeAll)
	})
	if err != nil {
		if isNotFound(err) {
			return errors.NotFound("User", err)
		}
		return errors.Internal("Failed to update user", err)
	}
	return nil
}

func (r *firestoreUserRepository) TouchLogin(ctx context.Context, id string) error {
	_, err := r.users().Doc(id).Update(ctx, []firestore.Update{
		{Path: "lastLoginAt", Value: time.Now()},
	})
	if err != nil {
		if isNotFound(err) {
			return errors.NotFound("User", err)
		}
		return errors.Internal("Failed to update last login", err)
	}
	return nil
}

func (r *firestoreUserRepository) ListIDs(ctx context.Context) ([]string, error) {
	iter := r.users().DocumentRefs(ctx)

	var ids []string
	for {
		ref, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to list users", err)
		}
		ids = append(ids, ref.ID)
	}
	return ids, nil
}
