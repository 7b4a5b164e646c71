package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	"soulcircle/internal/domain/entity"
	"soulcircle/internal/domain/repository"
	"soulcircle/pkg/errors"
)

const dmsCollection = "dms"

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

func (r *firestoreConversationRepository) dms() *firestore.CollectionRef {
	return r.client.Collection(dmsCollection)
}

func decodeConversation(doc *firestore.DocumentSnapshot) (*entity.Conversation, error) {
	var conv entity.Conversation
	if err := doc.DataTo(&conv); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}
	conv.ID = doc.Ref.ID
	if conv.UnreadCount == nil {
		conv.UnreadCount = make(map[string]int)
	}
	return &conv, nil
}

func (r *firestoreConversationRepository) GetOrCreate(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, error) {
	ref := r.dms().Doc(conv.ID)

	var result *entity.Conversation
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err == nil {
			result, err = decodeConversation(doc)
			return err
		}
		if !isNotFound(err) {
			return err
		}

		created := *conv
		now := time.Now()
		created.CreatedAt = now
		created.UpdatedAt = now
		if created.UnreadCount == nil {
			created.UnreadCount = make(map[string]int)
		}
		result = &created
		return tx.Create(ref, &created)
	})
	if err != nil {
		return nil, errors.Wrap(err, "Failed to open conversation")
	}

	return result, nil
}

func (r *firestoreConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.dms().Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, errors.Internal("Failed to get conversation", err)
	}
	return decodeConversation(doc)
}

func (r *firestoreConversationRepository) byUser(userID string) firestore.Query {
	return r.dms().Where("participants", "array-contains", userID)
}

func decodeConversations(docs []*firestore.DocumentSnapshot) ([]*entity.Conversation, error) {
	convs := make([]*entity.Conversation, 0, len(docs))
	for _, doc := range docs {
		conv, err := decodeConversation(doc)
		if err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	entity.SortConversations(convs)
	return convs, nil
}

func (r *firestoreConversationRepository) ListByUser(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	docs, err := r.byUser(userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to list conversations", err)
	}
	return decodeConversations(docs)
}

// RecordMessage increments the recipient's counter server-side, so
// concurrent senders never lose an increment.
func (r *firestoreConversationRepository) RecordMessage(ctx context.Context, id string, last *entity.LastMessage, recipientID string) error {
	_, err := r.dms().Doc(id).Update(ctx, []firestore.Update{
		{Path: "lastMessage", Value: last},
		{FieldPath: firestore.FieldPath{"unreadCount", recipientID}, Value: firestore.Increment(1)},
		{Path: "updatedAt", Value: time.Now()},
	})
	if err != nil {
		if isNotFound(err) {
			return errors.NotFound("Conversation", err)
		}
		return errors.Internal("Failed to record message", err)
	}
	return nil
}

// ResetUnread overwrites the counter. An increment landing between the
// reader's last fetch and this write is lost.
func (r *firestoreConversationRepository) ResetUnread(ctx context.Context, id, userID string) error {
	_, err := r.dms().Doc(id).Update(ctx, []firestore.Update{
		{FieldPath: firestore.FieldPath{"unreadCount", userID}, Value: 0},
	})
	if err != nil {
		if isNotFound(err) {
			return errors.NotFound("Conversation", err)
		}
		return errors.Internal("Failed to reset unread count", err)
	}
	return nil
}

func (r *firestoreConversationRepository) SubscribeByUser(ctx context.Context, userID string) (*repository.Subscription[[]*entity.Conversation], error) {
	return watchQuery(ctx, r.byUser(userID), decodeConversations), nil
}
