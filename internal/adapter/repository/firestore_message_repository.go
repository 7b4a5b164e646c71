package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"soulcircle/internal/domain/entity"
	"soulcircle/internal/domain/repository"
	"soulcircle/pkg/errors"
)

const messagesCollection = "messages"

type firestoreMessageRepository struct {
	client *firestore.Client
}

// NewFirestoreMessageRepository stores group logs under
// groups/{id}/messages and DM logs under dms/{id}/messages.
func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

func (r *firestoreMessageRepository) messages(log entity.LogRef) *firestore.CollectionRef {
	parent := groupsCollection
	if log.Kind == entity.LogDM {
		parent = dmsCollection
	}
	return r.client.Collection(parent).Doc(log.ID).Collection(messagesCollection)
}

func decodeMessage(doc *firestore.DocumentSnapshot) (*entity.Message, error) {
	var msg entity.Message
	if err := doc.DataTo(&msg); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	msg.ID = doc.Ref.ID
	if msg.Reactions == nil {
		msg.Reactions = make(map[string]string)
	}
	return &msg, nil
}

// Append leaves Timestamp zero so the server assigns it, then reads the
// document back to return the stored time.
func (r *firestoreMessageRepository) Append(ctx context.Context, log entity.LogRef, msg *entity.Message) (*entity.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.LogID = log.ID
	if msg.Reactions == nil {
		msg.Reactions = make(map[string]string)
	}

	stored := *msg
	stored.Timestamp = time.Time{}

	ref := r.messages(log).Doc(msg.ID)
	if _, err := ref.Set(ctx, &stored); err != nil {
		return nil, errors.Internal("Failed to create message", err)
	}

	doc, err := ref.Get(ctx)
	if err != nil {
		return nil, errors.Internal("Failed to read message", err)
	}
	return decodeMessage(doc)
}

func (r *firestoreMessageRepository) GetByID(ctx context.Context, log entity.LogRef, id string) (*entity.Message, error) {
	doc, err := r.messages(log).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Message", err)
		}
		return nil, errors.Internal("Failed to get message", err)
	}
	return decodeMessage(doc)
}

func (r *firestoreMessageRepository) Mutate(ctx context.Context, log entity.LogRef, id string, fn repository.MessageMutation) (*entity.Message, error) {
	ref := r.messages(log).Doc(id)

	var result *entity.Message
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return errors.NotFound("Message", err)
			}
			return err
		}

		msg, err := decodeMessage(doc)
		if err != nil {
			return err
		}
		ts := msg.Timestamp
		if err := fn(msg); err != nil {
			return err
		}
		msg.ID, msg.LogID, msg.Timestamp = id, log.ID, ts

		result = msg
		return tx.Set(ref, msg)
	})
	if err != nil {
		return nil, errors.Wrap(err, "Failed to update message")
	}

	return result, nil
}

func (r *firestoreMessageRepository) windowQuery(log entity.LogRef, limit int) firestore.Query {
	q := r.messages(log).OrderBy("timestamp", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return q
}

// decodeWindow reverses a newest-first page into ascending order.
func decodeWindow(docs []*firestore.DocumentSnapshot) ([]*entity.Message, error) {
	msgs := make([]*entity.Message, len(docs))
	for i, doc := range docs {
		msg, err := decodeMessage(doc)
		if err != nil {
			return nil, err
		}
		msgs[len(docs)-1-i] = msg
	}
	return msgs, nil
}

func (r *firestoreMessageRepository) Window(ctx context.Context, log entity.LogRef, limit int) ([]*entity.Message, error) {
	docs, err := r.windowQuery(log, limit).Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to list messages", err)
	}
	return decodeWindow(docs)
}

func (r *firestoreMessageRepository) Subscribe(ctx context.Context, log entity.LogRef, limit int) (*repository.Subscription[[]*entity.Message], error) {
	return watchQuery(ctx, r.windowQuery(log, limit), decodeWindow), nil
}
