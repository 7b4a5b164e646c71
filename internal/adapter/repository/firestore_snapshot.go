package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"soulcircle/internal/domain/repository"
	"soulcircle/pkg/errors"
	"soulcircle/pkg/logger"
)

// watchQuery turns a Firestore query listener into a Subscription. Every
// query snapshot is decoded in full and delivered as one value.
func watchQuery[T any](parent context.Context, q firestore.Query, decode func([]*firestore.DocumentSnapshot) (T, error)) *repository.Subscription[T] {
	sub, ctx := repository.NewSubscription[T](parent, 1)
	it := q.Snapshots(ctx)

	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					sub.Finish(nil)
					return
				}
				logger.Error("Firestore listener failed: %v", err)
				sub.Finish(errors.Internal("Snapshot listener failed", err))
				return
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				sub.Finish(errors.Internal("Failed to read snapshot", err))
				return
			}
			v, err := decode(docs)
			if err != nil {
				sub.Finish(err)
				return
			}
			if !sub.Send(ctx, v) {
				sub.Finish(nil)
				return
			}
		}
	}()

	return sub
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
