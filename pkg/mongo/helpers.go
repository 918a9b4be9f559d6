package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"julianmorley.ca/pureview/api/pkg/global"
)

// translate maps driver errors onto the application error kinds.
func translate(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return global.NotFound("%s", notFound)
	case mongo.IsDuplicateKeyError(err):
		return global.NewError(global.KindConflict, "duplicate key", err)
	case mongo.IsTimeout(err), mongo.IsNetworkError(err),
		errors.Is(err, context.DeadlineExceeded):
		return global.Unavailable("database unavailable", err)
	}
	return err
}

func (s *Store) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return global.WithTimeout(ctx, s.timeout)
}

func findAll[T any](ctx context.Context, cursor *mongo.Cursor) ([]*T, error) {
	defer cursor.Close(ctx)

	items := make([]*T, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, translate(err, "")
	}
	return items, nil
}
