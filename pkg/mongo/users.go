package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"julianmorley.ca/pureview/api/pkg/global"
	"julianmorley.ca/pureview/api/pkg/models"
)

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}
	_, err := s.users.InsertOne(ctx, user)
	err = translate(err, "")
	if errors.Is(err, global.ErrConflict) {
		return global.Conflict("Email already exists")
	}
	return err
}

func (s *Store) FindUser(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	var user models.User
	if err := s.users.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&user); err != nil {
		return nil, translate(err, "user "+id.Hex()+" not found")
	}
	return &user, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	var user models.User
	if err := s.users.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&user); err != nil {
		return nil, translate(err, "user not found")
	}
	return &user, nil
}

func (s *Store) FindUsers(ctx context.Context, ids []bson.ObjectID) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	filter := bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}
	cursor, err := s.users.Find(ctx, filter)
	if err != nil {
		return nil, translate(err, "")
	}
	return findAll[models.User](ctx, cursor)
}

func (s *Store) ListCustomers(ctx context.Context) ([]*models.User, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	filter := bson.D{{Key: "isAdmin", Value: bson.D{{Key: "$ne", Value: true}}}}
	cursor, err := s.users.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, translate(err, "")
	}
	return findAll[models.User](ctx, cursor)
}

// SaveUser replaces the stored document wholesale.
func (s *Store) SaveUser(ctx context.Context, user *models.User) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	user.UpdatedAt = time.Now().UTC()
	result, err := s.users.ReplaceOne(ctx, bson.D{{Key: "_id", Value: user.ID}}, user)
	if err != nil {
		return translate(err, "")
	}
	if result.MatchedCount == 0 {
		return global.NotFound("user %s not found", user.ID.Hex())
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id bson.ObjectID) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	result, err := s.users.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return translate(err, "")
	}
	if result.DeletedCount == 0 {
		return global.NotFound("user %s not found", id.Hex())
	}
	return nil
}
