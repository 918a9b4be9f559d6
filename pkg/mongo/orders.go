package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"julianmorley.ca/pureview/api/pkg/global"
	"julianmorley.ca/pureview/api/pkg/models"
)

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	if order.ID.IsZero() {
		order.ID = bson.NewObjectID()
	}
	_, err := s.orders.InsertOne(ctx, order)
	return translate(err, "")
}

func (s *Store) SetOrderStatus(ctx context.Context, id bson.ObjectID, status string) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: status},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}
	result, err := s.orders.UpdateByID(ctx, id, update)
	if err != nil {
		return translate(err, "")
	}
	if result.MatchedCount == 0 {
		return global.NotFound("order %s not found", id.Hex())
	}
	return nil
}

func (s *Store) TransitionOrderStatus(ctx context.Context, id bson.ObjectID, from, to string) (bool, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	filter := bson.D{{Key: "_id", Value: id}, {Key: "status", Value: from}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: to},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}
	result, err := s.orders.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, translate(err, "")
	}
	if result.MatchedCount > 0 {
		return true, nil
	}

	n, err := s.orders.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return false, translate(err, "")
	}
	if n == 0 {
		return false, global.NotFound("order %s not found", id.Hex())
	}
	return false, nil
}

func (s *Store) ListOrders(ctx context.Context) ([]*models.Order, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	cursor, err := s.orders.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, translate(err, "")
	}
	return findAll[models.Order](ctx, cursor)
}

func (s *Store) FindOrders(ctx context.Context, ids []bson.ObjectID) ([]*models.Order, error) {
	if len(ids) == 0 {
		return []*models.Order{}, nil
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	filter := bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}
	cursor, err := s.orders.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, translate(err, "")
	}
	return findAll[models.Order](ctx, cursor)
}

func (s *Store) DeleteOrder(ctx context.Context, id bson.ObjectID) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	result, err := s.orders.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return translate(err, "")
	}
	if result.DeletedCount == 0 {
		return global.NotFound("order %s not found", id.Hex())
	}
	return nil
}

func (s *Store) DeleteOrdersByOwner(ctx context.Context, owner bson.ObjectID) (int64, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	result, err := s.orders.DeleteMany(ctx, bson.D{{Key: "owner", Value: owner}})
	if err != nil {
		return 0, translate(err, "")
	}
	return result.DeletedCount, nil
}
