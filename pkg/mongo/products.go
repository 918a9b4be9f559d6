package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"julianmorley.ca/pureview/api/internal/store"
	"julianmorley.ca/pureview/api/pkg/global"
	"julianmorley.ca/pureview/api/pkg/models"
)

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	if product.ID.IsZero() {
		product.ID = bson.NewObjectID()
	}
	_, err := s.products.InsertOne(ctx, product)
	return translate(err, "")
}

func (s *Store) FindProduct(ctx context.Context, id bson.ObjectID) (*models.Product, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	var product models.Product
	if err := s.products.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&product); err != nil {
		return nil, translate(err, "product "+id.Hex()+" not found")
	}
	return &product, nil
}

func (s *Store) ListProducts(ctx context.Context, filter store.ProductFilter) ([]*models.Product, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	cursor, err := s.products.Find(ctx, productQuery(filter), productOptions(filter))
	if err != nil {
		return nil, translate(err, "")
	}
	return findAll[models.Product](ctx, cursor)
}

func productQuery(filter store.ProductFilter) bson.D {
	query := bson.D{}
	if filter.Category != "" {
		query = append(query, bson.E{Key: "category", Value: filter.Category})
	}
	if !filter.ExcludeID.IsZero() {
		query = append(query, bson.E{Key: "_id", Value: bson.D{{Key: "$ne", Value: filter.ExcludeID}}})
	}
	return query
}

func productOptions(filter store.ProductFilter) *options.FindOptionsBuilder {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	return opts
}

func (s *Store) ReplaceProduct(ctx context.Context, product *models.Product) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	result, err := s.products.ReplaceOne(ctx, bson.D{{Key: "_id", Value: product.ID}}, product)
	if err != nil {
		return translate(err, "")
	}
	if result.MatchedCount == 0 {
		return global.NotFound("product %s not found", product.ID.Hex())
	}
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, id bson.ObjectID) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	result, err := s.products.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return translate(err, "")
	}
	if result.DeletedCount == 0 {
		return global.NotFound("product %s not found", id.Hex())
	}
	return nil
}
