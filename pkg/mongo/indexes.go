package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"julianmorley.ca/pureview/api/pkg/global"
)

const indexTimeout = 10 * time.Second

type IndexConfig struct {
	CollectionName string
	IndexModel     mongo.IndexModel
}

var requiredIndexes = []IndexConfig{
	// Users: login lookups and the duplicate-email guard
	{
		CollectionName: UsersCollection,
		IndexModel: mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_user_email_unique"),
		},
	},
	{
		CollectionName: UsersCollection,
		IndexModel: mongo.IndexModel{
			Keys:    bson.D{{Key: "isAdmin", Value: 1}},
			Options: options.Index().SetName("idx_user_admin"),
		},
	},

	// Products: category pages and similar-product lookups, newest first
	{
		CollectionName: ProductsCollection,
		IndexModel: mongo.IndexModel{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "_id", Value: -1},
			},
			Options: options.Index().SetName("idx_category_newest"),
		},
	},

	// Orders: cascade deletes by owner and the sales report
	{
		CollectionName: OrdersCollection,
		IndexModel: mongo.IndexModel{
			Keys:    bson.D{{Key: "owner", Value: 1}},
			Options: options.Index().SetName("idx_order_owner"),
		},
	},
	{
		CollectionName: OrdersCollection,
		IndexModel: mongo.IndexModel{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "date", Value: -1},
			},
			Options: options.Index().SetName("idx_order_status_date"),
		},
	},
}

func EnsureIndexes(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	logger.Info("Starting index creation...")

	for _, idxConfig := range requiredIndexes {
		indexName, err := createIndex(ctx, db.Collection(idxConfig.CollectionName), idxConfig.IndexModel)
		if err != nil {
			logger.Error("Error creating index",
				zap.String("collection", idxConfig.CollectionName),
				zap.Error(err))
			return err
		}
		logger.Info("Created index",
			zap.String("index", indexName),
			zap.String("collection", idxConfig.CollectionName))
	}

	logger.Info("All indexes created successfully")
	return nil
}

func createIndex(parent context.Context, collection *mongo.Collection, model mongo.IndexModel) (string, error) {
	ctx, cancel := global.WithTimeout(parent, indexTimeout)
	defer cancel()
	return collection.Indexes().CreateOne(ctx, model)
}
