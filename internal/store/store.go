package store

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"

	"julianmorley.ca/pureview/api/pkg/models"
)

// Users persists accounts. SaveUser replaces the whole record; there is no
// version check, so the last writer wins.
type Users interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUser(ctx context.Context, id bson.ObjectID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUsers(ctx context.Context, ids []bson.ObjectID) ([]*models.User, error)
	// ListCustomers returns every non-admin account.
	ListCustomers(ctx context.Context) ([]*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id bson.ObjectID) error
}

// ProductFilter narrows ListProducts. Results are always newest first.
type ProductFilter struct {
	Category  string
	ExcludeID bson.ObjectID
	Limit     int
}

type Products interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	FindProduct(ctx context.Context, id bson.ObjectID) (*models.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]*models.Product, error)
	ReplaceProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id bson.ObjectID) error
}

type Orders interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	SetOrderStatus(ctx context.Context, id bson.ObjectID, status string) error
	// TransitionOrderStatus sets status to `to` only while it is still
	// `from`. It reports false when the order has moved on.
	TransitionOrderStatus(ctx context.Context, id bson.ObjectID, from, to string) (bool, error)
	// ListOrders returns every order in insertion order.
	ListOrders(ctx context.Context) ([]*models.Order, error)
	FindOrders(ctx context.Context, ids []bson.ObjectID) ([]*models.Order, error)
	DeleteOrder(ctx context.Context, id bson.ObjectID) error
	DeleteOrdersByOwner(ctx context.Context, owner bson.ObjectID) (int64, error)
	SummarizeOrders(ctx context.Context) (*models.SalesSummary, error)
}

type Store interface {
	Users
	Products
	Orders
}
