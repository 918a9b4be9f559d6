package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"julianmorley.ca/pureview/api/internal/store"
)

const (
	UsersCollection    = "users"
	ProductsCollection = "products"
	OrdersCollection   = "orders"
)

// Store implements store.Store on MongoDB. Every call runs under the
// configured timeout.
type Store struct {
	users    *mongo.Collection
	products *mongo.Collection
	orders   *mongo.Collection
	timeout  time.Duration
}

var _ store.Store = (*Store)(nil)

func NewStore(db *mongo.Database, timeout time.Duration) *Store {
	return &Store{
		users:    db.Collection(UsersCollection),
		products: db.Collection(ProductsCollection),
		orders:   db.Collection(OrdersCollection),
		timeout:  timeout,
	}
}
