package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
)

// DateLayout is the calendar-date format stored on orders.
const DateLayout = "2006-01-02"

type Order struct {
	ID        bson.ObjectID   `json:"_id" bson:"_id,omitempty"`
	Owner     bson.ObjectID   `json:"owner" bson:"owner"`
	Products  Cart            `json:"products" bson:"products"`
	Status    string          `json:"status" bson:"status"`
	Total     decimal.Decimal `json:"total" bson:"total"`
	Count     int             `json:"count" bson:"count"`
	Date      string          `json:"date" bson:"date"`
	Address   string          `json:"address" bson:"address"`
	Country   string          `json:"country" bson:"country"`
	CreatedAt time.Time       `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time       `json:"updatedAt" bson:"updated_at"`
}

// NewOrder builds a pending order from a cart snapshot. Total and Count are
// left for the caller to assign.
func NewOrder(owner bson.ObjectID, snapshot Cart, country, address string, now time.Time) *Order {
	return &Order{
		ID:        bson.NewObjectID(),
		Owner:     owner,
		Products:  snapshot.Clone(),
		Status:    OrderPending,
		Total:     decimal.Zero,
		Date:      now.Format(DateLayout),
		Address:   address,
		Country:   country,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (o *Order) Clone() *Order {
	out := *o
	out.Products = o.Products.Clone()
	return &out
}

// OrderOwner is the subset of a user joined onto order listings.
type OrderOwner struct {
	ID    bson.ObjectID `json:"_id" bson:"_id"`
	Email string        `json:"email" bson:"email"`
	Name  string        `json:"name" bson:"name"`
}

// OrderView is an order with its owner populated. The owner is nil when
// the account no longer exists.
type OrderView struct {
	Order
	Owner *OrderOwner `json:"owner"`
}
