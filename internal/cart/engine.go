package cart

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"julianmorley.ca/pureview/api/internal/store"
	"julianmorley.ca/pureview/api/pkg/models"
)

// Engine applies cart mutations to the cart embedded in a user record.
//
// Every call is load, mutate, save with a full replace and no version
// check. Two concurrent calls for the same user race and the later save
// wins, discarding the earlier delta.
type Engine struct {
	users  store.Users
	logger *zap.Logger
}

func NewEngine(users store.Users, logger *zap.Logger) *Engine {
	return &Engine{users: users, logger: logger}
}

func (e *Engine) Add(ctx context.Context, userID bson.ObjectID, productID string, price decimal.Decimal) (*models.User, error) {
	return e.apply(ctx, "add", userID, AddLine(productID, price))
}

func (e *Engine) Increase(ctx context.Context, userID bson.ObjectID, productID string, price decimal.Decimal) (*models.User, error) {
	return e.apply(ctx, "increase", userID, IncreaseLine(productID, price))
}

func (e *Engine) Decrease(ctx context.Context, userID bson.ObjectID, productID string, price decimal.Decimal) (*models.User, error) {
	return e.apply(ctx, "decrease", userID, DecreaseLine(productID, price))
}

func (e *Engine) Remove(ctx context.Context, userID bson.ObjectID, productID string, price decimal.Decimal) (*models.User, error) {
	return e.apply(ctx, "remove", userID, RemoveLine(productID, price))
}

func (e *Engine) apply(ctx context.Context, op string, userID bson.ObjectID, mutate Mutation) (*models.User, error) {
	user, err := e.users.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := mutate(&user.Cart); err != nil {
		e.logger.Debug("cart mutation rejected",
			zap.String("op", op),
			zap.String("user_id", userID.Hex()),
			zap.Error(err))
		return nil, err
	}

	if err := e.users.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return user, nil
}
