package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"julianmorley.ca/pureview/api/internal/store"
	"julianmorley.ca/pureview/api/pkg/global"
	"julianmorley.ca/pureview/api/pkg/models"
)

const invalidCredentials = "invalid credentials"

type Service struct {
	users    store.Users
	orders   store.Orders
	validate *validator.Validate
	cost     int
	logger   *zap.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

func NewService(users store.Users, orders store.Orders, logger *zap.Logger) *Service {
	return &Service{
		users:    users,
		orders:   orders,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		cost:     bcrypt.DefaultCost,
		logger:   logger,
	}
}

func (s *Service) Signup(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := s.validate.Struct(req); err != nil {
		return nil, global.FromValidator(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, global.Validation("password must be at most 72 bytes")
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.NewUser(req.Name, req.Email, string(hash))
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, global.ErrConflict) {
			return nil, global.Conflict("Email already exists")
		}
		return nil, err
	}

	s.logger.Info("user signed up", zap.String("user_id", user.ID.Hex()))
	return user, nil
}

// Login never tells an unknown email apart from a wrong password.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.FindUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, global.ErrNotFound) {
		s.burnCompare(password)
		return nil, global.Unauthorized(invalidCredentials)
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, global.Unauthorized(invalidCredentials)
	}
	return user, nil
}

// burnCompare spends the same bcrypt work as a real comparison.
func (s *Service) burnCompare(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("pureview-dummy-password"), s.cost)
	})
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
}

// ListCustomers returns every non-admin user with populated orders.
func (s *Service) ListCustomers(ctx context.Context) ([]models.CustomerView, error) {
	users, err := s.users.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]models.CustomerView, 0, len(users))
	for _, user := range users {
		orders, err := s.orders.FindOrders(ctx, user.Orders)
		if err != nil {
			return nil, err
		}
		views = append(views, models.CustomerView{User: user, Orders: orders})
	}
	return views, nil
}

func (s *Service) Orders(ctx context.Context, userID bson.ObjectID) ([]*models.Order, error) {
	user, err := s.users.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.orders.FindOrders(ctx, user.Orders)
}

// MarkAllRead flips every notification to read in a single save. Nothing
// is written when there is nothing unread.
func (s *Service) MarkAllRead(ctx context.Context, userID bson.ObjectID) error {
	user, err := s.users.FindUser(ctx, userID)
	if err != nil {
		return err
	}
	unread := user.UnreadCount()
	if unread == 0 {
		return nil
	}
	user.MarkAllRead()
	if err := s.users.SaveUser(ctx, user); err != nil {
		return err
	}
	s.logger.Debug("notifications read", zap.String("user_id", userID.Hex()), zap.Int("count", unread))
	return nil
}

// Delete removes the user's orders first and then the user.
func (s *Service) Delete(ctx context.Context, userID bson.ObjectID) error {
	if _, err := s.users.FindUser(ctx, userID); err != nil {
		return err
	}

	deleted, err := s.orders.DeleteOrdersByOwner(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete orders: %w", err)
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("user deleted",
		zap.String("user_id", userID.Hex()),
		zap.Int64("orders_deleted", deleted))
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
