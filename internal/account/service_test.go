package account

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"julianmorley.ca/pureview/api/internal/store"
	"julianmorley.ca/pureview/api/pkg/global"
	"julianmorley.ca/pureview/api/pkg/models"
)

type countingSaves struct {
	*store.Memory
	n int
}

func (c *countingSaves) SaveUser(ctx context.Context, user *models.User) error {
	c.n++
	return c.Memory.SaveUser(ctx, user)
}

func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	svc := NewService(mem, mem, zaptest.NewLogger(t))
	svc.cost = bcrypt.MinCost
	return svc, mem
}

func signup(t *testing.T, svc *Service, name, email, password string) *models.User {
	t.Helper()
	user, err := svc.Signup(context.Background(), models.SignupRequest{Name: name, Email: email, Password: password})
	require.NoError(t, err)
	return user
}

func TestSignupHashesPassword(t *testing.T) {
	svc, mem := newTestService(t)

	user := signup(t, svc, " Ada ", "Ada@Example.com", "secret")
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.False(t, user.IsAdmin)
	assert.True(t, user.Cart.IsEmpty())

	stored, err := mem.FindUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "secret", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("secret")))

	data, err := json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "password")
}

func TestSignupValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     models.SignupRequest
		message string
	}{
		{"missing name", models.SignupRequest{Email: "a@example.com", Password: "x"}, "name is required"},
		{"missing email", models.SignupRequest{Name: "Ada", Password: "x"}, "email is required"},
		{"bad email", models.SignupRequest{Name: "Ada", Email: "nope", Password: "x"}, "email must be a valid email"},
		{"missing password", models.SignupRequest{Name: "Ada", Email: "a@example.com"}, "password is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, tt.req)
			require.ErrorIs(t, err, global.ErrValidation)
			assert.Equal(t, tt.message, global.MessageOf(err))
		})
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	signup(t, svc, "Ada", "ada@example.com", "secret")

	_, err := svc.Signup(context.Background(), models.SignupRequest{Name: "Other", Email: "ADA@example.com", Password: "x"})
	require.ErrorIs(t, err, global.ErrConflict)
	assert.Equal(t, "Email already exists", global.MessageOf(err))
}

func TestSignupRejectsOverlongPassword(t *testing.T) {
	svc, mem := newTestService(t)

	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Name: "Ada", Email: "ada@example.com", Password: strings.Repeat("p", 73),
	})
	require.ErrorIs(t, err, global.ErrValidation)
	assert.Equal(t, "password must be at most 72 bytes", global.MessageOf(err))

	_, err = mem.FindUserByEmail(context.Background(), "ada@example.com")
	assert.ErrorIs(t, err, global.ErrNotFound)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	signup(t, svc, "X", "x@x.com", "right")

	_, wrongPassword := svc.Login(ctx, "x@x.com", "wrong")
	_, unknownEmail := svc.Login(ctx, "nobody@x.com", "anything")

	require.ErrorIs(t, wrongPassword, global.ErrUnauthorized)
	require.ErrorIs(t, unknownEmail, global.ErrUnauthorized)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	assert.Equal(t, "invalid credentials", global.MessageOf(wrongPassword))

	user, err := svc.Login(ctx, " X@X.com ", "right")
	require.NoError(t, err)
	assert.Equal(t, "x@x.com", user.Email)
}

func TestMarkAllRead(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	user := signup(t, svc, "Ada", "ada@example.com", "secret")

	saves := &countingSaves{Memory: mem}
	svc.users = saves
	require.NoError(t, svc.MarkAllRead(ctx, user.ID), "empty list is not an error")
	assert.Zero(t, saves.n, "nothing unread means nothing to write")

	user.Notify("one", time.Now())
	user.Notify("two", time.Now())
	require.NoError(t, mem.SaveUser(ctx, user))

	require.NoError(t, svc.MarkAllRead(ctx, user.ID))
	stored, err := mem.FindUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, stored.Notifications, 2)
	assert.Equal(t, 0, stored.UnreadCount())
	assert.Equal(t, 1, saves.n)

	assert.ErrorIs(t, svc.MarkAllRead(ctx, bson.NewObjectID()), global.ErrNotFound)
}

func TestDeleteCascadesOrders(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	ada := signup(t, svc, "Ada", "ada@example.com", "secret")
	bob := signup(t, svc, "Bob", "bob@example.com", "secret")

	for _, owner := range []bson.ObjectID{ada.ID, ada.ID, bob.ID} {
		require.NoError(t, mem.CreateOrder(ctx, models.NewOrder(owner, models.NewCart(), "", "", time.Now())))
	}

	require.NoError(t, svc.Delete(ctx, ada.ID))

	_, err := mem.FindUser(ctx, ada.ID)
	assert.ErrorIs(t, err, global.ErrNotFound)
	orders, err := mem.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, bob.ID, orders[0].Owner)

	assert.ErrorIs(t, svc.Delete(ctx, ada.ID), global.ErrNotFound)
}

func TestListCustomersPopulatesOrders(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	ada := signup(t, svc, "Ada", "ada@example.com", "secret")
	admin := signup(t, svc, "Root", "root@example.com", "secret")
	admin.IsAdmin = true
	require.NoError(t, mem.SaveUser(ctx, admin))

	order := models.NewOrder(ada.ID, models.NewCart(), "Canada", "1 Main St", time.Now())
	require.NoError(t, mem.CreateOrder(ctx, order))
	ada.AddOrder(order.ID)
	require.NoError(t, mem.SaveUser(ctx, ada))

	customers, err := svc.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	require.Len(t, customers[0].Orders, 1)
	assert.Equal(t, order.ID, customers[0].Orders[0].ID)

	data, err := json.Marshal(customers[0])
	require.NoError(t, err)
	assert.NotContains(t, string(data), "password")
	assert.Contains(t, string(data), `"address":"1 Main St"`)

	orders, err := svc.Orders(ctx, ada.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
}
