package store

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"

	"julianmorley.ca/pureview/api/pkg/global"
	"julianmorley.ca/pureview/api/pkg/models"
)

// Memory implements Store in process memory. Records are cloned on the way
// in and out so callers never share state with the store.
type Memory struct {
	mu         sync.RWMutex
	users      map[bson.ObjectID]*models.User
	userOrder  []bson.ObjectID
	products   map[bson.ObjectID]*models.Product
	orders     map[bson.ObjectID]*models.Order
	orderOrder []bson.ObjectID
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		users:    make(map[bson.ObjectID]*models.User),
		products: make(map[bson.ObjectID]*models.Product),
		orders:   make(map[bson.ObjectID]*models.Order),
	}
}

func (m *Memory) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return global.Conflict("Email already exists")
		}
	}
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}
	if _, exists := m.users[user.ID]; exists {
		return global.Conflict("user already exists")
	}
	m.users[user.ID] = user.Clone()
	m.userOrder = append(m.userOrder, user.ID)
	return nil
}

func (m *Memory) FindUser(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, global.NotFound("user %s not found", id.Hex())
	}
	return user.Clone(), nil
}

func (m *Memory) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if strings.EqualFold(user.Email, email) {
			return user.Clone(), nil
		}
	}
	return nil, global.NotFound("user not found")
}

func (m *Memory) FindUsers(ctx context.Context, ids []bson.ObjectID) ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := m.users[id]; ok {
			users = append(users, user.Clone())
		}
	}
	return users, nil
}

func (m *Memory) ListCustomers(ctx context.Context) ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]*models.User, 0, len(m.userOrder))
	for _, id := range m.userOrder {
		if user := m.users[id]; !user.IsAdmin {
			users = append(users, user.Clone())
		}
	}
	return users, nil
}

func (m *Memory) SaveUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; !ok {
		return global.NotFound("user %s not found", user.ID.Hex())
	}
	user.UpdatedAt = time.Now().UTC()
	m.users[user.ID] = user.Clone()
	return nil
}

func (m *Memory) DeleteUser(ctx context.Context, id bson.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return global.NotFound("user %s not found", id.Hex())
	}
	delete(m.users, id)
	m.userOrder = removeID(m.userOrder, id)
	return nil
}

func (m *Memory) CreateProduct(ctx context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if product.ID.IsZero() {
		product.ID = bson.NewObjectID()
	}
	if _, exists := m.products[product.ID]; exists {
		return global.Conflict("product already exists")
	}
	m.products[product.ID] = product.Clone()
	return nil
}

func (m *Memory) FindProduct(ctx context.Context, id bson.ObjectID) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	product, ok := m.products[id]
	if !ok {
		return nil, global.NotFound("product %s not found", id.Hex())
	}
	return product.Clone(), nil
}

func (m *Memory) ListProducts(ctx context.Context, filter ProductFilter) ([]*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	products := make([]*models.Product, 0, len(m.products))
	for id, product := range m.products {
		if filter.Category != "" && product.Category != filter.Category {
			continue
		}
		if !filter.ExcludeID.IsZero() && id == filter.ExcludeID {
			continue
		}
		products = append(products, product.Clone())
	}
	sort.Slice(products, func(i, j int) bool {
		return bytes.Compare(products[i].ID[:], products[j].ID[:]) > 0
	})
	if filter.Limit > 0 && len(products) > filter.Limit {
		products = products[:filter.Limit]
	}
	return products, nil
}

func (m *Memory) ReplaceProduct(ctx context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[product.ID]; !ok {
		return global.NotFound("product %s not found", product.ID.Hex())
	}
	m.products[product.ID] = product.Clone()
	return nil
}

func (m *Memory) DeleteProduct(ctx context.Context, id bson.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[id]; !ok {
		return global.NotFound("product %s not found", id.Hex())
	}
	delete(m.products, id)
	return nil
}

func (m *Memory) CreateOrder(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if order.ID.IsZero() {
		order.ID = bson.NewObjectID()
	}
	if _, exists := m.orders[order.ID]; exists {
		return global.Conflict("order already exists")
	}
	m.orders[order.ID] = order.Clone()
	m.orderOrder = append(m.orderOrder, order.ID)
	return nil
}

func (m *Memory) SetOrderStatus(ctx context.Context, id bson.ObjectID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return global.NotFound("order %s not found", id.Hex())
	}
	order.Status = status
	order.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) TransitionOrderStatus(ctx context.Context, id bson.ObjectID, from, to string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return false, global.NotFound("order %s not found", id.Hex())
	}
	if order.Status != from {
		return false, nil
	}
	order.Status = to
	order.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *Memory) ListOrders(ctx context.Context) ([]*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	orders := make([]*models.Order, 0, len(m.orderOrder))
	for _, id := range m.orderOrder {
		orders = append(orders, m.orders[id].Clone())
	}
	return orders, nil
}

func (m *Memory) FindOrders(ctx context.Context, ids []bson.ObjectID) ([]*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	orders := make([]*models.Order, 0, len(ids))
	for _, id := range ids {
		if order, ok := m.orders[id]; ok {
			orders = append(orders, order.Clone())
		}
	}
	return orders, nil
}

func (m *Memory) DeleteOrder(ctx context.Context, id bson.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[id]; !ok {
		return global.NotFound("order %s not found", id.Hex())
	}
	delete(m.orders, id)
	m.orderOrder = removeID(m.orderOrder, id)
	return nil
}

func (m *Memory) DeleteOrdersByOwner(ctx context.Context, owner bson.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for id, order := range m.orders {
		if order.Owner == owner {
			delete(m.orders, id)
			m.orderOrder = removeID(m.orderOrder, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *Memory) SummarizeOrders(ctx context.Context) (*models.SalesSummary, error) {
	orders, err := m.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	return Summarize(orders), nil
}

// Summarize folds orders into a SalesSummary the same way the Mongo
// aggregation pipeline does.
func Summarize(orders []*models.Order) *models.SalesSummary {
	summary := &models.SalesSummary{
		TotalRevenue: decimal.Zero,
		ByStatus:     []models.StatusBucket{},
		ByDay:        []models.DayBucket{},
	}
	statuses := map[string]*models.StatusBucket{}
	days := map[string]*models.DayBucket{}

	for _, order := range orders {
		summary.TotalOrders++
		summary.TotalItems += order.Count
		summary.TotalRevenue = summary.TotalRevenue.Add(order.Total)

		sb, ok := statuses[order.Status]
		if !ok {
			sb = &models.StatusBucket{Status: order.Status, Revenue: decimal.Zero}
			statuses[order.Status] = sb
		}
		sb.Orders++
		sb.Items += order.Count
		sb.Revenue = sb.Revenue.Add(order.Total)

		db, ok := days[order.Date]
		if !ok {
			db = &models.DayBucket{Date: order.Date, Revenue: decimal.Zero}
			days[order.Date] = db
		}
		db.Orders++
		db.Items += order.Count
		db.Revenue = db.Revenue.Add(order.Total)
	}

	for _, sb := range statuses {
		summary.ByStatus = append(summary.ByStatus, *sb)
	}
	sort.Slice(summary.ByStatus, func(i, j int) bool {
		return summary.ByStatus[i].Status < summary.ByStatus[j].Status
	})
	for _, db := range days {
		summary.ByDay = append(summary.ByDay, *db)
	}
	sort.Slice(summary.ByDay, func(i, j int) bool {
		return summary.ByDay[i].Date < summary.ByDay[j].Date
	})
	return summary
}

func removeID(ids []bson.ObjectID, id bson.ObjectID) []bson.ObjectID {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
