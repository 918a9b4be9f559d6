package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"julianmorley.ca/pureview/api/internal/mail"
	"julianmorley.ca/pureview/api/internal/store"
	"julianmorley.ca/pureview/api/pkg/global"
	"julianmorley.ca/pureview/api/pkg/models"
)

const (
	EventNewOrder     = "new-order"
	EventNotification = "notification"

	mailTimeout     = 10 * time.Second
	rollbackTimeout = 5 * time.Second
)

// Broadcaster pushes an event to connected clients without blocking.
type Broadcaster interface {
	Emit(event string, payload any, target string)
}

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// InsightGenerator writes a narrative for a sales summary.
type InsightGenerator interface {
	SalesInsights(ctx context.Context, summary *models.SalesSummary) (string, error)
}

type Option func(*Engine)

func WithMailer(m Mailer) Option {
	return func(e *Engine) { e.mailer = m }
}

func WithInsights(g InsightGenerator) Option {
	return func(e *Engine) { e.insights = g }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

type Engine struct {
	users    store.Users
	orders   store.Orders
	events   Broadcaster
	mailer   Mailer
	insights InsightGenerator
	now      func() time.Time
	logger   *zap.Logger

	background sync.WaitGroup
}

func NewEngine(users store.Users, orders store.Orders, events Broadcaster, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		users:  users,
		orders: orders,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PlaceOrder converts a cart snapshot into an order and empties the user's
// cart. The order is written as pending first; if the user write then fails
// the order is deleted again. A crash between the two writes leaves a
// pending order that no user references.
func (e *Engine) PlaceOrder(ctx context.Context, userID bson.ObjectID, snapshot models.Cart, country, address string) (*models.User, error) {
	user, err := e.users.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if snapshot.Count <= 0 || len(snapshot.Lines) == 0 {
		return nil, global.Validation("cart is empty")
	}
	if !snapshot.Consistent() {
		return nil, global.Validation("cart count or total does not match its lines")
	}

	now := e.now()
	order := models.NewOrder(user.ID, snapshot, country, address, now)
	order.Total = snapshot.Total
	order.Count = snapshot.Count
	if !snapshot.Total.Equal(user.Cart.Total) || snapshot.Count != user.Cart.Count {
		e.logger.Warn("submitted cart differs from stored cart",
			zap.String("user_id", user.ID.Hex()),
			zap.String("submitted_total", snapshot.Total.String()),
			zap.String("stored_total", user.Cart.Total.String()),
			zap.Int("submitted_count", snapshot.Count),
			zap.Int("stored_count", user.Cart.Count),
			zap.Strings("products", snapshot.ProductIDs()))
	}

	if err := e.orders.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	user.Cart = models.NewCart()
	user.AddOrder(order.ID)
	if err := e.users.SaveUser(ctx, user); err != nil {
		rollbackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
		defer cancel()
		if delErr := e.orders.DeleteOrder(rollbackCtx, order.ID); delErr != nil {
			e.logger.Error("failed to roll back pending order",
				zap.String("order_id", order.ID.Hex()),
				zap.Error(delErr))
		}
		return nil, fmt.Errorf("save user: %w", err)
	}

	moved, err := e.orders.TransitionOrderStatus(ctx, order.ID, models.OrderPending, models.OrderProcessing)
	switch {
	case err != nil:
		e.logger.Warn("order left pending",
			zap.String("order_id", order.ID.Hex()),
			zap.Error(err))
	case !moved:
		e.logger.Info("order status changed before confirmation",
			zap.String("order_id", order.ID.Hex()))
	}

	e.events.Emit(EventNewOrder, models.Notification{
		Status:  models.NotificationUnread,
		Message: "New order from " + user.Name,
		Time:    now,
	}, "")

	return user, nil
}

// ListOrders returns every order with its owner joined.
func (e *Engine) ListOrders(ctx context.Context) ([]models.OrderView, error) {
	orders, err := e.orders.ListOrders(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[bson.ObjectID]struct{})
	ownerIDs := make([]bson.ObjectID, 0)
	for _, o := range orders {
		if _, ok := seen[o.Owner]; !ok {
			seen[o.Owner] = struct{}{}
			ownerIDs = append(ownerIDs, o.Owner)
		}
	}
	owners, err := e.users.FindUsers(ctx, ownerIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[bson.ObjectID]*models.OrderOwner, len(owners))
	for _, u := range owners {
		byID[u.ID] = &models.OrderOwner{ID: u.ID, Email: u.Email, Name: u.Name}
	}

	views := make([]models.OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, models.OrderView{Order: *o, Owner: byID[o.Owner]})
	}
	return views, nil
}

// MarkShipped commits the status change before the owner is looked up, so
// a missing owner still leaves the order shipped and returns NotFound.
func (e *Engine) MarkShipped(ctx context.Context, orderID, ownerID bson.ObjectID) ([]models.OrderView, error) {
	if err := e.orders.SetOrderStatus(ctx, orderID, models.OrderShipped); err != nil {
		return nil, err
	}

	views, err := e.ListOrders(ctx)
	if err != nil {
		return nil, err
	}

	now := e.now()
	message := fmt.Sprintf("Order %s shipped with success", orderID.Hex())
	e.events.Emit(EventNotification, models.Notification{
		Status:  models.NotificationUnread,
		Message: message,
		Time:    now,
	}, ownerID.Hex())

	owner, err := e.users.FindUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	owner.Notify(message, now)
	if err := e.users.SaveUser(ctx, owner); err != nil {
		return nil, fmt.Errorf("save owner: %w", err)
	}

	e.sendShipmentMail(owner.Email, owner.Name, orderID.Hex())
	return views, nil
}

func (e *Engine) sendShipmentMail(to, name, orderID string) {
	if e.mailer == nil {
		return
	}
	e.background.Add(1)
	go func() {
		defer e.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()

		subject, body := mail.ShipmentMessage(name, orderID)
		if err := e.mailer.Send(ctx, to, subject, body); err != nil {
			e.logger.Warn("failed to send shipment mail",
				zap.String("order_id", orderID),
				zap.Error(err))
		}
	}()
}

// Wait blocks until background deliveries started by MarkShipped finish.
func (e *Engine) Wait() {
	e.background.Wait()
}

// SalesReport aggregates all orders. Insight generation is optional and
// its failure only drops the narrative.
func (e *Engine) SalesReport(ctx context.Context) (*models.SalesReport, error) {
	summary, err := e.orders.SummarizeOrders(ctx)
	if err != nil {
		return nil, err
	}

	report := &models.SalesReport{Summary: summary}
	if e.insights == nil || summary.TotalOrders == 0 {
		return report, nil
	}
	insights, err := e.insights.SalesInsights(ctx, summary)
	if err != nil {
		e.logger.Warn("failed to generate sales insights", zap.Error(err))
		return report, nil
	}
	report.Insights = insights
	return report, nil
}
