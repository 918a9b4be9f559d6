package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	NotificationUnread = "unread"
	NotificationRead   = "read"
)

type Notification struct {
	Status  string    `bson:"status" json:"status"`
	Message string    `bson:"message" json:"message"`
	Time    time.Time `bson:"time" json:"time"`
}

// User is a shop account. The password hash never leaves the store.
type User struct {
	ID            bson.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Name          string          `bson:"name" json:"name" validate:"required"`
	Email         string          `bson:"email" json:"email" validate:"required,email"`
	Password      string          `bson:"password" json:"-" validate:"required"`
	IsAdmin       bool            `bson:"isAdmin" json:"isAdmin"`
	Cart          Cart            `bson:"cart" json:"cart"`
	Notifications []Notification  `bson:"notifications" json:"notifications"`
	Orders        []bson.ObjectID `bson:"orders" json:"orders"`
	CreatedAt     time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time       `bson:"updated_at" json:"updatedAt"`
}

func NewUser(name, email, passwordHash string) *User {
	u := &User{
		ID:            bson.NewObjectID(),
		Name:          name,
		Email:         email,
		Password:      passwordHash,
		Cart:          NewCart(),
		Notifications: []Notification{},
		Orders:        []bson.ObjectID{},
	}
	u.SetTimestamps()
	return u
}

// SetTimestamps sets created_at on first call and always updates updated_at
func (u *User) SetTimestamps() {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
}

// Notify appends an unread notification and returns it.
func (u *User) Notify(message string, at time.Time) Notification {
	n := Notification{Status: NotificationUnread, Message: message, Time: at}
	u.Notifications = append(u.Notifications, n)
	return n
}

func (u *User) MarkAllRead() {
	for i := range u.Notifications {
		u.Notifications[i].Status = NotificationRead
	}
}

func (u *User) UnreadCount() int {
	n := 0
	for _, notification := range u.Notifications {
		if notification.Status == NotificationUnread {
			n++
		}
	}
	return n
}

func (u *User) AddOrder(id bson.ObjectID) {
	u.Orders = append(u.Orders, id)
}

// Clone returns a copy that shares no mutable state with u.
func (u *User) Clone() *User {
	out := *u
	out.Cart = u.Cart.Clone()
	out.Notifications = append([]Notification{}, u.Notifications...)
	out.Orders = append([]bson.ObjectID{}, u.Orders...)
	return &out
}

// CustomerView is a user with its order references populated.
type CustomerView struct {
	*User
	Orders []*Order `json:"orders"`
}
