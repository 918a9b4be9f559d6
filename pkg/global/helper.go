package global

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func GetDefaultTimer() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// WithTimeout derives a bounded context from parent. A zero timeout leaves
// the parent deadline untouched.
func WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

// ParseObjectID parses a hex identity taken from a path or body field.
func ParseObjectID(field, value string) (bson.ObjectID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return bson.NilObjectID, Validation(field + " is required")
	}
	id, err := bson.ObjectIDFromHex(value)
	if err != nil {
		return bson.NilObjectID, Validation(field + " must be a valid ObjectID")
	}
	return id, nil
}
