package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"julianmorley.ca/pureview/api/pkg/global"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "requestId"
)

// RequestID keeps an incoming X-Request-ID or assigns a fresh one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(requestIDKey)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// ObjectIDParam rejects requests whose path parameter is not an ObjectID
// and stores the parsed value under the parameter name.
func ObjectIDParam(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := global.ParseObjectID(name, c.Param(name))
		if err != nil {
			resp := global.ErrorResponseFor(err)
			resp.Errors = []global.ValidationError{
				{Field: name, Message: global.MessageOf(err), Code: "invalid_format"},
			}
			c.JSON(http.StatusBadRequest, resp)
			c.Abort()
			return
		}
		c.Set(name, id)
		c.Next()
	}
}

func paramID(c *gin.Context, name string) bson.ObjectID {
	return c.MustGet(name).(bson.ObjectID)
}
