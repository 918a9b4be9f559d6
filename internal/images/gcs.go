package images

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"julianmorley.ca/pureview/api/pkg/global"
)

// Host deletes product pictures from a Cloud Storage bucket. A picture's
// public id is its object name.
type Host struct {
	bucket string
	delete func(ctx context.Context, object string) error
	logger *zap.Logger
}

func NewHost(client *storage.Client, bucket string, logger *zap.Logger) *Host {
	h := &Host{bucket: bucket, logger: logger}
	if client != nil && bucket != "" {
		bh := client.Bucket(bucket)
		h.delete = func(ctx context.Context, object string) error {
			return bh.Object(object).Delete(ctx)
		}
	}
	return h
}

func (h *Host) Configured() bool {
	return h.delete != nil
}

// DeleteAsset removes one object. An object that is already gone counts
// as deleted.
func (h *Host) DeleteAsset(ctx context.Context, publicID string) error {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return global.Validation("public_id is required")
	}
	if !h.Configured() {
		return global.Unavailable("image host is not configured", nil)
	}

	err := h.delete(ctx, publicID)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		h.logger.Warn("failed to delete image",
			zap.String("bucket", h.bucket),
			zap.String("public_id", publicID),
			zap.Error(err))
		return global.Unavailable("failed to delete image", err)
	}
	return nil
}
