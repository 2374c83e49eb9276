package ports

import (
	"context"

	"github.com/anderzubi/orthopin/internal/core/domain"
)

// EventPublisher publishes overlay and alignment events to a message broker.
type EventPublisher interface {
	PublishOverlaySaved(ctx context.Context, o *domain.Overlay) error
	PublishOverlayVisibility(ctx context.Context, id string, visible bool) error
	PublishAlignmentPreview(ctx context.Context, data []byte) error
	PublishBroadcast(ctx context.Context, data []byte) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
