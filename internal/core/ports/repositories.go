package ports

import (
	"context"

	"github.com/anderzubi/orthopin/internal/core/domain"
)

// OverlayRepository persists georeferenced overlays.
type OverlayRepository interface {
	Create(ctx context.Context, o *domain.Overlay) error
	GetByID(ctx context.Context, id string) (*domain.Overlay, error)
	Latest(ctx context.Context) (*domain.Overlay, error)
	List(ctx context.Context, limit, offset int) ([]domain.Overlay, int, error)
	UpdateCorners(ctx context.Context, id string, corners domain.QuadCorners) error
	SetVisibility(ctx context.Context, id string, visible bool) error
	Update(ctx context.Context, o *domain.Overlay) error
	Delete(ctx context.Context, id string) error
}

// AuditRepository persists the overlay change trail.
type AuditRepository interface {
	Insert(ctx context.Context, e *domain.AuditEntry) error
	ListRecent(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}
