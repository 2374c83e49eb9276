package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anderzubi/orthopin/internal/core/domain"
	"github.com/anderzubi/orthopin/internal/core/ports"
	"github.com/anderzubi/orthopin/internal/pkg/align"
	"github.com/anderzubi/orthopin/internal/pkg/geodesy"
)

const (
	cacheKeyLatest = "overlay:latest"
	cacheKeyByID   = "overlay:id:"
)

// defaultCacheTTL is overridable per deployment via SetCacheTTL.
const defaultCacheTTL = 300 // seconds

// OverlayService handles overlay persistence, caching, events, and audit.
type OverlayService struct {
	overlays       ports.OverlayRepository
	audit          ports.AuditRepository
	events         ports.EventPublisher
	cache          ports.CacheService
	cacheTTL       int
	defaultOpacity float64
}

// NewOverlayService creates a new OverlayService. audit, events, and cache
// may be nil in degraded deployments.
func NewOverlayService(overlays ports.OverlayRepository, audit ports.AuditRepository,
	events ports.EventPublisher, cache ports.CacheService, defaultOpacity float64) *OverlayService {
	if defaultOpacity <= 0 || defaultOpacity > 1 {
		defaultOpacity = 0.85
	}
	return &OverlayService{
		overlays:       overlays,
		audit:          audit,
		events:         events,
		cache:          cache,
		cacheTTL:       defaultCacheTTL,
		defaultOpacity: defaultOpacity,
	}
}

// SetCacheTTL overrides the cache entry lifetime, in seconds.
func (s *OverlayService) SetCacheTTL(seconds int) {
	if seconds > 0 {
		s.cacheTTL = seconds
	}
}

// Create validates and persists a new overlay.
func (s *OverlayService) Create(ctx context.Context, o *domain.Overlay) error {
	if err := s.normalizeRecord(o); err != nil {
		return err
	}
	if err := s.overlays.Create(ctx, o); err != nil {
		return fmt.Errorf("create overlay: %w", err)
	}

	s.invalidate(ctx, o.ID)
	s.recordAudit(ctx, "create", o.ID, map[string]any{"name": o.Name})
	if s.events != nil {
		if err := s.events.PublishOverlaySaved(ctx, o); err != nil {
			slog.Warn("overlay saved event not published", "overlay", o.ID, "error", err)
		}
	}
	return nil
}

// GetByID returns a single overlay, read through the cache.
func (s *OverlayService) GetByID(ctx context.Context, id string) (*domain.Overlay, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKeyByID+id); err == nil {
			var o domain.Overlay
			if err := json.Unmarshal(data, &o); err == nil {
				return &o, nil
			}
		}
	}

	o, err := s.overlays.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(o); err == nil {
			_ = s.cache.Set(ctx, cacheKeyByID+id, data, s.cacheTTL)
		}
	}
	return o, nil
}

// Latest returns the most recently updated overlay.
func (s *OverlayService) Latest(ctx context.Context) (*domain.Overlay, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKeyLatest); err == nil {
			var o domain.Overlay
			if err := json.Unmarshal(data, &o); err == nil {
				return &o, nil
			}
		}
	}

	o, err := s.overlays.Latest(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(o); err == nil {
			_ = s.cache.Set(ctx, cacheKeyLatest, data, s.cacheTTL)
		}
	}
	return o, nil
}

// List returns overlays ordered by recency, with the total count.
func (s *OverlayService) List(ctx context.Context, limit, offset int) ([]domain.Overlay, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.overlays.List(ctx, limit, offset)
}

// UpdateCorners overwrites an overlay's geographic corners after a
// re-alignment. Corners are normalized and must form a usable rectangle.
func (s *OverlayService) UpdateCorners(ctx context.Context, id string, corners domain.QuadCorners) error {
	for i := range corners {
		corners[i] = geodesy.Normalize(corners[i])
	}
	if _, err := align.Inverse(corners); err != nil {
		return err
	}
	if err := s.overlays.UpdateCorners(ctx, id, corners); err != nil {
		return err
	}

	s.invalidate(ctx, id)
	s.recordAudit(ctx, "update_corners", id, nil)
	if s.events != nil {
		if o, err := s.overlays.GetByID(ctx, id); err == nil {
			if err := s.events.PublishOverlaySaved(ctx, o); err != nil {
				slog.Warn("overlay saved event not published", "overlay", id, "error", err)
			}
		}
	}
	return nil
}

// SetVisibility toggles whether the renderer shows the overlay.
func (s *OverlayService) SetVisibility(ctx context.Context, id string, visible bool) error {
	if err := s.overlays.SetVisibility(ctx, id, visible); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.recordAudit(ctx, "set_visibility", id, map[string]any{"visible": visible})
	if s.events != nil {
		if err := s.events.PublishOverlayVisibility(ctx, id, visible); err != nil {
			slog.Warn("visibility event not published", "overlay", id, "error", err)
		}
	}
	return nil
}

// Update changes an overlay's descriptive fields: name, opacity, capture
// date. Geometry is only changed through UpdateCorners.
func (s *OverlayService) Update(ctx context.Context, o *domain.Overlay) error {
	if strings.TrimSpace(o.Name) == "" {
		return fmt.Errorf("overlay name must not be empty")
	}
	o.Opacity = clampOpacity(o.Opacity, s.defaultOpacity)
	if err := s.overlays.Update(ctx, o); err != nil {
		return err
	}
	s.invalidate(ctx, o.ID)
	s.recordAudit(ctx, "update", o.ID, map[string]any{"name": o.Name, "opacity": o.Opacity})
	return nil
}

// Delete removes an overlay.
func (s *OverlayService) Delete(ctx context.Context, id string) error {
	if err := s.overlays.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.recordAudit(ctx, "delete", id, nil)
	if s.events != nil {
		data, _ := json.Marshal(map[string]string{"event": "overlay.deleted", "id": id})
		if err := s.events.PublishBroadcast(ctx, data); err != nil {
			slog.Warn("overlay.deleted broadcast not published", "id", id, "error", err)
		}
	}
	return nil
}

// GroundSpan reports the overlay's edge lengths on the ground in meters,
// measured along the top and left edges.
func (s *OverlayService) GroundSpan(o *domain.Overlay) (width, height float64) {
	width = geodesy.Haversine(o.GeoCorners[domain.CornerTopLeft], o.GeoCorners[domain.CornerTopRight])
	height = geodesy.Haversine(o.GeoCorners[domain.CornerTopLeft], o.GeoCorners[domain.CornerBottomLeft])
	return width, height
}

// AuditTrail returns the most recent overlay changes.
func (s *OverlayService) AuditTrail(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if s.audit == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.audit.ListRecent(ctx, limit)
}

// normalizeRecord applies defaults and rejects unusable geometry.
func (s *OverlayService) normalizeRecord(o *domain.Overlay) error {
	if strings.TrimSpace(o.Name) == "" {
		o.Name = "Drone Overlay"
	}
	o.Opacity = clampOpacity(o.Opacity, s.defaultOpacity)

	for i := range o.GeoCorners {
		if !geodesy.Valid(geodesy.Normalize(o.GeoCorners[i])) {
			return &domain.InvalidCoordinateError{Lat: o.GeoCorners[i].Lat, Lon: o.GeoCorners[i].Lon}
		}
		o.GeoCorners[i] = geodesy.Normalize(o.GeoCorners[i])
	}
	if _, err := align.Inverse(o.GeoCorners); err != nil {
		return err
	}

	if o.PixelCorners == (domain.PixelCorners{}) {
		if o.WidthPx <= 0 || o.HeightPx <= 0 {
			return &domain.DegenerateGeometryError{Reason: "missing pixel corners and image size"}
		}
		o.PixelCorners = domain.ImagePixelCorners(o.WidthPx, o.HeightPx)
	}
	return nil
}

func (s *OverlayService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, cacheKeyLatest)
	_ = s.cache.Delete(ctx, cacheKeyByID+id)
}

func (s *OverlayService) recordAudit(ctx context.Context, action, subject string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	entry := &domain.AuditEntry{
		Actor:   actorFromCtx(ctx),
		Action:  action,
		Subject: subject,
		Detail:  detail,
	}
	if err := s.audit.Insert(ctx, entry); err != nil {
		slog.Warn("audit entry not recorded", "action", action, "subject", subject, "error", err)
	}
}

func clampOpacity(v, def float64) float64 {
	if v == 0 {
		return def
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

type actorKey struct{}

// WithActor tags a context with the acting user for the audit trail.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFromCtx(ctx context.Context) string {
	if a, ok := ctx.Value(actorKey{}).(string); ok && a != "" {
		return a
	}
	return "system"
}
