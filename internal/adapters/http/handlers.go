package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/anderzubi/orthopin/internal/core/domain"
	"github.com/anderzubi/orthopin/internal/pkg/kml"
	"github.com/anderzubi/orthopin/internal/pkg/metrics"
)

// serviceError maps domain errors to HTTP responses.
func serviceError(c *fiber.Ctx, err error) error {
	var degenerate *domain.DegenerateGeometryError
	var invalidCoord *domain.InvalidCoordinateError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrSessionActive), errors.Is(err, domain.ErrNoSession):
		return errConflict(c, err.Error())
	case errors.As(err, &degenerate), errors.As(err, &invalidCoord):
		metrics.GeometryRejections.Inc()
		return errBadRequest(c, err.Error())
	default:
		return errInternal(c, err.Error())
	}
}

// overlayResponse augments an overlay with its ground footprint in meters.
type overlayResponse struct {
	*domain.Overlay
	GroundWidthM  float64 `json:"ground_width_m"`
	GroundHeightM float64 `json:"ground_height_m"`
}

func (deps *Dependencies) overlayResponse(o *domain.Overlay) overlayResponse {
	w, h := deps.Overlays.GroundSpan(o)
	return overlayResponse{Overlay: o, GroundWidthM: w, GroundHeightM: h}
}

// ListOverlaysHandler returns overlays ordered newest first.
func ListOverlaysHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		overlays, total, err := deps.Overlays.List(c.UserContext(), limit, offset)
		if err != nil {
			return serviceError(c, err)
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: overlays, Pagination: pg})
	}
}

// CreateOverlayHandler stores a fully georeferenced overlay. Interactive
// uploads normally land through the alignment session instead; this route
// serves imports that already carry corners.
func CreateOverlayHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var o domain.Overlay
		if err := c.BodyParser(&o); err != nil {
			return errBadRequest(c, "invalid JSON body: "+err.Error())
		}
		if o.ImageRef == "" {
			return errBadRequest(c, "image_ref is required")
		}
		if o.WidthPx <= 0 || o.HeightPx <= 0 {
			return errBadRequest(c, "width_px and height_px must be positive")
		}

		ctx := actorContext(c)
		if err := deps.Overlays.Create(ctx, &o); err != nil {
			return serviceError(c, err)
		}
		return c.Status(201).JSON(deps.overlayResponse(&o))
	}
}

// LatestOverlayHandler returns the most recently saved overlay.
func LatestOverlayHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		o, err := deps.Overlays.Latest(c.UserContext())
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(deps.overlayResponse(o))
	}
}

// GetOverlayHandler returns a single overlay by ID.
func GetOverlayHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "overlay id is required")
		}
		o, err := deps.Overlays.GetByID(c.UserContext(), id)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(deps.overlayResponse(o))
	}
}

// updateOverlayRequest carries the mutable metadata fields.
type updateOverlayRequest struct {
	Name        *string  `json:"name"`
	Opacity     *float64 `json:"opacity"`
	CaptureDate *string  `json:"capture_date"`
}

// UpdateOverlayHandler patches overlay metadata (name, opacity, capture date).
func UpdateOverlayHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		var req updateOverlayRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body: "+err.Error())
		}

		ctx := actorContext(c)
		o, err := deps.Overlays.GetByID(ctx, id)
		if err != nil {
			return serviceError(c, err)
		}

		if req.Name != nil {
			o.Name = *req.Name
		}
		if req.Opacity != nil {
			o.Opacity = *req.Opacity
		}
		if req.CaptureDate != nil {
			o.CaptureDate = *req.CaptureDate
		}

		if err := deps.Overlays.Update(ctx, o); err != nil {
			return serviceError(c, err)
		}
		return c.JSON(deps.overlayResponse(o))
	}
}

// DeleteOverlayHandler removes an overlay.
func DeleteOverlayHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if err := deps.Overlays.Delete(actorContext(c), id); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(204)
	}
}

// cornersRequest carries replacement geographic corners in winding order
// top-left, top-right, bottom-right, bottom-left.
type cornersRequest struct {
	Corners domain.QuadCorners `json:"corners"`
}

// UpdateCornersHandler re-georeferences an overlay without an interactive
// session, for clients that compute corners themselves.
func UpdateCornersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		var req cornersRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body: "+err.Error())
		}
		if err := deps.Overlays.UpdateCorners(actorContext(c), id, req.Corners); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(204)
	}
}

type visibilityRequest struct {
	Visible bool `json:"visible"`
}

// SetVisibilityHandler shows or hides an overlay on the map.
func SetVisibilityHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		var req visibilityRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body: "+err.Error())
		}
		if err := deps.Overlays.SetVisibility(actorContext(c), id, req.Visible); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(204)
	}
}

// OverlayKMLHandler exports an overlay as a KML ground overlay document
// for Google Earth and similar viewers.
func OverlayKMLHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		o, err := deps.Overlays.GetByID(c.UserContext(), id)
		if err != nil {
			return serviceError(c, err)
		}

		doc, err := kml.GroundOverlay(o)
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Content-Type", "application/vnd.google-earth.kml+xml")
		c.Set("Content-Disposition", `attachment; filename="`+o.ID+`.kml"`)
		return c.Send(doc)
	}
}

// AuditTrailHandler returns recent audit entries, newest first.
func AuditTrailHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 50)
		entries, err := deps.Overlays.AuditTrail(c.UserContext(), limit)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(entries)
	}
}

// serviceStats holds row counts from the overlay tables.
type serviceStats struct {
	Overlays     int    `json:"overlays"`
	Visible      int    `json:"visible"`
	AuditEntries int    `json:"audit_entries"`
	LastSaved    string `json:"last_saved,omitempty"`
}

// StatsHandler returns row counts from the overlay tables.
func StatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.DB == nil {
			return errInternal(c, "database not available")
		}

		var stats serviceStats
		row := deps.DB.Pool.QueryRow(c.Context(), `
			SELECT
				(SELECT count(*) FROM overlays),
				(SELECT count(*) FROM overlays WHERE visible),
				(SELECT count(*) FROM audit_log),
				COALESCE((SELECT max(updated_at)::text FROM overlays), '')
		`)
		if err := row.Scan(&stats.Overlays, &stats.Visible, &stats.AuditEntries, &stats.LastSaved); err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(stats)
	}
}
