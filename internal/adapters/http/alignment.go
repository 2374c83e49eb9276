package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/anderzubi/orthopin/internal/core/domain"
	"github.com/anderzubi/orthopin/internal/pkg/align"
	"github.com/anderzubi/orthopin/internal/pkg/metrics"
)

// alignmentStatus reports the session mode and, while aligning, the live
// quad so a reconnecting client can redraw the frame.
type alignmentStatus struct {
	Mode string      `json:"mode"`
	Quad *align.Quad `json:"quad,omitempty"`
}

// AlignmentStatusHandler returns the current session mode and geometry.
func AlignmentStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st := alignmentStatus{Mode: string(deps.Alignment.Mode())}
		if q, err := deps.Alignment.Geometry(); err == nil {
			st.Quad = &q
		}
		return c.JSON(st)
	}
}

// SelectImageHandler registers a freshly uploaded image and opens the
// pending-image stage of the upload flow.
func SelectImageHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var img domain.PendingImage
		if err := c.BodyParser(&img); err != nil {
			return errBadRequest(c, "invalid JSON body: "+err.Error())
		}
		if err := deps.Alignment.SelectImage(img); err != nil {
			return serviceError(c, err)
		}
		return c.Status(202).JSON(fiber.Map{"mode": string(deps.Alignment.Mode())})
	}
}

// BeginUploadHandler seeds an alignment frame in the given viewport and
// starts the interactive upload session.
func BeginUploadHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var vp domain.Viewport
		if err := c.BodyParser(&vp); err != nil {
			return errBadRequest(c, "invalid JSON body: "+err.Error())
		}
		if vp.WidthM <= 0 || vp.HeightM <= 0 {
			return errBadRequest(c, "viewport width_m and height_m must be positive")
		}
		if err := deps.Alignment.BeginUploadAlignment(vp); err != nil {
			return serviceError(c, err)
		}
		metrics.AlignmentSessionsStarted.WithLabelValues("upload").Inc()
		return alignmentGeometry(c, deps)
	}
}

// BeginEditHandler opens an alignment session on a saved overlay. The
// overlay is hidden while its frame is being dragged.
func BeginEditHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "overlay id is required")
		}
		if err := deps.Alignment.BeginEdit(actorContext(c), id); err != nil {
			return serviceError(c, err)
		}
		metrics.AlignmentSessionsStarted.WithLabelValues("edit").Inc()
		return alignmentGeometry(c, deps)
	}
}

// dragRequest names the handle being manipulated and, for move updates,
// the pointer's geographic position.
type dragRequest struct {
	Handle  string          `json:"handle"`
	Pointer domain.GeoPoint `json:"pointer"`
}

func (r *dragRequest) handle(c *fiber.Ctx) (align.Handle, error) {
	h, ok := align.ParseHandle(r.Handle)
	if !ok {
		return "", errBadRequest(c, "unknown handle: "+r.Handle)
	}
	return h, nil
}

// StartDragHandler snapshots the session state for a drag gesture.
func StartDragHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req dragRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body: "+err.Error())
		}
		h, herr := req.handle(c)
		if herr != nil {
			return herr
		}
		if err := deps.Alignment.StartDrag(h); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(204)
	}
}

// DragHandler applies one pointer-move update to the active gesture.
func DragHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req dragRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body: "+err.Error())
		}
		h, herr := req.handle(c)
		if herr != nil {
			return herr
		}
		if err := deps.Alignment.Drag(c.UserContext(), h, req.Pointer); err != nil {
			return serviceError(c, err)
		}
		metrics.DragEvents.WithLabelValues(string(h)).Inc()
		return alignmentGeometry(c, deps)
	}
}

// EndDragHandler finishes the active gesture.
func EndDragHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req dragRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body: "+err.Error())
		}
		h, herr := req.handle(c)
		if herr != nil {
			return herr
		}
		if err := deps.Alignment.EndDrag(h); err != nil {
			return serviceError(c, err)
		}
		return alignmentGeometry(c, deps)
	}
}

type rotationRequest struct {
	Degrees float64 `json:"degrees"`
}

// RotationHandler sets the frame rotation from the slider, in degrees.
func RotationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req rotationRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body: "+err.Error())
		}
		if err := deps.Alignment.UpdateRotation(c.UserContext(), req.Degrees); err != nil {
			return serviceError(c, err)
		}
		return alignmentGeometry(c, deps)
	}
}

type anchorRequest struct {
	Anchor string `json:"anchor"`
}

// AnchorHandler changes which corner scaling preserves.
func AnchorHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req anchorRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body: "+err.Error())
		}
		a, ok := align.ParseAnchor(req.Anchor)
		if !ok {
			return errBadRequest(c, "unknown anchor: "+req.Anchor)
		}
		if err := deps.Alignment.UpdateAnchor(a); err != nil {
			return serviceError(c, err)
		}
		return alignmentGeometry(c, deps)
	}
}

// CompleteAlignmentHandler confirms the frame. Upload sessions move on to
// metadata entry; edit sessions persist the new corners immediately.
func CompleteAlignmentHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := deps.Alignment.CompleteAlignment(actorContext(c))
		if err != nil {
			return serviceError(c, err)
		}
		metrics.AlignmentSessionsEnded.WithLabelValues("saved").Inc()
		return c.JSON(fiber.Map{
			"mode": string(deps.Alignment.Mode()),
			"quad": q,
		})
	}
}

// SubmitUploadHandler saves the aligned upload as a new overlay.
func SubmitUploadHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		o, err := deps.Alignment.SubmitUpload(actorContext(c))
		if err != nil {
			return serviceError(c, err)
		}
		metrics.OverlaysSaved.Inc()
		return c.Status(201).JSON(o)
	}
}

// ReopenAlignmentHandler re-enters alignment from the upload-ready stage.
func ReopenAlignmentHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Alignment.ReopenAlignment(); err != nil {
			return serviceError(c, err)
		}
		return alignmentGeometry(c, deps)
	}
}

// ResetAlignmentHandler restores the session's seed placement.
func ResetAlignmentHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Alignment.ResetAlignment(); err != nil {
			return serviceError(c, err)
		}
		return alignmentGeometry(c, deps)
	}
}

// CancelAlignmentHandler abandons the session without persisting anything.
func CancelAlignmentHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Alignment.CancelAlignment(actorContext(c)); err != nil {
			return serviceError(c, err)
		}
		metrics.AlignmentSessionsEnded.WithLabelValues("cancelled").Inc()
		return c.JSON(fiber.Map{"mode": string(deps.Alignment.Mode())})
	}
}

// alignmentGeometry responds with the session's current quad.
func alignmentGeometry(c *fiber.Ctx, deps *Dependencies) error {
	q, err := deps.Alignment.Geometry()
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"mode": string(deps.Alignment.Mode()),
		"quad": q,
	})
}
