package align

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/anderzubi/orthopin/internal/core/domain"
	"github.com/anderzubi/orthopin/internal/pkg/geodesy"
)

// Handle identifies which drag handle a pointer gesture is driving.
type Handle string

const (
	// HandleCenter translates the rectangle.
	HandleCenter Handle = "center"
	// HandleScale performs anchor-preserving uniform scaling.
	HandleScale Handle = "scale"
	// HandleAnchor repositions the anchor corner, dragging the whole
	// rectangle with it.
	HandleAnchor Handle = "anchor"
)

// ParseHandle validates a handle name from the API surface.
func ParseHandle(s string) (Handle, bool) {
	switch Handle(s) {
	case HandleCenter, HandleScale, HandleAnchor:
		return Handle(s), true
	}
	return "", false
}

// Uniform scale clamp applied to scale-handle drags. The max-of-axis-ratios
// rule keeps the aspect ratio fixed; the engine never stretches width and
// height independently.
const (
	MinScale = 0.05
	MaxScale = 50.0
)

// snapshot is the gesture-scoped copy of the state taken at drag start.
// Destroyed at drag end; a move event with no snapshot is a no-op.
type snapshot struct {
	handle   Handle
	state    State
	anchor   Anchor
	anchorPt r2.Point
}

// Session owns the single mutable State during an alignment session. All
// mutation goes through its methods; geometry recomputation is pure
// arithmetic and safe to run on every pointer move.
type Session struct {
	state  State
	seed   State
	anchor Anchor
	snap   *snapshot
}

// NewSession starts a session from a seed state. The seed's rotation is
// normalized; a collapsed seed is refused.
func NewSession(seed State) (*Session, error) {
	seed.Rotation = NormalizeRotation(seed.Rotation)
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	return &Session{state: seed, seed: seed, anchor: AnchorCenter}, nil
}

// State returns a copy of the live alignment state.
func (s *Session) State() State { return s.state }

// Anchor returns the active anchor.
func (s *Session) Anchor() Anchor { return s.anchor }

// Dragging reports whether a gesture is in progress.
func (s *Session) Dragging() bool { return s.snap != nil }

// Quad derives the current overlay geometry.
func (s *Session) Quad() (Quad, error) {
	return Forward(s.state, s.anchor)
}

// SetAnchor switches the fixed point used by subsequent scale gestures.
func (s *Session) SetAnchor(a Anchor) error {
	if _, ok := ParseAnchor(string(a)); !ok {
		return &domain.InvalidSessionStateError{Op: "unknown anchor " + string(a)}
	}
	s.anchor = a
	return nil
}

// SetRotationDegrees sets the rotation directly from a bounded form input.
// Degrees outside [-180, 180] are clamped; the new rotation takes effect on
// the next geometry derivation.
func (s *Session) SetRotationDegrees(deg float64) error {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return &domain.InvalidCoordinateError{Lat: deg}
	}
	deg = math.Max(-180, math.Min(180, deg))
	s.state.Rotation = NormalizeRotation(deg * math.Pi / 180)
	return nil
}

// StartDrag opens a gesture on the given handle, snapshotting the state
// and the anchor's current plane position. A scale gesture on collapsed
// geometry is refused and the state left untouched.
func (s *Session) StartDrag(h Handle) error {
	if _, ok := ParseHandle(string(h)); !ok {
		return &domain.InvalidSessionStateError{Op: "unknown handle " + string(h)}
	}
	if h == HandleScale {
		if err := s.state.Validate(); err != nil {
			return err
		}
	}
	s.snap = &snapshot{
		handle:   h,
		state:    s.state,
		anchor:   s.anchor,
		anchorPt: planePoint(AnchorPoint(s.state, s.anchor)),
	}
	return nil
}

// Drag applies a pointer move to the open gesture. A move with no matching
// start is a no-op signalled with InvalidSessionStateError so the caller
// can log it.
func (s *Session) Drag(h Handle, pointer domain.GeoPoint) error {
	if s.snap == nil || s.snap.handle != h {
		return &domain.InvalidSessionStateError{Op: "move without start on handle " + string(h)}
	}

	pp, err := geodesy.ToProjected(geodesy.Normalize(pointer))
	if err != nil {
		return err
	}
	p := planePoint(pp)

	switch h {
	case HandleCenter:
		s.state.Center = domain.ProjectedPoint{X: p.X, Y: p.Y, Z: s.state.Center.Z}
	case HandleScale:
		s.applyScale(p)
	case HandleAnchor:
		s.applyAnchorMove(p)
	}
	return nil
}

// EndDrag closes the gesture and discards its snapshot.
func (s *Session) EndDrag(h Handle) error {
	if s.snap == nil || s.snap.handle != h {
		return &domain.InvalidSessionStateError{Op: "end without start on handle " + string(h)}
	}
	s.snap = nil
	return nil
}

// Reset restores the seed state and aborts any open gesture.
func (s *Session) Reset() {
	s.state = s.seed
	s.anchor = AnchorCenter
	s.snap = nil
}

// applyScale resizes uniformly about the snapshot anchor. The pointer's
// offset from the snapshot center is projected onto the snapshot's rotated
// unit axes and the larger of the two axis ratios becomes the scale factor.
func (s *Session) applyScale(p r2.Point) {
	snap := s.snap
	sin, cos := math.Sincos(snap.state.Rotation)
	ux := r2.Point{X: cos, Y: sin}
	uy := r2.Point{X: -sin, Y: cos}

	v := p.Sub(planePoint(snap.state.Center))
	projX := v.Dot(ux)
	projY := v.Dot(uy)

	scale := math.Max(
		math.Abs(projX)/snap.state.HalfWidth,
		math.Abs(projY)/snap.state.HalfHeight,
	)
	scale = math.Max(MinScale, math.Min(MaxScale, scale))

	next := snap.state
	next.HalfWidth = snap.state.HalfWidth * scale
	next.HalfHeight = snap.state.HalfHeight * scale

	if idx, ok := anchorCorner(snap.anchor); ok {
		// Solve the corner formula for the center so the anchor corner
		// lands back on its snapshot position under the new extents.
		ax, ay := next.axes()
		sg := cornerSigns[idx]
		c := snap.anchorPt.Sub(ax.Mul(sg[0])).Sub(ay.Mul(sg[1]))
		next.Center = domain.ProjectedPoint{X: c.X, Y: c.Y, Z: snap.state.Center.Z}
	}

	s.state = next
}

// applyAnchorMove repositions the anchor corner, holding the live extents
// and rotation. With a center anchor this degenerates to a translate.
func (s *Session) applyAnchorMove(p r2.Point) {
	idx, ok := anchorCorner(s.anchor)
	if !ok {
		s.state.Center = domain.ProjectedPoint{X: p.X, Y: p.Y, Z: s.state.Center.Z}
		return
	}
	ax, ay := s.state.axes()
	sg := cornerSigns[idx]
	c := p.Sub(ax.Mul(sg[0])).Sub(ay.Mul(sg[1]))
	s.state.Center = domain.ProjectedPoint{X: c.X, Y: c.Y, Z: s.state.Center.Z}
}
