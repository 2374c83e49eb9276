// Package align holds the overlay alignment geometry: an oriented rectangle
// on the mercator plane, the forward derivation of its corners and handles,
// the inverse reconstruction from four stored corners, and the drag session
// engine that mutates it.
package align

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/anderzubi/orthopin/internal/core/domain"
	"github.com/anderzubi/orthopin/internal/pkg/geodesy"
)

// Anchor selects which point of the rectangle stays geographically fixed
// while the scale handle is dragged.
type Anchor string

const (
	AnchorCenter      Anchor = "center"
	AnchorTopLeft     Anchor = "top_left"
	AnchorTopRight    Anchor = "top_right"
	AnchorBottomRight Anchor = "bottom_right"
	AnchorBottomLeft  Anchor = "bottom_left"
)

// ParseAnchor validates an anchor name from the API surface.
func ParseAnchor(s string) (Anchor, bool) {
	switch Anchor(s) {
	case AnchorCenter, AnchorTopLeft, AnchorTopRight, AnchorBottomRight, AnchorBottomLeft:
		return Anchor(s), true
	}
	return "", false
}

// State is the compact alignment parameter set: an oriented rectangle on
// the projected plane. HalfWidth and HalfHeight are strictly positive
// meters; Rotation is radians in (-pi, pi].
type State struct {
	Center     domain.ProjectedPoint `json:"center"`
	HalfWidth  float64               `json:"half_width"`
	HalfHeight float64               `json:"half_height"`
	Rotation   float64               `json:"rotation"`
}

// Quad is the derived overlay geometry handed to the renderer and to
// persistence: four geographic corners in canonical winding order plus the
// two drag handle positions.
type Quad struct {
	Corners     domain.QuadCorners `json:"corners"`
	Center      domain.GeoPoint    `json:"center"`
	ScaleHandle domain.GeoPoint    `json:"scale_handle"`
}

// minHalfExtent is the threshold under which a half-extent counts as
// collapsed. Plane units are meters, so this is far below anything an
// operator can produce.
const minHalfExtent = 1e-9

// cornerSigns are the axis sign combinations per corner slot, in the
// canonical TL, TR, BR, BL order.
var cornerSigns = [4][2]float64{
	{-1, -1},
	{+1, -1},
	{+1, +1},
	{-1, +1},
}

// NormalizeRotation wraps an angle into (-pi, pi].
func NormalizeRotation(rad float64) float64 {
	r := math.Mod(rad, 2*math.Pi)
	if r > math.Pi {
		r -= 2 * math.Pi
	}
	if r <= -math.Pi {
		r += 2 * math.Pi
	}
	return r
}

// Validate checks the State invariants.
func (s State) Validate() error {
	if math.IsNaN(s.Center.X) || math.IsNaN(s.Center.Y) ||
		math.IsInf(s.Center.X, 0) || math.IsInf(s.Center.Y, 0) {
		return &domain.DegenerateGeometryError{Reason: "non-finite center"}
	}
	if !(s.HalfWidth > minHalfExtent) || !(s.HalfHeight > minHalfExtent) {
		return &domain.DegenerateGeometryError{Reason: "collapsed half-extent"}
	}
	if math.IsNaN(s.Rotation) || math.IsInf(s.Rotation, 0) {
		return &domain.DegenerateGeometryError{Reason: "non-finite rotation"}
	}
	return nil
}

// axes returns the rectangle's half-axis vectors on the plane.
func (s State) axes() (ax, ay r2.Point) {
	sin, cos := math.Sincos(s.Rotation)
	ax = r2.Point{X: cos * s.HalfWidth, Y: sin * s.HalfWidth}
	ay = r2.Point{X: -sin * s.HalfHeight, Y: cos * s.HalfHeight}
	return ax, ay
}

func planePoint(p domain.ProjectedPoint) r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

// Corners derives the four projected corners in canonical winding order.
// Z is carried over from the center unchanged.
func Corners(s State) [4]domain.ProjectedPoint {
	ax, ay := s.axes()
	c := planePoint(s.Center)
	var out [4]domain.ProjectedPoint
	for i, sg := range cornerSigns {
		pt := c.Add(ax.Mul(sg[0])).Add(ay.Mul(sg[1]))
		out[i] = domain.ProjectedPoint{X: pt.X, Y: pt.Y, Z: s.Center.Z}
	}
	return out
}

// AnchorPoint returns the projected position of the given anchor under s.
func AnchorPoint(s State, a Anchor) domain.ProjectedPoint {
	if idx, ok := anchorCorner(a); ok {
		return Corners(s)[idx]
	}
	return s.Center
}

// anchorCorner maps an anchor to its corner slot; center has none.
func anchorCorner(a Anchor) (int, bool) {
	switch a {
	case AnchorTopLeft:
		return domain.CornerTopLeft, true
	case AnchorTopRight:
		return domain.CornerTopRight, true
	case AnchorBottomRight:
		return domain.CornerBottomRight, true
	case AnchorBottomLeft:
		return domain.CornerBottomLeft, true
	}
	return 0, false
}

// scaleHandleCorner is the corner diagonally opposite the anchor, which is
// where the scale handle sits. Center anchoring uses bottom-right by
// convention.
func scaleHandleCorner(a Anchor) int {
	switch a {
	case AnchorTopLeft:
		return domain.CornerBottomRight
	case AnchorTopRight:
		return domain.CornerBottomLeft
	case AnchorBottomRight:
		return domain.CornerTopLeft
	case AnchorBottomLeft:
		return domain.CornerTopRight
	}
	return domain.CornerBottomRight
}

// Forward derives the geographic overlay geometry from s. The anchor only
// picks which corner serves as the scale handle.
func Forward(s State, a Anchor) (Quad, error) {
	if err := s.Validate(); err != nil {
		return Quad{}, err
	}
	corners := Corners(s)
	var q Quad
	for i, c := range corners {
		q.Corners[i] = geodesy.ToGeographic(c)
	}
	q.Center = geodesy.ToGeographic(s.Center)
	q.ScaleHandle = q.Corners[scaleHandleCorner(a)]
	return q, nil
}

// Inverse reconstructs a State from four stored geographic corners. It is
// the structural inverse of Forward for rectangles; skewed quadrilaterals
// come back as the best-fit oriented rectangle.
func Inverse(corners domain.QuadCorners) (State, error) {
	var pts [4]r2.Point
	var z float64
	for i, c := range corners {
		pp, err := geodesy.ToProjected(geodesy.Normalize(c))
		if err != nil {
			return State{}, err
		}
		pts[i] = planePoint(pp)
		z += pp.Z / 4
	}

	center := pts[0].Add(pts[1]).Add(pts[2]).Add(pts[3]).Mul(0.25)

	rightMid := pts[domain.CornerTopRight].Add(pts[domain.CornerBottomRight]).Mul(0.5)
	topMid := pts[domain.CornerTopLeft].Add(pts[domain.CornerTopRight]).Mul(0.5)
	axisX := rightMid.Sub(center)
	axisY := topMid.Sub(center)

	hw := axisX.Norm()
	hh := axisY.Norm()
	if hw <= minHalfExtent || hh <= minHalfExtent {
		return State{}, &domain.DegenerateGeometryError{Reason: "corners are collinear or enclose no area"}
	}

	s := State{
		Center:     domain.ProjectedPoint{X: center.X, Y: center.Y, Z: z},
		HalfWidth:  hw,
		HalfHeight: hh,
		Rotation:   NormalizeRotation(math.Atan2(axisX.Y, axisX.X)),
	}
	return s, nil
}

// SeedState builds the initial alignment rectangle for a fresh upload:
// centered on the current map view, its longer side at ~60% of the shorter
// viewport dimension, aspect-matched to the image.
func SeedState(vp domain.Viewport, imgWidthPx, imgHeightPx float64) (State, error) {
	if imgWidthPx <= 0 || imgHeightPx <= 0 {
		return State{}, &domain.DegenerateGeometryError{Reason: "image has no area"}
	}
	if vp.WidthM <= 0 || vp.HeightM <= 0 {
		return State{}, &domain.DegenerateGeometryError{Reason: "viewport has no area"}
	}
	center, err := geodesy.ToProjected(geodesy.Normalize(vp.Center))
	if err != nil {
		return State{}, err
	}

	target := 0.6 * math.Min(vp.WidthM, vp.HeightM)
	aspect := imgWidthPx / imgHeightPx
	var w, h float64
	if aspect >= 1 {
		w, h = target, target/aspect
	} else {
		w, h = target*aspect, target
	}

	return State{Center: center, HalfWidth: w / 2, HalfHeight: h / 2}, nil
}
