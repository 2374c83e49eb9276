package align_test

import (
	"errors"
	"math"
	"testing"

	"github.com/anderzubi/orthopin/internal/core/domain"
	"github.com/anderzubi/orthopin/internal/pkg/align"
	"github.com/anderzubi/orthopin/internal/pkg/geodesy"
)

func newTestSession(t *testing.T) *align.Session {
	t.Helper()
	s, err := align.NewSession(align.State{
		Center:     domain.ProjectedPoint{X: -326000, Y: 5350000},
		HalfWidth:  400,
		HalfHeight: 250,
		Rotation:   0.4,
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// geoAt converts a plane offset from the state's center into a geographic
// pointer position, mimicking the map reporting a drag location.
func geoAt(t *testing.T, s align.State, dx, dy float64) domain.GeoPoint {
	t.Helper()
	return geodesy.ToGeographic(domain.ProjectedPoint{
		X: s.Center.X + dx,
		Y: s.Center.Y + dy,
	})
}

func TestSession_CenterDrag(t *testing.T) {
	s := newTestSession(t)
	before := s.State()

	if err := s.StartDrag(align.HandleCenter); err != nil {
		t.Fatal(err)
	}
	target := domain.GeoPoint{Lat: 43.3, Lon: -2.9}
	if err := s.Drag(align.HandleCenter, target); err != nil {
		t.Fatal(err)
	}
	if err := s.EndDrag(align.HandleCenter); err != nil {
		t.Fatal(err)
	}

	after := s.State()
	wantCenter, _ := geodesy.ToProjected(target)
	if math.Abs(after.Center.X-wantCenter.X) > 1e-9 || math.Abs(after.Center.Y-wantCenter.Y) > 1e-9 {
		t.Errorf("center not moved to pointer: %+v", after.Center)
	}
	if after.HalfWidth != before.HalfWidth || after.HalfHeight != before.HalfHeight || after.Rotation != before.Rotation {
		t.Error("translate changed size or rotation")
	}
}

func TestSession_MoveWithoutStartIsNoOp(t *testing.T) {
	s := newTestSession(t)
	before := s.State()

	err := s.Drag(align.HandleScale, domain.GeoPoint{Lat: 43, Lon: -3})
	var ise *domain.InvalidSessionStateError
	if !errors.As(err, &ise) {
		t.Fatalf("expected InvalidSessionStateError, got %v", err)
	}
	if s.State() != before {
		t.Error("state changed on stray move")
	}
}

func TestSession_MismatchedHandleIsNoOp(t *testing.T) {
	s := newTestSession(t)
	if err := s.StartDrag(align.HandleCenter); err != nil {
		t.Fatal(err)
	}
	before := s.State()
	if err := s.Drag(align.HandleScale, domain.GeoPoint{Lat: 43, Lon: -3}); err == nil {
		t.Fatal("expected error for mismatched handle")
	}
	if s.State() != before {
		t.Error("state changed on mismatched move")
	}
}

func TestSession_UniformScale(t *testing.T) {
	s := newTestSession(t)
	before := s.State()

	if err := s.StartDrag(align.HandleScale); err != nil {
		t.Fatal(err)
	}
	// Pointer at triple the width along the rotated x axis.
	sin, cos := math.Sincos(before.Rotation)
	p := geoAt(t, before, 3*before.HalfWidth*cos, 3*before.HalfWidth*sin)
	if err := s.Drag(align.HandleScale, p); err != nil {
		t.Fatal(err)
	}

	after := s.State()
	rw := after.HalfWidth / before.HalfWidth
	rh := after.HalfHeight / before.HalfHeight
	if !almostEqual(rw, rh, 1e-9) {
		t.Errorf("aspect ratio changed: width x%v, height x%v", rw, rh)
	}
	if !almostEqual(rw, 3, 1e-6) {
		t.Errorf("expected scale 3, got %v", rw)
	}
	if after.Rotation != before.Rotation {
		t.Error("scale changed rotation")
	}
}

func TestSession_ScaleClamped(t *testing.T) {
	s := newTestSession(t)
	before := s.State()

	if err := s.StartDrag(align.HandleScale); err != nil {
		t.Fatal(err)
	}
	// A pointer 1000 widths out clamps at MaxScale.
	sin, cos := math.Sincos(before.Rotation)
	far := geoAt(t, before, 1000*before.HalfWidth*cos, 1000*before.HalfWidth*sin)
	if err := s.Drag(align.HandleScale, far); err != nil {
		t.Fatal(err)
	}
	if got := s.State().HalfWidth / before.HalfWidth; !almostEqual(got, align.MaxScale, 1e-6) {
		t.Errorf("expected clamp at %v, got %v", align.MaxScale, got)
	}

	// And a pointer a hair from the center clamps at MinScale.
	near := geoAt(t, before, 0.001*before.HalfWidth*cos, 0.001*before.HalfWidth*sin)
	if err := s.Drag(align.HandleScale, near); err != nil {
		t.Fatal(err)
	}
	if got := s.State().HalfWidth / before.HalfWidth; !almostEqual(got, align.MinScale, 1e-6) {
		t.Errorf("expected clamp at %v, got %v", align.MinScale, got)
	}
	if err := s.EndDrag(align.HandleScale); err != nil {
		t.Fatal(err)
	}
}

func TestSession_AnchorInvariantUnderScale(t *testing.T) {
	anchors := []align.Anchor{
		align.AnchorTopLeft,
		align.AnchorTopRight,
		align.AnchorBottomRight,
		align.AnchorBottomLeft,
	}

	for _, a := range anchors {
		s := newTestSession(t)
		if err := s.SetAnchor(a); err != nil {
			t.Fatal(err)
		}
		before := align.AnchorPoint(s.State(), a)

		if err := s.StartDrag(align.HandleScale); err != nil {
			t.Fatal(err)
		}
		st := s.State()
		sin, cos := math.Sincos(st.Rotation)
		p := geoAt(t, st, 2*st.HalfWidth*cos-0.5*st.HalfHeight*sin, 2*st.HalfWidth*sin+0.5*st.HalfHeight*cos)
		if err := s.Drag(align.HandleScale, p); err != nil {
			t.Fatal(err)
		}
		if err := s.EndDrag(align.HandleScale); err != nil {
			t.Fatal(err)
		}

		after := align.AnchorPoint(s.State(), a)
		if math.Abs(after.X-before.X) > 1e-6 || math.Abs(after.Y-before.Y) > 1e-6 {
			t.Errorf("anchor %s moved during scale: %+v -> %+v", a, before, after)
		}
	}
}

func TestSession_ScaleDoubleWithTopLeftAnchor(t *testing.T) {
	s, err := align.NewSession(align.State{
		Center:     domain.ProjectedPoint{},
		HalfWidth:  100,
		HalfHeight: 50,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetAnchor(align.AnchorTopLeft); err != nil {
		t.Fatal(err)
	}

	topLeftBefore := align.AnchorPoint(s.State(), align.AnchorTopLeft)
	qBefore, err := s.Quad()
	if err != nil {
		t.Fatal(err)
	}

	if err := s.StartDrag(align.HandleScale); err != nil {
		t.Fatal(err)
	}
	// Double the distance along both axes from the center.
	if err := s.Drag(align.HandleScale, geoAt(t, s.State(), 200, 100)); err != nil {
		t.Fatal(err)
	}
	if err := s.EndDrag(align.HandleScale); err != nil {
		t.Fatal(err)
	}

	after := s.State()
	if !almostEqual(after.HalfWidth, 200, 1e-9) || !almostEqual(after.HalfHeight, 100, 1e-9) {
		t.Errorf("expected extents doubled, got %v x %v", after.HalfWidth, after.HalfHeight)
	}

	topLeftAfter := align.AnchorPoint(after, align.AnchorTopLeft)
	if math.Abs(topLeftAfter.X-topLeftBefore.X) > 1e-9 || math.Abs(topLeftAfter.Y-topLeftBefore.Y) > 1e-9 {
		t.Errorf("top-left anchor moved: %+v -> %+v", topLeftBefore, topLeftAfter)
	}

	qAfter, err := s.Quad()
	if err != nil {
		t.Fatal(err)
	}
	brB := qBefore.Corners[domain.CornerBottomRight]
	brA := qAfter.Corners[domain.CornerBottomRight]
	if !(brA.Lon > brB.Lon && brA.Lat > brB.Lat) {
		t.Errorf("bottom-right did not move outward: %+v -> %+v", brB, brA)
	}
}

func TestSession_AnchorHandleDragsWholeRect(t *testing.T) {
	s := newTestSession(t)
	if err := s.SetAnchor(align.AnchorBottomLeft); err != nil {
		t.Fatal(err)
	}
	before := s.State()

	if err := s.StartDrag(align.HandleAnchor); err != nil {
		t.Fatal(err)
	}
	target := geoAt(t, before, 1234, -567)
	if err := s.Drag(align.HandleAnchor, target); err != nil {
		t.Fatal(err)
	}
	if err := s.EndDrag(align.HandleAnchor); err != nil {
		t.Fatal(err)
	}

	after := s.State()
	if after.HalfWidth != before.HalfWidth || after.HalfHeight != before.HalfHeight || after.Rotation != before.Rotation {
		t.Error("anchor drag changed size or rotation")
	}
	wantPt, _ := geodesy.ToProjected(geodesy.Normalize(target))
	gotCorner := align.AnchorPoint(after, align.AnchorBottomLeft)
	if math.Abs(gotCorner.X-wantPt.X) > 1e-6 || math.Abs(gotCorner.Y-wantPt.Y) > 1e-6 {
		t.Errorf("anchor corner not at pointer: %+v vs %+v", gotCorner, wantPt)
	}
}

func TestSession_SetRotationDegrees(t *testing.T) {
	s := newTestSession(t)

	if err := s.SetRotationDegrees(90); err != nil {
		t.Fatal(err)
	}
	if got := s.State().Rotation; math.Abs(got-math.Pi/2) > 1e-12 {
		t.Errorf("expected pi/2, got %v", got)
	}

	// Out-of-bound input clamps.
	if err := s.SetRotationDegrees(700); err != nil {
		t.Fatal(err)
	}
	if got := s.State().Rotation; math.Abs(got-math.Pi) > 1e-12 {
		t.Errorf("expected clamp at pi, got %v", got)
	}

	if err := s.SetRotationDegrees(math.NaN()); err == nil {
		t.Error("expected error for NaN rotation")
	}
}

func TestSession_Reset(t *testing.T) {
	s := newTestSession(t)
	seed := s.State()

	if err := s.StartDrag(align.HandleCenter); err != nil {
		t.Fatal(err)
	}
	if err := s.Drag(align.HandleCenter, domain.GeoPoint{Lat: 10, Lon: 10}); err != nil {
		t.Fatal(err)
	}
	s.Reset()

	if s.State() != seed {
		t.Error("reset did not restore the seed state")
	}
	if s.Dragging() {
		t.Error("reset left a gesture open")
	}
}

func TestNewSession_RejectsCollapsedSeed(t *testing.T) {
	_, err := align.NewSession(align.State{HalfWidth: 0, HalfHeight: 10})
	if !domain.IsDegenerate(err) {
		t.Fatalf("expected DegenerateGeometryError, got %v", err)
	}
}

func TestSession_PointerNormalizedBeforeUse(t *testing.T) {
	s := newTestSession(t)
	if err := s.StartDrag(align.HandleCenter); err != nil {
		t.Fatal(err)
	}
	// A pointer past the antimeridian wraps instead of erroring.
	if err := s.Drag(align.HandleCenter, domain.GeoPoint{Lat: 95, Lon: 190}); err != nil {
		t.Fatal(err)
	}
	got := geodesy.ToGeographic(s.State().Center)
	if math.Abs(got.Lon-(-170)) > 1e-6 {
		t.Errorf("expected wrapped lon -170, got %v", got.Lon)
	}
}
