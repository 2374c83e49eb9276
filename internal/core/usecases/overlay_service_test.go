package usecases_test

import (
	"context"
	"testing"

	"github.com/anderzubi/orthopin/internal/core/domain"
	"github.com/anderzubi/orthopin/internal/core/usecases"
)

// --- Mock OverlayRepository ---

type mockOverlayRepo struct {
	createFn        func(ctx context.Context, o *domain.Overlay) error
	getByIDFn       func(ctx context.Context, id string) (*domain.Overlay, error)
	latestFn        func(ctx context.Context) (*domain.Overlay, error)
	listFn          func(ctx context.Context, limit, offset int) ([]domain.Overlay, int, error)
	updateCornersFn func(ctx context.Context, id string, corners domain.QuadCorners) error
	setVisibilityFn func(ctx context.Context, id string, visible bool) error
	updateFn        func(ctx context.Context, o *domain.Overlay) error
	deleteFn        func(ctx context.Context, id string) error
}

func (m *mockOverlayRepo) Create(ctx context.Context, o *domain.Overlay) error {
	if m.createFn != nil {
		return m.createFn(ctx, o)
	}
	return nil
}
func (m *mockOverlayRepo) GetByID(ctx context.Context, id string) (*domain.Overlay, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}
func (m *mockOverlayRepo) Latest(ctx context.Context) (*domain.Overlay, error) {
	if m.latestFn != nil {
		return m.latestFn(ctx)
	}
	return nil, domain.ErrNotFound
}
func (m *mockOverlayRepo) List(ctx context.Context, limit, offset int) ([]domain.Overlay, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, 0, nil
}
func (m *mockOverlayRepo) UpdateCorners(ctx context.Context, id string, corners domain.QuadCorners) error {
	if m.updateCornersFn != nil {
		return m.updateCornersFn(ctx, id, corners)
	}
	return nil
}
func (m *mockOverlayRepo) SetVisibility(ctx context.Context, id string, visible bool) error {
	if m.setVisibilityFn != nil {
		return m.setVisibilityFn(ctx, id, visible)
	}
	return nil
}
func (m *mockOverlayRepo) Update(ctx context.Context, o *domain.Overlay) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, o)
	}
	return nil
}
func (m *mockOverlayRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// --- Mock AuditRepository ---

type mockAuditRepo struct {
	entries []domain.AuditEntry
}

func (m *mockAuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	m.entries = append(m.entries, *e)
	return nil
}
func (m *mockAuditRepo) ListRecent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	return m.entries, nil
}

func validCorners() domain.QuadCorners {
	return domain.QuadCorners{
		{Lat: 43.30, Lon: -2.95},
		{Lat: 43.30, Lon: -2.93},
		{Lat: 43.28, Lon: -2.93},
		{Lat: 43.28, Lon: -2.95},
	}
}

// --- Tests ---

func TestOverlayService_Create_Defaults(t *testing.T) {
	var created *domain.Overlay
	repo := &mockOverlayRepo{
		createFn: func(ctx context.Context, o *domain.Overlay) error {
			created = o
			return nil
		},
	}
	svc := usecases.NewOverlayService(repo, nil, nil, nil, 0.85)

	o := &domain.Overlay{
		GeoCorners: validCorners(),
		WidthPx:    1920,
		HeightPx:   1080,
	}
	if err := svc.Create(context.Background(), o); err != nil {
		t.Fatal(err)
	}
	if created.Name != "Drone Overlay" {
		t.Errorf("expected default name, got %q", created.Name)
	}
	if created.Opacity != 0.85 {
		t.Errorf("expected default opacity, got %v", created.Opacity)
	}
	if created.PixelCorners != domain.ImagePixelCorners(1920, 1080) {
		t.Error("pixel corners not derived from the image size")
	}
}

func TestOverlayService_Create_RejectsDegenerateCorners(t *testing.T) {
	svc := usecases.NewOverlayService(&mockOverlayRepo{}, nil, nil, nil, 0.85)

	p := domain.GeoPoint{Lat: 43.3, Lon: -2.9}
	o := &domain.Overlay{
		GeoCorners: domain.QuadCorners{p, p, p, p},
		WidthPx:    100,
		HeightPx:   100,
	}
	if err := svc.Create(context.Background(), o); !domain.IsDegenerate(err) {
		t.Errorf("expected DegenerateGeometryError, got %v", err)
	}
}

func TestOverlayService_Create_ClampsOpacity(t *testing.T) {
	var created *domain.Overlay
	repo := &mockOverlayRepo{
		createFn: func(ctx context.Context, o *domain.Overlay) error {
			created = o
			return nil
		},
	}
	svc := usecases.NewOverlayService(repo, nil, nil, nil, 0.85)

	o := &domain.Overlay{GeoCorners: validCorners(), WidthPx: 10, HeightPx: 10, Opacity: 3}
	if err := svc.Create(context.Background(), o); err != nil {
		t.Fatal(err)
	}
	if created.Opacity != 1 {
		t.Errorf("expected opacity clamped to 1, got %v", created.Opacity)
	}
}

func TestOverlayService_Create_WritesAudit(t *testing.T) {
	audit := &mockAuditRepo{}
	svc := usecases.NewOverlayService(&mockOverlayRepo{}, audit, nil, nil, 0.85)

	ctx := usecases.WithActor(context.Background(), "inspector@site")
	o := &domain.Overlay{GeoCorners: validCorners(), WidthPx: 10, HeightPx: 10}
	if err := svc.Create(ctx, o); err != nil {
		t.Fatal(err)
	}
	if len(audit.entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(audit.entries))
	}
	if audit.entries[0].Actor != "inspector@site" || audit.entries[0].Action != "create" {
		t.Errorf("unexpected audit entry %+v", audit.entries[0])
	}
}

func TestOverlayService_UpdateCorners_Validates(t *testing.T) {
	called := false
	repo := &mockOverlayRepo{
		updateCornersFn: func(ctx context.Context, id string, corners domain.QuadCorners) error {
			called = true
			return nil
		},
	}
	svc := usecases.NewOverlayService(repo, nil, nil, nil, 0.85)

	p := domain.GeoPoint{Lat: 1, Lon: 1}
	err := svc.UpdateCorners(context.Background(), "ovl-1", domain.QuadCorners{p, p, p, p})
	if !domain.IsDegenerate(err) {
		t.Fatalf("expected DegenerateGeometryError, got %v", err)
	}
	if called {
		t.Error("repo must not be called for degenerate corners")
	}

	if err := svc.UpdateCorners(context.Background(), "ovl-1", validCorners()); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("repo not called for valid corners")
	}
}

func TestOverlayService_List_ClampsLimit(t *testing.T) {
	repo := &mockOverlayRepo{
		listFn: func(ctx context.Context, limit, offset int) ([]domain.Overlay, int, error) {
			if limit != 50 {
				t.Errorf("expected limit clamped to 50, got %d", limit)
			}
			if offset != 0 {
				t.Errorf("expected offset clamped to 0, got %d", offset)
			}
			return nil, 0, nil
		},
	}
	svc := usecases.NewOverlayService(repo, nil, nil, nil, 0.85)
	if _, _, err := svc.List(context.Background(), 9999, -3); err != nil {
		t.Fatal(err)
	}
}

func TestOverlayService_GroundSpan(t *testing.T) {
	svc := usecases.NewOverlayService(&mockOverlayRepo{}, nil, nil, nil, 0.85)
	o := &domain.Overlay{GeoCorners: validCorners()}
	w, h := svc.GroundSpan(o)
	// Corners are ~0.02 degrees apart: spans on the order of a couple km.
	if w < 1000 || w > 3000 {
		t.Errorf("implausible width %v m", w)
	}
	if h < 1000 || h > 3000 {
		t.Errorf("implausible height %v m", h)
	}
}
