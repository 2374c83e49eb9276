//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anderzubi/orthopin/internal/adapters/http"
	"github.com/anderzubi/orthopin/internal/adapters/postgres"
	"github.com/anderzubi/orthopin/internal/core/domain"
	"github.com/anderzubi/orthopin/internal/core/usecases"
	"github.com/anderzubi/orthopin/internal/pkg/config"
)

// setupTestDB connects to the test database and returns a clean DB instance.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("orthopin-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	dsn := cfg.Database.DSN()
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}

	db := &postgres.DB{Pool: pool}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("ping db: %v", err)
	}

	return db
}

// setupTestDeps creates dependencies with real DB and repos, no cache.
func setupTestDeps(t *testing.T, db *postgres.DB) *http.Dependencies {
	overlayRepo := postgres.NewOverlayRepo(db)
	auditRepo := postgres.NewAuditRepo(db)

	overlaySvc := usecases.NewOverlayService(overlayRepo, auditRepo, nil, nil, 0.85)
	return &http.Dependencies{
		Overlays:  overlaySvc,
		Alignment: usecases.NewAlignmentService(overlaySvc, nil),
		DB:        db,
	}
}

// seedTestOverlay inserts an overlay directly and returns its UUID.
func seedTestOverlay(t *testing.T, db *postgres.DB, name string) string {
	ctx := context.Background()
	c := validCorners()
	var id string
	if err := db.Pool.QueryRow(ctx, `
		INSERT INTO overlays
			(name, image_ref,
			 tl_lat, tl_lon, tr_lat, tr_lon, br_lat, br_lon, bl_lat, bl_lon,
			 width_px, height_px, opacity, visible)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 4000, 3000, 0.85, true)
		RETURNING id
	`, name, "/images/"+name+".png",
		c[0].Lat, c[0].Lon, c[1].Lat, c[1].Lon,
		c[2].Lat, c[2].Lon, c[3].Lat, c[3].Lon).Scan(&id); err != nil {
		t.Fatalf("seed overlay: %v", err)
	}
	return id
}

// TestListOverlays_Integration tests overlay listing against a real database.
func TestListOverlays_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	seedTestOverlay(t, db, "integ-a")
	seedTestOverlay(t, db, "integ-b")

	deps := setupTestDeps(t, db)
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/overlays", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Overlay    `json:"data"`
		Pagination struct{ Total int } `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if result.Pagination.Total < 2 {
		t.Errorf("expected at least 2 overlays, got %d", result.Pagination.Total)
	}
}

// TestGetOverlay_Integration tests overlay lookup against a real database.
func TestGetOverlay_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	name := "integ-" + time.Now().Format("20060102150405")
	id := seedTestOverlay(t, db, name)

	deps := setupTestDeps(t, db)
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/overlays/"+id, nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var overlay domain.Overlay
	if err := json.NewDecoder(resp.Body).Decode(&overlay); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if overlay.Name != name {
		t.Errorf("expected name %s, got %s", name, overlay.Name)
	}
}

// TestEditFlow_Integration runs the full edit alignment cycle against a
// real database: open, drag, complete, and verify the corners moved.
func TestEditFlow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	id := seedTestOverlay(t, db, "integ-edit-"+time.Now().Format("150405"))

	deps := setupTestDeps(t, db)
	app := setupApp(deps)

	resp := doJSON(t, app, "POST", "/v1/alignment/edit/"+id, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("begin edit: expected 200, got %d", resp.StatusCode)
	}

	doJSON(t, app, "POST", "/v1/alignment/drag/start", map[string]any{"handle": "center"})
	doJSON(t, app, "POST", "/v1/alignment/drag", map[string]any{
		"handle":  "center",
		"pointer": domain.GeoPoint{Lat: 43.28, Lon: -2.96},
	})
	doJSON(t, app, "POST", "/v1/alignment/drag/end", map[string]any{"handle": "center"})

	resp = doJSON(t, app, "POST", "/v1/alignment/complete", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("complete: expected 200, got %d", resp.StatusCode)
	}

	// Corners must have moved north-west of the seeded footprint.
	repo := postgres.NewOverlayRepo(db)
	after, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload overlay: %v", err)
	}
	if after.GeoCorners[0].Lat <= validCorners()[0].Lat {
		t.Errorf("expected corners to move north, got %+v", after.GeoCorners[0])
	}
}
