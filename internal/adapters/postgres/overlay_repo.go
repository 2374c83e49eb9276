package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/anderzubi/orthopin/internal/core/domain"
)

// OverlayRepo implements ports.OverlayRepository with pgx.
//
// Corners are stored as flat float8 columns in the canonical winding order
// (top-left, top-right, bottom-right, bottom-left); the column order is part
// of the schema contract.
type OverlayRepo struct {
	db *DB
}

// NewOverlayRepo creates a new OverlayRepo.
func NewOverlayRepo(db *DB) *OverlayRepo {
	return &OverlayRepo{db: db}
}

const overlayColumns = `
	id, name, image_ref,
	tl_lat, tl_lon, tr_lat, tr_lon, br_lat, br_lon, bl_lat, bl_lon,
	width_px, height_px, opacity, visible, COALESCE(capture_date, ''),
	created_at, updated_at`

// Create inserts a new overlay and fills in its generated ID and timestamps.
func (r *OverlayRepo) Create(ctx context.Context, o *domain.Overlay) error {
	c := o.GeoCorners
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO overlays
			(name, image_ref,
			 tl_lat, tl_lon, tr_lat, tr_lon, br_lat, br_lon, bl_lat, bl_lon,
			 width_px, height_px, opacity, visible, capture_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NULLIF($15, ''))
		RETURNING id, created_at, updated_at
	`, o.Name, o.ImageRef,
		c[0].Lat, c[0].Lon, c[1].Lat, c[1].Lon, c[2].Lat, c[2].Lon, c[3].Lat, c[3].Lon,
		o.WidthPx, o.HeightPx, o.Opacity, o.Visible, o.CaptureDate,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert overlay: %w", err)
	}
	return nil
}

// GetByID returns an overlay by UUID.
func (r *OverlayRepo) GetByID(ctx context.Context, id string) (*domain.Overlay, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+overlayColumns+` FROM overlays WHERE id = $1`, id)
	return scanOverlay(row)
}

// Latest returns the most recently updated overlay.
func (r *OverlayRepo) Latest(ctx context.Context) (*domain.Overlay, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+overlayColumns+` FROM overlays ORDER BY updated_at DESC LIMIT 1`)
	return scanOverlay(row)
}

// List returns overlays ordered by recency plus the total count.
func (r *OverlayRepo) List(ctx context.Context, limit, offset int) ([]domain.Overlay, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM overlays`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+overlayColumns+` FROM overlays ORDER BY updated_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Overlay
	for rows.Next() {
		o, err := scanOverlay(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *o)
	}
	return out, total, rows.Err()
}

// UpdateCorners overwrites the stored geographic corners.
func (r *OverlayRepo) UpdateCorners(ctx context.Context, id string, c domain.QuadCorners) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE overlays SET
			tl_lat = $2, tl_lon = $3, tr_lat = $4, tr_lon = $5,
			br_lat = $6, br_lon = $7, bl_lat = $8, bl_lon = $9,
			updated_at = now()
		WHERE id = $1
	`, id, c[0].Lat, c[0].Lon, c[1].Lat, c[1].Lon, c[2].Lat, c[2].Lon, c[3].Lat, c[3].Lon)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetVisibility toggles the visible flag.
func (r *OverlayRepo) SetVisibility(ctx context.Context, id string, visible bool) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE overlays SET visible = $2, updated_at = now() WHERE id = $1`, id, visible)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Update changes descriptive fields only; geometry goes through UpdateCorners.
func (r *OverlayRepo) Update(ctx context.Context, o *domain.Overlay) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE overlays SET
			name = $2, opacity = $3, capture_date = NULLIF($4, ''), updated_at = now()
		WHERE id = $1
	`, o.ID, o.Name, o.Opacity, o.CaptureDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes an overlay.
func (r *OverlayRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM overlays WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanOverlay(row pgx.Row) (*domain.Overlay, error) {
	var o domain.Overlay
	c := &o.GeoCorners
	err := row.Scan(
		&o.ID, &o.Name, &o.ImageRef,
		&c[0].Lat, &c[0].Lon, &c[1].Lat, &c[1].Lon, &c[2].Lat, &c[2].Lon, &c[3].Lat, &c[3].Lon,
		&o.WidthPx, &o.HeightPx, &o.Opacity, &o.Visible, &o.CaptureDate,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	o.PixelCorners = domain.ImagePixelCorners(o.WidthPx, o.HeightPx)
	return &o, nil
}
