package domain

import (
	"time"
)

// Overlay is a georeferenced drone orthophoto placed on the map as a
// quadrilateral. GeoCorners and PixelCorners share the canonical winding
// order so the renderer can map texture space to geographic space.
type Overlay struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	ImageRef     string       `json:"image_ref"`
	GeoCorners   QuadCorners  `json:"geo_corners"`
	PixelCorners PixelCorners `json:"pixel_corners"`
	WidthPx      float64      `json:"width_px"`
	HeightPx     float64      `json:"height_px"`
	Opacity      float64      `json:"opacity"`
	Visible      bool         `json:"visible"`
	CaptureDate  string       `json:"capture_date,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// AuditEntry records who changed what on an overlay.
type AuditEntry struct {
	ID      string         `json:"id"`
	Time    time.Time      `json:"time"`
	Actor   string         `json:"actor"`
	Action  string         `json:"action"`
	Subject string         `json:"subject"`
	Detail  map[string]any `json:"detail,omitempty"`
}

// PendingImage describes a freshly selected upload whose overlay has not
// been aligned yet.
type PendingImage struct {
	Name        string  `json:"name"`
	ImageRef    string  `json:"image_ref"`
	WidthPx     float64 `json:"width_px"`
	HeightPx    float64 `json:"height_px"`
	CaptureDate string  `json:"capture_date,omitempty"`
	Opacity     float64 `json:"opacity"`
}

// Viewport is the map view an upload alignment is seeded into.
type Viewport struct {
	Center  GeoPoint `json:"center"`
	WidthM  float64  `json:"width_m"`  // projected width of the view, meters
	HeightM float64  `json:"height_m"` // projected height of the view, meters
}
