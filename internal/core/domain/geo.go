package domain

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ProjectedPoint is a point on the web-mercator plane, in meters.
// Z carries the reference plane height through round trips; the
// transform math never reads it.
type ProjectedPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Corner slots in the canonical winding order. The order (top-left,
// top-right, bottom-right, bottom-left, relative to the unrotated
// rectangle) is a contract shared by the geometry code, the pixel-corner
// correspondence, and the overlays table; it must not change.
const (
	CornerTopLeft = iota
	CornerTopRight
	CornerBottomRight
	CornerBottomLeft
)

// QuadCorners is a quadrilateral's four corners in canonical winding order.
type QuadCorners [4]GeoPoint

// PixelCorners are the source image's own corner coordinates, (0,0) to
// (width,height), in the same winding order as QuadCorners.
type PixelCorners [4][2]float64

// ImagePixelCorners builds the pixel corners for an image of the given size.
func ImagePixelCorners(width, height float64) PixelCorners {
	return PixelCorners{
		{0, 0},
		{width, 0},
		{width, height},
		{0, height},
	}
}
