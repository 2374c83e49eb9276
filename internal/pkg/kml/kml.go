// Package kml exports overlays as KML documents for Google Earth and
// other viewers that understand gx:LatLonQuad ground overlays.
package kml

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/anderzubi/orthopin/internal/core/domain"
)

const (
	kmlNamespace = "http://www.opengis.net/kml/2.2"
	gxNamespace  = "http://www.google.com/kml/ext/2.2"
)

type document struct {
	XMLName xml.Name `xml:"kml"`
	XMLNS   string   `xml:"xmlns,attr"`
	XMLNSGX string   `xml:"xmlns:gx,attr"`
	Doc     struct {
		Name     string        `xml:"name"`
		Overlay  groundOverlay `xml:"GroundOverlay"`
		Boundary placemark     `xml:"Placemark"`
	} `xml:"Document"`
}

type groundOverlay struct {
	Name  string `xml:"name"`
	Color string `xml:"color,omitempty"`
	Icon  struct {
		Href string `xml:"href"`
	} `xml:"Icon"`
	LatLonQuad struct {
		Coordinates string `xml:"coordinates"`
	} `xml:"gx:LatLonQuad"`
}

type placemark struct {
	Name    string `xml:"name"`
	Polygon struct {
		OuterBoundary struct {
			LinearRing struct {
				Coordinates string `xml:"coordinates"`
			} `xml:"LinearRing"`
		} `xml:"outerBoundaryIs"`
	} `xml:"Polygon"`
}

// GroundOverlay renders an overlay as a KML GroundOverlay document.
// gx:LatLonQuad wants the corners counter-clockwise starting at the
// lower left, each as lon,lat — the reverse of the stored winding.
func GroundOverlay(o *domain.Overlay) ([]byte, error) {
	if o == nil {
		return nil, fmt.Errorf("nil overlay")
	}

	var d document
	d.XMLNS = kmlNamespace
	d.XMLNSGX = gxNamespace
	d.Doc.Name = o.Name

	g := &d.Doc.Overlay
	g.Name = o.Name
	g.Color = opacityColor(o.Opacity)
	g.Icon.Href = o.ImageRef

	c := o.GeoCorners
	g.LatLonQuad.Coordinates = fmt.Sprintf("%.8f,%.8f %.8f,%.8f %.8f,%.8f %.8f,%.8f",
		c[domain.CornerBottomLeft].Lon, c[domain.CornerBottomLeft].Lat,
		c[domain.CornerBottomRight].Lon, c[domain.CornerBottomRight].Lat,
		c[domain.CornerTopRight].Lon, c[domain.CornerTopRight].Lat,
		c[domain.CornerTopLeft].Lon, c[domain.CornerTopLeft].Lat,
	)

	// Polygon outline of the footprint, closed back to the first corner.
	b := &d.Doc.Boundary
	b.Name = o.Name + " boundary"
	b.Polygon.OuterBoundary.LinearRing.Coordinates = fmt.Sprintf(
		"%.8f,%.8f,0 %.8f,%.8f,0 %.8f,%.8f,0 %.8f,%.8f,0 %.8f,%.8f,0",
		c[domain.CornerBottomLeft].Lon, c[domain.CornerBottomLeft].Lat,
		c[domain.CornerBottomRight].Lon, c[domain.CornerBottomRight].Lat,
		c[domain.CornerTopRight].Lon, c[domain.CornerTopRight].Lat,
		c[domain.CornerTopLeft].Lon, c[domain.CornerTopLeft].Lat,
		c[domain.CornerBottomLeft].Lon, c[domain.CornerBottomLeft].Lat,
	)

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(&d); err != nil {
		return nil, fmt.Errorf("encode kml: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// opacityColor converts an opacity fraction to KML's aabbggrr color,
// full white with the alpha channel carrying the opacity.
func opacityColor(opacity float64) string {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	return fmt.Sprintf("%02xffffff", int(opacity*255+0.5))
}
