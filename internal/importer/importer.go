// Package importer turns layer source files into geometry the board pipeline
// can render. Every importer reports its extents; importers additionally
// provide pixel geometry (RasterImporter), polygon geometry (VectorImporter)
// or both.
package importer

import (
	"image"
	"math"

	"golang.org/x/image/vector"

	"github.com/piwi3910/pcbmill/internal/model"
)

// LayerImporter reports the native extents of a layer in board units.
type LayerImporter interface {
	Bounds() (minX, maxX, minY, maxY float64)
}

// VectorImporter provides a layer as polygons. With fill set, holes are
// dropped so a contour becomes a solid region.
type VectorImporter interface {
	LayerImporter
	Polygons(fill bool, pointsPerCircle int) (model.MultiPolygon, error)
}

// RasterImporter draws a layer into a coverage mask. Set pixels are copper
// (or board, for the outline layer).
type RasterImporter interface {
	LayerImporter
	Rasterize(dst *image.Alpha, tr Transform) error
}

// Transform maps board coordinates to pixels. The y axis is flipped so the
// image has the board's top edge at row 0.
type Transform struct {
	MinX   float64
	MaxY   float64
	DPI    int
	Margin int // Pixels of padding around the board
}

// ToPixel returns the pixel position of p.
func (t Transform) ToPixel(p model.Point2D) (x, y float64) {
	dpi := float64(t.DPI)
	return (p.X-t.MinX)*dpi + float64(t.Margin), (t.MaxY-p.Y)*dpi + float64(t.Margin)
}

// ToBoard returns the board position of pixel coordinate (x, y).
func (t Transform) ToBoard(x, y float64) model.Point2D {
	dpi := float64(t.DPI)
	return model.Point2D{
		X: (x-float64(t.Margin))/dpi + t.MinX,
		Y: t.MaxY - (y-float64(t.Margin))/dpi,
	}
}

// rasterCircleSegments is used when a raster importer draws circles.
const rasterCircleSegments = 64

// RasterizePolygons adds polys to dst. Outer rings and holes are wound in
// opposite directions so holes cancel under the rasterizer's accumulation.
// The result is thresholded to fully set or clear pixels.
func RasterizePolygons(dst *image.Alpha, tr Transform, polys model.MultiPolygon) {
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())

	addRing := func(ring model.Outline) {
		if len(ring) < 3 {
			return
		}
		x, y := tr.ToPixel(ring[0])
		z.MoveTo(float32(x), float32(y))
		for _, p := range ring[1:] {
			x, y = tr.ToPixel(p)
			z.LineTo(float32(x), float32(y))
		}
		z.ClosePath()
	}

	for _, p := range polys {
		addRing(p.Outer.CCW())
		for _, h := range p.Holes {
			addRing(h.CW())
		}
	}

	z.Draw(dst, b, image.Opaque, image.Point{})
	threshold(dst)
}

func threshold(img *image.Alpha) {
	for i, a := range img.Pix {
		if a >= 0x80 {
			img.Pix[i] = 0xff
		} else {
			img.Pix[i] = 0
		}
	}
}

// polygonBounds returns the extents of polys, or zeros when they are empty.
func polygonBounds(polys model.MultiPolygon) (minX, maxX, minY, maxY float64) {
	b, ok := polys.Bounds()
	if !ok {
		return 0, 0, 0, 0
	}
	return b.MinX, b.MaxX, b.MinY, b.MaxY
}

// pointsClose checks whether two points are within the given tolerance.
func pointsClose(a, b model.Point2D, tolerance float64) bool {
	return math.Hypot(a.X-b.X, a.Y-b.Y) <= tolerance
}
