// Package surface holds the renderable, maskable representations of board
// layers. Raster surfaces work on a pixel grid; vector surfaces work on
// polygons. Both produce ordered, closed toolpaths.
package surface

import (
	"errors"

	"github.com/piwi3910/pcbmill/internal/importer"
	"github.com/piwi3910/pcbmill/internal/model"
)

var (
	// ErrUnsupportedImporter is returned by Render when the importer cannot
	// provide geometry in the surface's representation.
	ErrUnsupportedImporter = errors.New("importer does not support this surface")

	// ErrMaskMismatch is returned by AddMask when the mask is of another
	// representation or size.
	ErrMaskMismatch = errors.New("mask surface does not match")

	// ErrSelfIntersecting is returned when vector input crosses itself.
	ErrSelfIntersecting = errors.New("polygon is self-intersecting")
)

// Surface is one layer's geometry in a common board frame.
type Surface interface {
	// EnableFilling makes the next Render treat the layer as a contour to
	// fill. It must be called before Render.
	EnableFilling()
	Render(imp importer.LayerImporter) error
	// AddMask keeps only the geometry inside mask.
	AddMask(mask Surface) error
	// Toolpaths returns closed cuts ordered for short travel. With mirror
	// set, the paths are reflected for milling from the back.
	Toolpaths(tool model.Tool, mirror bool) ([]model.Toolpath, error)
	SaveDebugImage(tag string) error
	WidthIn() float64
	HeightIn() float64
}

// Options configures a surface.
type Options struct {
	Bounds          model.Bounds
	DPI             int
	OutlineWidth    float64 // Raster contour stroke width when filling
	PointsPerCircle int
	TSP2Opt         bool
	Snapshots       *Snapshotter // nil disables debug images
}

// passes returns the offset of every cut around the geometry. A routing tool
// of radius r cuts at r, 2r, ... for each isolation pass; other tools cut
// along the geometry itself.
func passes(tool model.Tool) []float64 {
	r := model.Diameter(tool) / 2
	if r <= 0 {
		return []float64{0}
	}
	n := model.ExtraPasses(tool) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = r * float64(i+1)
	}
	return out
}

// mirrorAxis returns the x coordinate back side paths are reflected about.
func mirrorAxis(tool model.Tool, b model.Bounds) float64 {
	if tool != nil && tool.Base().MirrorAbsolute {
		return 0
	}
	return b.CenterX()
}
