package importer

import (
	"image"

	"github.com/piwi3910/pcbmill/internal/model"
)

// PolygonImporter serves polygons already held in memory.
type PolygonImporter struct {
	polys model.MultiPolygon
}

// NewPolygonImporter returns an importer for polys.
func NewPolygonImporter(polys model.MultiPolygon) *PolygonImporter {
	return &PolygonImporter{polys: polys}
}

// Bounds implements LayerImporter.
func (p *PolygonImporter) Bounds() (minX, maxX, minY, maxY float64) {
	return polygonBounds(p.polys)
}

// Polygons implements VectorImporter. pointsPerCircle is unused since the
// polygons are already flattened.
func (p *PolygonImporter) Polygons(fill bool, _ int) (model.MultiPolygon, error) {
	if fill {
		return p.polys.Filled(), nil
	}
	out := make(model.MultiPolygon, len(p.polys))
	copy(out, p.polys)
	return out, nil
}

// Rasterize implements RasterImporter.
func (p *PolygonImporter) Rasterize(dst *image.Alpha, tr Transform) error {
	RasterizePolygons(dst, tr, p.polys)
	return nil
}
