package importer

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/entity"

	"github.com/piwi3910/pcbmill/internal/logging"
	"github.com/piwi3910/pcbmill/internal/model"
)

// ErrNoGeometry is returned when a file yields no closed shape.
var ErrNoGeometry = errors.New("no closed shapes found")

// segment represents a line segment between two 2D points, used for
// chaining disconnected LINE entities into closed outlines.
type segment struct {
	start model.Point2D
	end   model.Point2D
}

type circle struct {
	center model.Point2D
	radius float64
}

// DXFImporter serves the closed shapes of a DXF drawing. Nested shapes
// become holes; circles are flattened on demand.
type DXFImporter struct {
	rings    []model.Outline
	circles  []circle
	bounds   model.Bounds
	Warnings []string
}

// LoadDXF reads a DXF file. scale converts drawing units to inches
// (1/25.4 for a millimetre drawing).
func LoadDXF(path string, scale float64) (*DXFImporter, error) {
	drawing, err := dxf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open DXF file: %w", err)
	}
	return fromEntities(drawing.Entities(), scale, path)
}

func fromEntities(entities []entity.Entity, scale float64, source string) (*DXFImporter, error) {
	if len(entities) == 0 {
		return nil, fmt.Errorf("%w: %s contains no entities", ErrNoGeometry, source)
	}
	if scale <= 0 {
		scale = 1
	}

	imp := &DXFImporter{}
	var segments []segment

	for _, ent := range entities {
		switch e := ent.(type) {
		case *entity.LwPolyline:
			outline := lwPolylineToOutline(e)
			if len(outline) >= 3 {
				imp.rings = append(imp.rings, scaleOutline(outline, scale))
			} else {
				imp.Warnings = append(imp.Warnings, "Skipped LWPOLYLINE with fewer than 3 vertices")
			}

		case *entity.Circle:
			imp.circles = append(imp.circles, circle{
				center: model.Point2D{X: e.Center[0] * scale, Y: e.Center[1] * scale},
				radius: e.Radius * scale,
			})

		case *entity.Arc:
			pts := arcToPoints(e, 32)
			if len(pts) >= 2 {
				segments = append(segments, pointsToSegments(scaleOutline(pts, scale))...)
			}

		case *entity.Line:
			segments = append(segments, segment{
				start: model.Point2D{X: e.Start[0] * scale, Y: e.Start[1] * scale},
				end:   model.Point2D{X: e.End[0] * scale, Y: e.End[1] * scale},
			})

		default:
			// Unsupported entity types are silently skipped
		}
	}

	// Chain loose segments (LINEs and ARCs) into closed outlines
	chained, open := chainSegments(segments, 0.0004)
	imp.rings = append(imp.rings, chained...)
	if open > 0 {
		imp.Warnings = append(imp.Warnings, fmt.Sprintf("Skipped %d open chain(s) of LINE/ARC entities", open))
	}

	if len(imp.rings) == 0 && len(imp.circles) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoGeometry, source)
	}

	for _, w := range imp.Warnings {
		logging.Logger().Warn("dxf import", "file", source, "warning", w)
	}

	imp.bounds = model.EmptyBounds()
	for _, r := range imp.rings {
		lo, hi := r.BoundingBox()
		imp.bounds = imp.bounds.Union(model.Bounds{MinX: lo.X, MaxX: hi.X, MinY: lo.Y, MaxY: hi.Y})
	}
	for _, c := range imp.circles {
		imp.bounds = imp.bounds.Union(model.Bounds{
			MinX: c.center.X - c.radius, MaxX: c.center.X + c.radius,
			MinY: c.center.Y - c.radius, MaxY: c.center.Y + c.radius,
		})
	}
	return imp, nil
}

// Bounds implements LayerImporter.
func (d *DXFImporter) Bounds() (minX, maxX, minY, maxY float64) {
	return d.bounds.MinX, d.bounds.MaxX, d.bounds.MinY, d.bounds.MaxY
}

// Polygons implements VectorImporter.
func (d *DXFImporter) Polygons(fill bool, pointsPerCircle int) (model.MultiPolygon, error) {
	polys := d.assemble(pointsPerCircle)
	if fill {
		polys = polys.Filled()
	}
	return polys, nil
}

// Rasterize implements RasterImporter.
func (d *DXFImporter) Rasterize(dst *image.Alpha, tr Transform) error {
	RasterizePolygons(dst, tr, d.assemble(rasterCircleSegments))
	return nil
}

func (d *DXFImporter) assemble(pointsPerCircle int) model.MultiPolygon {
	rings := make([]model.Outline, 0, len(d.rings)+len(d.circles))
	rings = append(rings, d.rings...)
	for _, c := range d.circles {
		rings = append(rings, model.Circle(c.center, c.radius, pointsPerCircle))
	}
	return model.NestOutlines(rings)
}

func scaleOutline(o []model.Point2D, scale float64) model.Outline {
	out := make(model.Outline, len(o))
	for i, p := range o {
		out[i] = model.Point2D{X: p.X * scale, Y: p.Y * scale}
	}
	return out
}

// lwPolylineToOutline converts a DXF LWPOLYLINE entity to an Outline.
// Bulge values on vertices produce interpolated arc segments.
func lwPolylineToOutline(lw *entity.LwPolyline) model.Outline {
	var outline model.Outline

	for i := 0; i < len(lw.Vertices); i++ {
		v := lw.Vertices[i]
		current := model.Point2D{X: v[0], Y: v[1]}

		bulge := 0.0
		if i < len(lw.Bulges) {
			bulge = lw.Bulges[i]
		}

		if math.Abs(bulge) > 1e-9 {
			nextIdx := (i + 1) % len(lw.Vertices)
			next := model.Point2D{X: lw.Vertices[nextIdx][0], Y: lw.Vertices[nextIdx][1]}
			arcPts := bulgeArcPoints(current, next, bulge, 32)
			// The next vertex is added by the following iteration
			outline = append(outline, arcPts[:len(arcPts)-1]...)
		} else {
			outline = append(outline, current)
		}
	}

	return outline
}

// bulgeArcPoints generates points along an arc defined by two endpoints and a
// DXF bulge factor. The bulge is the tangent of 1/4 the included angle.
func bulgeArcPoints(p1, p2 model.Point2D, bulge float64, numSegments int) model.Outline {
	mx := (p1.X + p2.X) / 2
	my := (p1.Y + p2.Y) / 2
	dx := p2.X - p1.X
	dy := p2.Y - p1.Y
	chordLen := math.Hypot(dx, dy)
	if chordLen < 1e-9 {
		return model.Outline{p1, p2}
	}

	sagitta := math.Abs(bulge) * chordLen / 2
	radius := (chordLen*chordLen/(4*sagitta) + sagitta) / 2

	// Center lies on the chord's perpendicular, on the side away from the bulge
	perpX := -dy / chordLen
	perpY := dx / chordLen
	dist := radius - sagitta
	if bulge > 0 {
		perpX, perpY = -perpX, -perpY
	}
	cx := mx - perpX*dist
	cy := my - perpY*dist

	startAngle := math.Atan2(p1.Y-cy, p1.X-cx)
	endAngle := math.Atan2(p2.Y-cy, p2.X-cx)

	if bulge < 0 {
		if endAngle > startAngle {
			endAngle -= 2 * math.Pi
		}
	} else {
		if endAngle < startAngle {
			endAngle += 2 * math.Pi
		}
	}

	pts := make(model.Outline, 0, numSegments+1)
	for i := 0; i <= numSegments; i++ {
		t := float64(i) / float64(numSegments)
		angle := startAngle + t*(endAngle-startAngle)
		pts = append(pts, model.Point2D{
			X: cx + radius*math.Cos(angle),
			Y: cy + radius*math.Sin(angle),
		})
	}
	return pts
}

// arcToPoints converts a DXF ARC entity to a series of line points.
func arcToPoints(a *entity.Arc, numSegments int) []model.Point2D {
	cx, cy := a.Circle.Center[0], a.Circle.Center[1]
	r := a.Circle.Radius
	startRad := a.Angle[0] * math.Pi / 180
	endRad := a.Angle[1] * math.Pi / 180
	if endRad <= startRad {
		endRad += 2 * math.Pi
	}

	pts := make([]model.Point2D, numSegments+1)
	for i := 0; i <= numSegments; i++ {
		t := float64(i) / float64(numSegments)
		angle := startRad + t*(endRad-startRad)
		pts[i] = model.Point2D{
			X: cx + r*math.Cos(angle),
			Y: cy + r*math.Sin(angle),
		}
	}
	return pts
}

// pointsToSegments converts a point sequence to a slice of connected segments.
func pointsToSegments(pts []model.Point2D) []segment {
	segs := make([]segment, 0, len(pts)-1)
	for i := 0; i < len(pts)-1; i++ {
		segs = append(segs, segment{start: pts[i], end: pts[i+1]})
	}
	return segs
}

// chainSegments connects individual segments into closed outlines and
// returns them with the number of chains that did not close.
// tolerance is the maximum distance between endpoints to consider them connected.
func chainSegments(segs []segment, tolerance float64) ([]model.Outline, int) {
	if len(segs) == 0 {
		return nil, 0
	}

	used := make([]bool, len(segs))
	var outlines []model.Outline
	open := 0

	for {
		startIdx := -1
		for i, u := range used {
			if !u {
				startIdx = i
				break
			}
		}
		if startIdx == -1 {
			break
		}

		chain := []model.Point2D{segs[startIdx].start, segs[startIdx].end}
		used[startIdx] = true

		changed := true
		for changed {
			changed = false
			tail := chain[len(chain)-1]

			for i, seg := range segs {
				if used[i] {
					continue
				}
				if pointsClose(tail, seg.start, tolerance) {
					chain = append(chain, seg.end)
					used[i] = true
					changed = true
					break
				}
				if pointsClose(tail, seg.end, tolerance) {
					chain = append(chain, seg.start)
					used[i] = true
					changed = true
					break
				}
			}
		}

		if len(chain) >= 4 && pointsClose(chain[0], chain[len(chain)-1], tolerance) {
			outlines = append(outlines, model.Outline(chain[:len(chain)-1]))
		} else {
			open++
		}
	}

	return outlines, open
}
