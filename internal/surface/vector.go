package surface

import (
	"fmt"
	"io"
	"math"
	"strings"

	svg "github.com/ajstarks/svgo"
	polyclip "github.com/ctessum/polyclip-go"

	"github.com/piwi3910/pcbmill/internal/importer"
	"github.com/piwi3910/pcbmill/internal/logging"
	"github.com/piwi3910/pcbmill/internal/model"
	"github.com/piwi3910/pcbmill/internal/tsp"
)

// vectorQuantization is the ordering tie tolerance of vector surfaces.
const vectorQuantization = 0.0001

// Vector is a surface backed by polygons.
type Vector struct {
	opts  Options
	polys model.MultiPolygon
	fill  bool
}

// NewVector returns an empty vector surface covering opts.Bounds.
func NewVector(opts Options) *Vector {
	if opts.PointsPerCircle <= 0 {
		opts.PointsPerCircle = model.DefaultSettings().PointsPerCircle
	}
	return &Vector{opts: opts}
}

// EnableFilling implements Surface.
func (v *Vector) EnableFilling() { v.fill = true }

// Render implements Surface.
func (v *Vector) Render(imp importer.LayerImporter) error {
	vi, ok := imp.(importer.VectorImporter)
	if !ok {
		return fmt.Errorf("%w: %T is not a vector importer", ErrUnsupportedImporter, imp)
	}
	polys, err := vi.Polygons(v.fill, v.opts.PointsPerCircle)
	if err != nil {
		return fmt.Errorf("load polygons: %w", err)
	}
	if polys.SelfIntersects() {
		return ErrSelfIntersecting
	}
	v.polys = union(polys)
	return nil
}

// AddMask implements Surface.
func (v *Vector) AddMask(mask Surface) error {
	m, ok := mask.(*Vector)
	if !ok {
		return fmt.Errorf("%w: %T is not a vector surface", ErrMaskMismatch, mask)
	}
	v.polys = fromClip(toClip(v.polys).Construct(polyclip.INTERSECTION, toClip(m.polys)))
	return nil
}

// Polygons returns the current geometry.
func (v *Vector) Polygons() model.MultiPolygon {
	return v.polys
}

// Toolpaths implements Surface.
func (v *Vector) Toolpaths(tool model.Tool, mirror bool) ([]model.Toolpath, error) {
	var paths []model.Toolpath
	for _, offset := range passes(tool) {
		grown := v.polys
		if offset > 0 {
			grown = offsetPolygons(v.polys, offset)
		}
		for _, p := range grown {
			paths = append(paths, p.Outer.Closed())
			for _, h := range p.Holes {
				paths = append(paths, h.Closed())
			}
		}
	}

	if mirror {
		axis := mirrorAxis(tool, v.opts.Bounds)
		for i, p := range paths {
			paths[i] = p.Mirror(axis)
		}
	}

	tsp.Order(paths, model.Point2D{}, vectorQuantization, tsp.PathStart, v.opts.TSP2Opt)

	if rm, ok := tool.(model.Router); ok && rm.Routing().Optimise {
		eps := model.PathTolerance(tool, vectorQuantization)
		for i, p := range paths {
			paths[i] = p.Simplify(eps)
		}
	}

	logging.Logger().Debug("vector toolpaths", "paths", len(paths), "mirror", mirror)
	return paths, nil
}

// SaveDebugImage implements Surface. It writes an SVG of the current polygons
// at the surface resolution.
func (v *Vector) SaveDebugImage(tag string) error {
	if v.opts.Snapshots == nil {
		return nil
	}
	_, err := v.opts.Snapshots.Write(tag, "svg", func(w io.Writer) error {
		v.writeSVG(w)
		return nil
	})
	return err
}

func (v *Vector) writeSVG(w io.Writer) {
	b := v.opts.Bounds
	scale := float64(v.opts.DPI)
	if scale <= 0 {
		scale = float64(model.DefaultSettings().DPI)
	}

	canvas := svg.New(w)
	canvas.Start(int(math.Ceil(b.Width()*scale)), int(math.Ceil(b.Height()*scale)))
	for _, p := range v.polys {
		var d strings.Builder
		writeRing(&d, p.Outer, b, scale)
		for _, h := range p.Holes {
			writeRing(&d, h, b, scale)
		}
		canvas.Path(d.String(), "fill:black;fill-rule:evenodd;stroke:none")
	}
	canvas.End()
}

func writeRing(d *strings.Builder, ring model.Outline, b model.Bounds, scale float64) {
	for i, p := range ring {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(d, "%s%.3f %.3f ", cmd, (p.X-b.MinX)*scale, (b.MaxY-p.Y)*scale)
	}
	d.WriteString("Z ")
}

// WidthIn implements Surface.
func (v *Vector) WidthIn() float64 { return v.opts.Bounds.Width() }

// HeightIn implements Surface.
func (v *Vector) HeightIn() float64 { return v.opts.Bounds.Height() }

func toClip(polys model.MultiPolygon) polyclip.Polygon {
	var out polyclip.Polygon
	add := func(ring model.Outline) {
		c := make(polyclip.Contour, len(ring))
		for i, p := range ring {
			c[i] = polyclip.Point{X: p.X, Y: p.Y}
		}
		out = append(out, c)
	}
	for _, p := range polys {
		add(p.Outer)
		for _, h := range p.Holes {
			add(h)
		}
	}
	return out
}

func fromClip(p polyclip.Polygon) model.MultiPolygon {
	rings := make([]model.Outline, 0, len(p))
	for _, c := range p {
		ring := make(model.Outline, len(c))
		for i, pt := range c {
			ring[i] = model.Point2D{X: pt.X, Y: pt.Y}
		}
		rings = append(rings, ring)
	}
	return model.NestOutlines(rings)
}

// union merges overlapping polygons one at a time.
func union(polys model.MultiPolygon) model.MultiPolygon {
	if len(polys) < 2 {
		return polys
	}
	acc := toClip(polys[:1])
	for i := 1; i < len(polys); i++ {
		acc = acc.Construct(polyclip.UNION, toClip(polys[i:i+1]))
	}
	return fromClip(acc)
}
