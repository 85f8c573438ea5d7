package surface

import (
	"math"

	polyclip "github.com/ctessum/polyclip-go"

	"github.com/piwi3910/pcbmill/internal/model"
)

// miterLimit bounds a corner's offset distance as a multiple of the offset.
const miterLimit = 4.0

// offsetPolygons grows every polygon by d and merges the results. Holes
// shrink by d and disappear once they close.
func offsetPolygons(polys model.MultiPolygon, d float64) model.MultiPolygon {
	grown := make(model.MultiPolygon, 0, len(polys))
	for _, p := range polys {
		outer := offsetRing(p.Outer.CCW(), d)
		if len(outer) < 3 {
			continue
		}
		np := model.Polygon{Outer: outer}
		for _, h := range p.Holes {
			np.Holes = append(np.Holes, shrinkHole(h, d)...)
		}
		grown = append(grown, np)
	}
	return union(grown)
}

// shrinkHole returns what is left of hole once its boundary moves d inwards:
// nothing when it closed up, several rings when a neck pinched off.
func shrinkHole(h model.Outline, d float64) []model.Outline {
	ring, ok := offsetRingChecked(h.CW(), d)
	if ok && len(ring) >= 3 && ring.SignedArea() < 0 && keepsClearance(ring, h, d) {
		return []model.Outline{ring}
	}

	// The moved boundary folded over itself. Keep the points of the hole
	// farther than d from its boundary.
	region := toClip(model.MultiPolygon{{Outer: h}})
	rest := fromClip(region.Construct(polyclip.DIFFERENCE, edgeBand(h, d)))
	var out []model.Outline
	for _, p := range rest {
		if p.Outer.Area() < minHoleArea {
			continue
		}
		out = append(out, p.Outer.CW())
	}
	return out
}

// keepsClearance reports whether ring and src stay at least d apart,
// measured from the vertices of each to the edges of the other.
func keepsClearance(ring, src model.Outline, d float64) bool {
	tol := d * (1 - 1e-6)
	for _, p := range ring {
		if ringDistance(p, src) < tol {
			return false
		}
	}
	for _, p := range src {
		if ringDistance(p, ring) < tol {
			return false
		}
	}
	return true
}

// ringDistance is the distance from p to the closest edge of ring.
func ringDistance(p model.Point2D, ring model.Outline) float64 {
	best := math.Inf(1)
	n := len(ring)
	for i := range ring {
		best = math.Min(best, segmentDistance(p, ring[i], ring[(i+1)%n]))
	}
	return best
}

func segmentDistance(p, a, b model.Point2D) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	t := 0.0
	if l2 > 0 {
		t = math.Max(0, math.Min(1, ((p.X-a.X)*dx+(p.Y-a.Y)*dy)/l2))
	}
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}

// minHoleArea drops slivers left by the clipper.
const minHoleArea = 1e-12

// capsuleSegments is the vertex count of the round caps in edgeBand.
const capsuleSegments = 16

// edgeBand is the set of points within d of ring's boundary, built as the
// union of a rectangle per edge and a disc per vertex.
func edgeBand(ring model.Outline, d float64) polyclip.Polygon {
	pts := dedupe(ring)
	n := len(pts)
	var acc polyclip.Polygon
	add := func(o model.Outline) {
		c := toClip(model.MultiPolygon{{Outer: o}})
		if acc == nil {
			acc = c
			return
		}
		acc = acc.Construct(polyclip.UNION, c)
	}
	for i := range pts {
		a, b := pts[i], pts[(i+1)%n]
		l := math.Hypot(b.X-a.X, b.Y-a.Y)
		nx, ny := (b.Y-a.Y)/l*d, -(b.X-a.X)/l*d
		add(model.Outline{
			{X: a.X + nx, Y: a.Y + ny},
			{X: b.X + nx, Y: b.Y + ny},
			{X: b.X - nx, Y: b.Y - ny},
			{X: a.X - nx, Y: a.Y - ny},
		})
		add(model.Circle(a, d, capsuleSegments))
	}
	return acc
}

// offsetRing moves every edge of ring by d along its right-hand normal, which
// points outward for counter-clockwise rings and into the hole for clockwise
// ones. Corners are mitered up to miterLimit and beveled beyond.
func offsetRing(ring model.Outline, d float64) model.Outline {
	out, _ := offsetRingChecked(ring, d)
	return out
}

// offsetRingChecked is offsetRing that also reports whether every moved edge
// still runs in the direction of its source edge.
func offsetRingChecked(ring model.Outline, d float64) (model.Outline, bool) {
	pts := dedupe(ring)
	n := len(pts)
	if n < 3 {
		return nil, false
	}

	normals := make([]model.Point2D, n)
	for i := range pts {
		a, b := pts[i], pts[(i+1)%n]
		l := math.Hypot(b.X-a.X, b.Y-a.Y)
		normals[i] = model.Point2D{X: (b.Y - a.Y) / l, Y: -(b.X - a.X) / l}
	}

	out := make(model.Outline, 0, n)
	first := make([]int, n)
	last := make([]int, n)
	for i, p := range pts {
		first[i] = len(out)
		n1 := normals[(i+n-1)%n]
		n2 := normals[i]
		denom := 1 + n1.X*n2.X + n1.Y*n2.Y
		mx := (n1.X + n2.X) / denom
		my := (n1.Y + n2.Y) / denom
		switch {
		case denom < 1e-9:
			out = append(out, model.Point2D{X: p.X + d*n1.X, Y: p.Y + d*n1.Y})
		case math.Hypot(mx, my) > miterLimit:
			out = append(out,
				model.Point2D{X: p.X + d*n1.X, Y: p.Y + d*n1.Y},
				model.Point2D{X: p.X + d*n2.X, Y: p.Y + d*n2.Y})
		default:
			out = append(out, model.Point2D{X: p.X + d*mx, Y: p.Y + d*my})
		}
		last[i] = len(out) - 1
	}

	ok := true
	for i := range pts {
		a, b := pts[i], pts[(i+1)%n]
		oa, ob := out[last[i]], out[first[(i+1)%n]]
		if (b.X-a.X)*(ob.X-oa.X)+(b.Y-a.Y)*(ob.Y-oa.Y) <= 0 {
			ok = false
			break
		}
	}
	return out, ok
}

// dedupe drops consecutive duplicate points, including a repeated first point
// at the end.
func dedupe(ring model.Outline) model.Outline {
	out := make(model.Outline, 0, len(ring))
	for _, p := range ring {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}
