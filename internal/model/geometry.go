package model

import (
	"math"
	"sort"
)

// Point2D represents a 2D coordinate in board units (inches).
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Point2D) Sub(q Point2D) Point2D {
	return Point2D{X: p.X - q.X, Y: p.Y - q.Y}
}

// Outline represents a closed ring as a sequence of 2D points.
// The outline is implicitly closed: the last point connects back to the first.
type Outline []Point2D

// BoundingBox returns the min and max corners of the outline.
func (o Outline) BoundingBox() (min, max Point2D) {
	if len(o) == 0 {
		return Point2D{}, Point2D{}
	}
	min = Point2D{X: o[0].X, Y: o[0].Y}
	max = Point2D{X: o[0].X, Y: o[0].Y}
	for _, p := range o[1:] {
		if p.X < min.X {
			min.X = p.X
		}
		if p.Y < min.Y {
			min.Y = p.Y
		}
		if p.X > max.X {
			max.X = p.X
		}
		if p.Y > max.Y {
			max.Y = p.Y
		}
	}
	return min, max
}

// Translate shifts all points by dx, dy.
func (o Outline) Translate(dx, dy float64) Outline {
	result := make(Outline, len(o))
	for i, p := range o {
		result[i] = Point2D{X: p.X + dx, Y: p.Y + dy}
	}
	return result
}

// SignedArea computes the shoelace area. It is positive for
// counter-clockwise rings (Y up).
func (o Outline) SignedArea() float64 {
	n := len(o)
	if n < 3 {
		return 0
	}
	var area float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += o[i].X * o[j].Y
		area -= o[j].X * o[i].Y
	}
	return area / 2
}

// Area returns the absolute area enclosed by the ring.
func (o Outline) Area() float64 {
	return math.Abs(o.SignedArea())
}

// Reversed returns the ring walked in the opposite direction.
func (o Outline) Reversed() Outline {
	result := make(Outline, len(o))
	for i, p := range o {
		result[len(o)-1-i] = p
	}
	return result
}

// CCW returns the ring oriented counter-clockwise.
func (o Outline) CCW() Outline {
	if o.SignedArea() < 0 {
		return o.Reversed()
	}
	return o
}

// CW returns the ring oriented clockwise.
func (o Outline) CW() Outline {
	if o.SignedArea() > 0 {
		return o.Reversed()
	}
	return o
}

// Contains reports whether p lies inside the ring (even-odd rule).
func (o Outline) Contains(p Point2D) bool {
	inside := false
	n := len(o)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := o[i], o[j]
		if (a.Y > p.Y) != (b.Y > p.Y) &&
			p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// Closed returns the ring as a toolpath that ends where it starts.
func (o Outline) Closed() Toolpath {
	if len(o) == 0 {
		return nil
	}
	path := make(Toolpath, 0, len(o)+1)
	path = append(path, o...)
	return append(path, o[0])
}

// SelfIntersects reports whether two non-adjacent edges of the ring cross.
func (o Outline) SelfIntersects() bool {
	n := len(o)
	if n < 4 {
		return false
	}
	for i := 0; i < n; i++ {
		a1, a2 := o[i], o[(i+1)%n]
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			if segmentsCross(a1, a2, o[j], o[(j+1)%n]) {
				return true
			}
		}
	}
	return false
}

// segmentsCross reports a proper crossing of segments ab and cd.
func segmentsCross(a, b, c, d Point2D) bool {
	d1 := cross(c, d, a)
	d2 := cross(c, d, b)
	d3 := cross(a, b, c)
	d4 := cross(a, b, d)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func cross(o, a, b Point2D) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// Polygon is an outer ring with optional holes.
type Polygon struct {
	Outer Outline   `json:"outer"`
	Holes []Outline `json:"holes,omitempty"`
}

// Filled returns the polygon without its holes.
func (p Polygon) Filled() Polygon {
	return Polygon{Outer: p.Outer}
}

// Contains reports whether pt lies inside the outer ring and outside every hole.
func (p Polygon) Contains(pt Point2D) bool {
	if !p.Outer.Contains(pt) {
		return false
	}
	for _, h := range p.Holes {
		if h.Contains(pt) {
			return false
		}
	}
	return true
}

// MultiPolygon is a set of disjoint polygons forming one layer.
type MultiPolygon []Polygon

// Bounds returns the bounding box of all rings. ok is false when the
// multipolygon holds no points.
func (m MultiPolygon) Bounds() (b Bounds, ok bool) {
	b = EmptyBounds()
	for _, p := range m {
		if len(p.Outer) == 0 {
			continue
		}
		lo, hi := p.Outer.BoundingBox()
		b = b.Union(Bounds{MinX: lo.X, MaxX: hi.X, MinY: lo.Y, MaxY: hi.Y})
		ok = true
	}
	return b, ok
}

// Filled drops all holes.
func (m MultiPolygon) Filled() MultiPolygon {
	result := make(MultiPolygon, len(m))
	for i, p := range m {
		result[i] = p.Filled()
	}
	return result
}

// Contains reports whether pt lies inside any polygon.
func (m MultiPolygon) Contains(pt Point2D) bool {
	for _, p := range m {
		if p.Contains(pt) {
			return true
		}
	}
	return false
}

// SelfIntersects reports whether any ring of the multipolygon crosses itself.
func (m MultiPolygon) SelfIntersects() bool {
	for _, p := range m {
		if p.Outer.SelfIntersects() {
			return true
		}
		for _, h := range p.Holes {
			if h.SelfIntersects() {
				return true
			}
		}
	}
	return false
}

// NestOutlines assembles loose rings into polygons by containment depth.
// Rings at even depth become outer rings, rings at odd depth become holes
// of the smallest outer ring containing them.
func NestOutlines(rings []Outline) MultiPolygon {
	type entry struct {
		ring  Outline
		area  float64
		depth int
		owner int
	}

	var entries []entry
	for _, r := range rings {
		if len(r) < 3 {
			continue
		}
		entries = append(entries, entry{ring: r, area: r.Area(), owner: -1})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].area > entries[j].area
	})

	for i := range entries {
		probe := entries[i].ring[0]
		for j := i - 1; j >= 0; j-- {
			if entries[j].area > entries[i].area && entries[j].ring.Contains(probe) {
				entries[i].depth = entries[j].depth + 1
				entries[i].owner = j
				break
			}
		}
	}

	var result MultiPolygon
	index := make(map[int]int)
	for i, e := range entries {
		if e.depth%2 == 0 {
			index[i] = len(result)
			result = append(result, Polygon{Outer: e.ring.CCW()})
		}
	}
	for _, e := range entries {
		if e.depth%2 == 1 {
			p := index[e.owner]
			result[p].Holes = append(result[p].Holes, e.ring.CW())
		}
	}
	return result
}

// Circle approximates a circle with the given number of segments.
func Circle(center Point2D, radius float64, segments int) Outline {
	if segments < 3 {
		segments = 3
	}
	outline := make(Outline, segments)
	for i := 0; i < segments; i++ {
		angle := 2 * math.Pi * float64(i) / float64(segments)
		outline[i] = Point2D{
			X: center.X + radius*math.Cos(angle),
			Y: center.Y + radius*math.Sin(angle),
		}
	}
	return outline
}

// Toolpath is one continuous cut. Closed cuts repeat their first point.
type Toolpath []Point2D

// Start returns the first point, or the origin for an empty path.
func (t Toolpath) Start() Point2D {
	if len(t) == 0 {
		return Point2D{}
	}
	return t[0]
}

// End returns the last point, or the origin for an empty path.
func (t Toolpath) End() Point2D {
	if len(t) == 0 {
		return Point2D{}
	}
	return t[len(t)-1]
}

// Length returns the cut length along the path.
func (t Toolpath) Length() float64 {
	var total float64
	for i := 1; i < len(t); i++ {
		total += math.Hypot(t[i].X-t[i-1].X, t[i].Y-t[i-1].Y)
	}
	return total
}

// Mirror reflects every point about the vertical line x = axis.
func (t Toolpath) Mirror(axis float64) Toolpath {
	result := make(Toolpath, len(t))
	for i, p := range t {
		result[i] = Point2D{X: 2*axis - p.X, Y: p.Y}
	}
	return result
}

// Simplify reduces the vertex count with the Douglas-Peucker algorithm.
// A closed path stays closed.
func (t Toolpath) Simplify(epsilon float64) Toolpath {
	if len(t) <= 3 || epsilon <= 0 {
		return t
	}
	if t[0] == t[len(t)-1] {
		// Split a closed ring at its farthest vertex so both halves have
		// distinct endpoints.
		far := 0
		var best float64
		for i, p := range t {
			if d := math.Hypot(p.X-t[0].X, p.Y-t[0].Y); d > best {
				best, far = d, i
			}
		}
		if far == 0 {
			return t
		}
		first := simplifyPath(t[:far+1], epsilon)
		second := simplifyPath(t[far:], epsilon)
		result := make(Toolpath, 0, len(first)+len(second)-1)
		result = append(result, first[:len(first)-1]...)
		return append(result, second...)
	}
	return simplifyPath(t, epsilon)
}

func simplifyPath(path Toolpath, epsilon float64) Toolpath {
	if len(path) <= 2 {
		return path
	}

	dmax := 0.0
	index := 0
	end := len(path) - 1

	for i := 1; i < end; i++ {
		d := perpendicularDistance(path[i], path[0], path[end])
		if d > dmax {
			dmax = d
			index = i
		}
	}

	if dmax > epsilon {
		left := simplifyPath(path[:index+1], epsilon)
		right := simplifyPath(path[index:], epsilon)

		result := make(Toolpath, 0, len(left)+len(right)-1)
		result = append(result, left[:len(left)-1]...)
		return append(result, right...)
	}

	return Toolpath{path[0], path[end]}
}

// perpendicularDistance calculates the distance from point p to line a-b.
func perpendicularDistance(p, a, b Point2D) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	if dx == 0 && dy == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	return math.Abs(dy*p.X-dx*p.Y+b.X*a.Y-b.Y*a.X) / math.Hypot(dx, dy)
}

// Hole is a single drill hit.
type Hole struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Diameter float64 `json:"diameter"`
}

// Position returns the hole center.
func (h Hole) Position() Point2D {
	return Point2D{X: h.X, Y: h.Y}
}
