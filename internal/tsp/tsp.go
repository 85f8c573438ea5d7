// Package tsp orders disconnected cuts so that non-cutting travel stays short.
//
// Elements are ordered by a representative point: a drill hit maps to its
// center, a closed toolpath to its first point, since cutting a closed path
// starts and ends there.
package tsp

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/piwi3910/pcbmill/internal/model"
)

// Metric measures the travel between two points.
type Metric func(a, b model.Point2D) float64

// Chebyshev returns the larger of the per-axis deltas. It approximates rapid
// traverse time on machines that move X and Y simultaneously.
func Chebyshev(a, b model.Point2D) float64 {
	return math.Max(math.Abs(a.X-b.X), math.Abs(a.Y-b.Y))
}

// Euclidean returns the straight-line distance.
func Euclidean(a, b model.Point2D) float64 {
	return r2.Norm(r2.Sub(r2.Vec{X: a.X, Y: a.Y}, r2.Vec{X: b.X, Y: b.Y}))
}

// PointOf is the representative of a bare point.
func PointOf(p model.Point2D) model.Point2D { return p }

// PathStart is the representative of a toolpath.
func PathStart(t model.Toolpath) model.Point2D { return t.Start() }

// HoleCenter is the representative of a drill hit.
func HoleCenter(h model.Hole) model.Point2D { return h.Position() }

// TourLength chains elems from start and sums the travel under metric.
func TourLength[T any](elems []T, start model.Point2D, rep func(T) model.Point2D, metric Metric) float64 {
	var total float64
	cur := start
	for _, e := range elems {
		p := rep(e)
		total += metric(cur, p)
		cur = p
	}
	return total
}

// NearestNeighbour greedily reorders elems in place, always moving to the
// closest remaining element under the Chebyshev metric. Candidates within
// 2*quantizationError of the minimum count as ties and the first one in scan
// order wins. The new order is kept only if its tour is strictly shorter than
// the original one.
func NearestNeighbour[T any](elems []T, start model.Point2D, quantizationError float64, rep func(T) model.Point2D) {
	if len(elems) == 0 {
		return
	}

	original := TourLength(elems, start, rep, Chebyshev)

	remaining := make([]T, len(elems))
	copy(remaining, elems)
	tour := make([]T, 0, len(elems))
	distances := make([]float64, 0, len(elems))

	var length float64
	cur := start
	for len(remaining) > 1 {
		distances = distances[:0]
		nearest := math.Inf(1)
		for _, e := range remaining {
			d := Chebyshev(cur, rep(e))
			distances = append(distances, d)
			if d < nearest {
				nearest = d
			}
		}

		chosen := 0
		for i, d := range distances {
			if d-nearest <= 2*quantizationError {
				chosen = i
				break
			}
		}

		next := remaining[chosen]
		length += distances[chosen]
		tour = append(tour, next)
		cur = rep(next)
		remaining = append(remaining[:chosen], remaining[chosen+1:]...)
	}

	last := remaining[0]
	length += Chebyshev(cur, rep(last))
	tour = append(tour, last)

	if length < original {
		copy(elems, tour)
	}
}

// TSP2Opt seeds the order with NearestNeighbour and then applies 2-opt edge
// swaps under the Euclidean metric until a full sweep finds nothing to
// improve. The first element keeps its place.
func TSP2Opt[T any](elems []T, start model.Point2D, quantizationError float64, rep func(T) model.Point2D) {
	NearestNeighbour(elems, start, quantizationError, rep)
	for improve(elems, rep) {
	}
}

// improve runs one left-to-right 2-opt sweep. Swaps are applied immediately,
// so later comparisons in the sweep see the updated tour.
func improve[T any](elems []T, rep func(T) model.Point2D) bool {
	n := len(elems)
	swapped := false
	for a := 0; a < n; a++ {
		b := a + 1
		for c := b + 1; c+1 < n; c++ {
			d := c + 1
			pa, pb, pc, pd := rep(elems[a]), rep(elems[b]), rep(elems[c]), rep(elems[d])
			if Euclidean(pa, pb)+Euclidean(pc, pd) > Euclidean(pa, pc)+Euclidean(pb, pd) {
				reverse(elems[b:d])
				swapped = true
			}
		}
	}
	return swapped
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// Order sorts elems with TSP2Opt when twoOpt is set and with
// NearestNeighbour otherwise.
func Order[T any](elems []T, start model.Point2D, quantizationError float64, rep func(T) model.Point2D, twoOpt bool) {
	if twoOpt {
		TSP2Opt(elems, start, quantizationError, rep)
		return
	}
	NearestNeighbour(elems, start, quantizationError, rep)
}
