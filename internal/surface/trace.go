package surface

import "image"

// Directions between pixel corners, clockwise on screen.
const (
	east = iota
	south
	west
	north
)

var (
	stepX = [4]int{1, 0, -1, 0}
	stepY = [4]int{0, 1, 0, -1}
)

// vertex is a pixel corner; (x, y) is the top-left corner of pixel (x, y).
type vertex struct{ x, y int }

// traceRings returns the boundaries of the set regions of img as closed
// rings of pixel corners, without repeating the first corner. Each set pixel
// lies to the right of the walking direction, so outer boundaries run
// clockwise on screen and hole boundaries counter-clockwise. Collinear
// corners are dropped.
func traceRings(img *image.Alpha) [][]vertex {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	vw := w + 1

	set := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && img.Pix[y*img.Stride+x] != 0
	}

	// out holds a bit per unused boundary edge leaving each corner.
	out := make([]uint8, vw*(h+1))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !set(x, y) {
				continue
			}
			if !set(x, y-1) {
				out[y*vw+x] |= 1 << east
			}
			if !set(x+1, y) {
				out[y*vw+x+1] |= 1 << south
			}
			if !set(x, y+1) {
				out[(y+1)*vw+x+1] |= 1 << west
			}
			if !set(x-1, y) {
				out[(y+1)*vw+x] |= 1 << north
			}
		}
	}

	var rings [][]vertex
	for start := range out {
		for out[start] != 0 {
			if ring := walk(out, vw, start); len(ring) >= 4 {
				rings = append(rings, ring)
			}
		}
	}
	return rings
}

// walk follows unused boundary edges from corner index start until it gets
// back there, clearing the edges it uses.
func walk(out []uint8, vw, start int) []vertex {
	dir := east
	for out[start]&(1<<dir) == 0 {
		dir++
	}

	sv := vertex{x: start % vw, y: start / vw}
	cur := sv
	var ring []vertex
	prev := -1
	for {
		out[cur.y*vw+cur.x] &^= 1 << dir
		if dir != prev {
			ring = append(ring, cur)
		}
		prev = dir
		cur = vertex{x: cur.x + stepX[dir], y: cur.y + stepY[dir]}
		if cur == sv {
			break
		}
		// Prefer turning right, then straight, then left.
		next := out[cur.y*vw+cur.x]
		switch {
		case next&(1<<((dir+1)%4)) != 0:
			dir = (dir + 1) % 4
		case next&(1<<dir) != 0:
		default:
			dir = (dir + 3) % 4
		}
	}
	// The start corner is collinear when the walk ends heading the way it
	// began.
	if len(ring) > 1 && prev == firstDir(ring) {
		ring = ring[1:]
	}
	return ring
}

// firstDir returns the direction of the first edge of ring.
func firstDir(ring []vertex) int {
	a, b := ring[0], ring[1]
	switch {
	case b.x > a.x:
		return east
	case b.y > a.y:
		return south
	case b.x < a.x:
		return west
	default:
		return north
	}
}
