package surface

import "image"

const (
	chamferStraight = 3
	chamferDiagonal = 4
	chamferInf      = int32(1 << 30)
)

// distanceField returns, for every pixel, the chamfer 3-4 distance to the
// nearest pixel for which set reports true. Distances are in thirds of a pixel.
func distanceField(w, h int, set func(i int) bool) []int32 {
	d := make([]int32, w*h)
	for i := range d {
		if set(i) {
			d[i] = 0
		} else {
			d[i] = chamferInf
		}
	}

	relax := func(i, j int, cost int32) {
		if d[j]+cost < d[i] {
			d[i] = d[j] + cost
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if x > 0 {
				relax(i, i-1, chamferStraight)
			}
			if y > 0 {
				relax(i, i-w, chamferStraight)
				if x > 0 {
					relax(i, i-w-1, chamferDiagonal)
				}
				if x < w-1 {
					relax(i, i-w+1, chamferDiagonal)
				}
			}
		}
	}

	for y := h - 1; y >= 0; y-- {
		for x := w - 1; x >= 0; x-- {
			i := y*w + x
			if x < w-1 {
				relax(i, i+1, chamferStraight)
			}
			if y < h-1 {
				relax(i, i+w, chamferStraight)
				if x < w-1 {
					relax(i, i+w+1, chamferDiagonal)
				}
				if x > 0 {
					relax(i, i+w-1, chamferDiagonal)
				}
			}
		}
	}
	return d
}

// dilate returns a copy of img with set regions grown by px pixels.
func dilate(img *image.Alpha, px float64) *image.Alpha {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := image.NewAlpha(img.Rect)
	d := distanceField(w, h, func(i int) bool { return img.Pix[i] != 0 })
	limit := int32(px * chamferStraight)
	for i, v := range d {
		if v <= limit {
			out.Pix[i] = 0xff
		}
	}
	return out
}

// erode returns a copy of img with set regions shrunk by px pixels.
func erode(img *image.Alpha, px float64) *image.Alpha {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := image.NewAlpha(img.Rect)
	d := distanceField(w, h, func(i int) bool { return img.Pix[i] == 0 })
	limit := int32(px * chamferStraight)
	for i, v := range d {
		if v > limit {
			out.Pix[i] = 0xff
		}
	}
	return out
}

// fillEnclosed sets every pixel that cannot be reached from the image border
// through clear pixels.
func fillEnclosed(img *image.Alpha) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	outside := make([]bool, w*h)
	var queue []int

	push := func(x, y int) {
		i := y*w + x
		if img.Pix[i] == 0 && !outside[i] {
			outside[i] = true
			queue = append(queue, i)
		}
	}

	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}

	for len(queue) > 0 {
		i := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		x, y := i%w, i/w
		if x > 0 {
			push(x-1, y)
		}
		if x < w-1 {
			push(x+1, y)
		}
		if y > 0 {
			push(x, y-1)
		}
		if y < h-1 {
			push(x, y+1)
		}
	}

	for i := range img.Pix {
		if !outside[i] {
			img.Pix[i] = 0xff
		}
	}
}
