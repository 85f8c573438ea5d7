package surface

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"math"

	"github.com/piwi3910/pcbmill/internal/importer"
	"github.com/piwi3910/pcbmill/internal/logging"
	"github.com/piwi3910/pcbmill/internal/model"
	"github.com/piwi3910/pcbmill/internal/tsp"
)

// RasterMargin is the padding in pixels kept around the board so grown
// regions stay inside the image.
const RasterMargin = 10

// Raster is a surface backed by a coverage mask at a fixed resolution.
type Raster struct {
	opts Options
	tr   importer.Transform
	img  *image.Alpha
	fill bool
}

// NewRaster allocates a clear mask covering opts.Bounds.
func NewRaster(opts Options) *Raster {
	if opts.DPI <= 0 {
		opts.DPI = model.DefaultSettings().DPI
	}
	dpi := float64(opts.DPI)
	w := int(math.Ceil(opts.Bounds.Width()*dpi)) + 2*RasterMargin
	h := int(math.Ceil(opts.Bounds.Height()*dpi)) + 2*RasterMargin

	return &Raster{
		opts: opts,
		tr: importer.Transform{
			MinX:   opts.Bounds.MinX,
			MaxY:   opts.Bounds.MaxY,
			DPI:    opts.DPI,
			Margin: RasterMargin,
		},
		img: image.NewAlpha(image.Rect(0, 0, w, h)),
	}
}

// EnableFilling implements Surface.
func (r *Raster) EnableFilling() { r.fill = true }

// Render implements Surface.
func (r *Raster) Render(imp importer.LayerImporter) error {
	ri, ok := imp.(importer.RasterImporter)
	if !ok {
		return fmt.Errorf("%w: %T is not a raster importer", ErrUnsupportedImporter, imp)
	}
	if err := ri.Rasterize(r.img, r.tr); err != nil {
		return fmt.Errorf("rasterize: %w", err)
	}
	if r.fill {
		r.fillContour()
	}
	return nil
}

// fillContour turns a stroked contour into a solid region. The stroke is
// first thickened by half the outline width to close small gaps, the
// enclosed area is filled, and the result is thinned back.
func (r *Raster) fillContour() {
	px := r.opts.OutlineWidth / 2 * float64(r.opts.DPI)
	img := r.img
	if px >= 1 {
		img = dilate(img, px)
	}
	fillEnclosed(img)
	if px >= 1 {
		img = erode(img, px)
	}
	r.img = img
}

// AddMask implements Surface.
func (r *Raster) AddMask(mask Surface) error {
	m, ok := mask.(*Raster)
	if !ok {
		return fmt.Errorf("%w: %T is not a raster surface", ErrMaskMismatch, mask)
	}
	if m.img.Rect != r.img.Rect {
		return fmt.Errorf("%w: size %v vs %v", ErrMaskMismatch, m.img.Rect, r.img.Rect)
	}
	for i, a := range m.img.Pix {
		if a == 0 {
			r.img.Pix[i] = 0
		}
	}
	return nil
}

// Toolpaths implements Surface.
func (r *Raster) Toolpaths(tool model.Tool, mirror bool) ([]model.Toolpath, error) {
	dpi := float64(r.opts.DPI)

	var paths []model.Toolpath
	for _, offset := range passes(tool) {
		grown := r.img
		if offset > 0 {
			grown = dilate(r.img, offset*dpi)
		}
		for _, ring := range traceRings(grown) {
			path := make(model.Toolpath, 0, len(ring)+1)
			for _, v := range ring {
				path = append(path, r.tr.ToBoard(float64(v.x), float64(v.y)))
			}
			paths = append(paths, append(path, path[0]))
		}
	}

	if mirror {
		axis := mirrorAxis(tool, r.opts.Bounds)
		for i, p := range paths {
			paths[i] = p.Mirror(axis)
		}
	}

	tsp.Order(paths, model.Point2D{}, 2/dpi, tsp.PathStart, r.opts.TSP2Opt)

	if rm, ok := tool.(model.Router); ok && rm.Routing().Optimise {
		eps := model.PathTolerance(tool, 1/dpi)
		for i, p := range paths {
			paths[i] = p.Simplify(eps)
		}
	}

	logging.Logger().Debug("raster toolpaths", "paths", len(paths), "mirror", mirror)
	return paths, nil
}

// SaveDebugImage implements Surface. It writes a PNG of the current mask.
func (r *Raster) SaveDebugImage(tag string) error {
	if r.opts.Snapshots == nil {
		return nil
	}
	_, err := r.opts.Snapshots.Write(tag, "png", func(w io.Writer) error {
		return png.Encode(w, r.img)
	})
	return err
}

// WidthIn implements Surface.
func (r *Raster) WidthIn() float64 { return r.opts.Bounds.Width() }

// HeightIn implements Surface.
func (r *Raster) HeightIn() float64 { return r.opts.Bounds.Height() }

// Coverage reports whether the board point p is set.
func (r *Raster) Coverage(p model.Point2D) bool {
	x, y := r.tr.ToPixel(p)
	ix, iy := int(math.Floor(x)), int(math.Floor(y))
	if !image.Pt(ix, iy).In(r.img.Rect) {
		return false
	}
	return r.img.AlphaAt(ix, iy).A != 0
}
