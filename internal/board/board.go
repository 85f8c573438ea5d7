// Package board composes the layers of a PCB into a common frame. It derives
// the board bounds from every layer's extents and the tools in use, renders
// each layer into a surface, masks copper against the outline and serves the
// resulting toolpaths per layer.
package board

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/piwi3910/pcbmill/internal/importer"
	"github.com/piwi3910/pcbmill/internal/logging"
	"github.com/piwi3910/pcbmill/internal/model"
	"github.com/piwi3910/pcbmill/internal/surface"
)

// Well-known layer names.
const (
	Outline = "outline"
	Front   = "front"
	Back    = "back"
	Drill   = "drill"
)

type state int

const (
	statePending state = iota
	stateComposed
	stateFailed
)

type registration struct {
	name     string
	importer importer.LayerImporter
	tool     model.Tool
	side     model.Side
}

// Board registers layers, composes them and answers toolpath queries.
type Board struct {
	// ID is a short job identifier used in program headers and reports.
	ID string

	cfg Config

	mu     sync.RWMutex
	regs   map[string]registration
	state  state
	err    error
	bounds model.Bounds
	layers map[string]*Layer
	names  []string
}

// New returns an empty board. A zero DPI falls back to the default.
func New(cfg Config) *Board {
	if cfg.DPI <= 0 {
		cfg.DPI = model.DefaultSettings().DPI
	}
	return &Board{
		ID:   uuid.New().String()[:8],
		cfg:  cfg,
		regs: make(map[string]registration),
	}
}

// Config returns the composition options of the board.
func (b *Board) Config() Config { return b.cfg }

// Register adds a layer. The importer and tool may be shared with other
// layers.
func (b *Board) Register(name string, imp importer.LayerImporter, tool model.Tool, side model.Side) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != statePending {
		return fmt.Errorf("%w: cannot register %q", ErrComposed, name)
	}
	if _, ok := b.regs[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateLayer, name)
	}
	b.regs[name] = registration{name: name, importer: imp, tool: tool, side: side}
	return nil
}

// Compose builds every registered layer. It either succeeds completely or
// leaves the board failed, after which every query reports the failure.
func (b *Board) Compose() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateComposed:
		return ErrComposed
	case stateFailed:
		return fmt.Errorf("%w: %w", ErrCompositionFailed, b.err)
	}
	if len(b.regs) == 0 {
		return ErrNoLayers
	}

	bounds, layers, names, err := b.compose()
	if err != nil {
		b.state = stateFailed
		b.err = err
		logging.Logger().Warn("composition failed", "board", b.ID, "err", err)
		return err
	}

	b.bounds = bounds
	b.layers = layers
	b.names = names
	b.state = stateComposed
	logging.Logger().Info("board composed",
		"board", b.ID, "layers", len(names), "mode", b.cfg.Mode,
		"width", bounds.Width(), "height", bounds.Height())
	return nil
}

func (b *Board) compose() (model.Bounds, map[string]*Layer, []string, error) {
	log := logging.Logger()

	names := make([]string, 0, len(b.regs))
	for name := range b.regs {
		names = append(names, name)
	}
	sort.Strings(names)

	bounds := b.extents(names)
	margin := b.margin()
	bounds = bounds.Expand(margin + b.cfg.quantizationError())
	log.Debug("board bounds", "margin", margin,
		"min_x", bounds.MinX, "max_x", bounds.MaxX, "min_y", bounds.MinY, "max_y", bounds.MaxY)

	var snaps *surface.Snapshotter
	if b.cfg.DebugImages && b.cfg.OutputDir != "" {
		snaps = surface.NewSnapshotter(b.cfg.OutputDir)
	}
	opts := surface.Options{
		Bounds:          bounds,
		DPI:             b.cfg.DPI,
		OutlineWidth:    b.cfg.OutlineWidth,
		PointsPerCircle: b.cfg.PointsPerCircle,
		TSP2Opt:         b.cfg.TSP2Opt,
		Snapshots:       snaps,
	}

	_, hasFront := b.regs[Front]
	_, hasBack := b.regs[Back]

	layers := make(map[string]*Layer, len(names))
	for _, name := range names {
		reg := b.regs[name]

		s, err := b.newSurface(reg, opts)
		if err != nil {
			return model.Bounds{}, nil, nil, err
		}
		if name == Outline && b.cfg.FillOutline {
			s.EnableFilling()
		}
		if err := s.Render(reg.importer); err != nil {
			return model.Bounds{}, nil, nil, fmt.Errorf("render layer %q: %w", name, err)
		}

		layers[name] = &Layer{
			Name:    name,
			Tool:    reg.tool,
			Side:    resolveSide(name, reg.side, hasFront, hasBack),
			Surface: s,
		}
		log.Debug("layer rendered", "layer", name, "side", layers[name].Side)

		if snaps != nil {
			if err := s.SaveDebugImage("original_" + name); err != nil {
				return model.Bounds{}, nil, nil, fmt.Errorf("snapshot layer %q: %w", name, err)
			}
		}
	}

	if outline, ok := layers[Outline]; ok {
		for _, name := range names {
			if name == Outline {
				continue
			}
			l := layers[name]
			if err := l.Surface.AddMask(outline.Surface); err != nil {
				return model.Bounds{}, nil, nil, fmt.Errorf("mask layer %q: %w", name, err)
			}
			log.Debug("layer masked", "layer", name)

			if snaps != nil {
				if err := l.Surface.SaveDebugImage("masked_" + name); err != nil {
					return model.Bounds{}, nil, nil, fmt.Errorf("snapshot layer %q: %w", name, err)
				}
			}
		}
	}

	return bounds, layers, names, nil
}

// extents returns the union of the importers' native extents.
func (b *Board) extents(names []string) model.Bounds {
	bounds := model.EmptyBounds()
	for _, name := range names {
		minX, maxX, minY, maxY := b.regs[name].importer.Bounds()
		bounds = bounds.Union(model.Bounds{MinX: minX, MaxX: maxX, MinY: minY, MaxY: maxY})
	}
	return bounds
}

// margin returns the padding around the extents: half the outline cutter,
// else the reach of the front isolation passes, else the configured margin.
func (b *Board) margin() float64 {
	if reg, ok := b.regs[Outline]; ok {
		return model.Diameter(reg.tool) / 2
	}
	if reg, ok := b.regs[Front]; ok {
		return model.Diameter(reg.tool) / 2 * float64(model.ExtraPasses(reg.tool)+1)
	}
	return b.cfg.Margin
}

// newSurface picks the surface for the render mode after checking that the
// importer can feed it.
func (b *Board) newSurface(reg registration, opts surface.Options) (surface.Surface, error) {
	switch b.cfg.Mode {
	case Rasterized:
		if _, ok := reg.importer.(importer.RasterImporter); !ok {
			return nil, fmt.Errorf("%w: layer %q, mode %s", ErrImporterCapabilityMismatch, reg.name, b.cfg.Mode)
		}
		return surface.NewRaster(opts), nil
	case Vectorized:
		if _, ok := reg.importer.(importer.VectorImporter); !ok {
			return nil, fmt.Errorf("%w: layer %q, mode %s", ErrImporterCapabilityMismatch, reg.name, b.cfg.Mode)
		}
		return surface.NewVector(opts), nil
	default:
		return nil, fmt.Errorf("%w: layer %q, mode %s", ErrImporterCapabilityMismatch, reg.name, b.cfg.Mode)
	}
}

// resolveSide turns an automatic side into a concrete one. Copper layers
// keep their own face; other layers follow the copper present.
func resolveSide(name string, side model.Side, hasFront, hasBack bool) model.Side {
	if side != model.SideAuto {
		return side
	}
	switch name {
	case Front:
		return model.SideFront
	case Back:
		return model.SideBack
	}
	return side.Resolve(hasFront, hasBack)
}

// ready returns nil when the board is composed.
func (b *Board) ready() error {
	switch b.state {
	case stateComposed:
		return nil
	case stateFailed:
		return fmt.Errorf("%w: %w", ErrCompositionFailed, b.err)
	default:
		return ErrNotComposed
	}
}

// Layer returns a composed layer.
func (b *Board) Layer(name string) (*Layer, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.ready(); err != nil {
		return nil, err
	}
	l, ok := b.layers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayer, name)
	}
	return l, nil
}

// Toolpath returns the ordered cuts of a layer.
func (b *Board) Toolpath(name string) ([]model.Toolpath, error) {
	l, err := b.Layer(name)
	if err != nil {
		return nil, err
	}
	return l.Toolpaths()
}

// Layers returns the composed layer names in sorted order. It is empty before
// a successful Compose.
func (b *Board) Layers() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}

// Bounds returns the board bounds including margin and quantization slack.
func (b *Board) Bounds() (model.Bounds, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.ready(); err != nil {
		return model.Bounds{}, err
	}
	return b.bounds, nil
}

// Width returns the width of the composed surfaces in inches.
func (b *Board) Width() (float64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.ready(); err != nil {
		return 0, err
	}
	return b.layers[b.names[0]].Surface.WidthIn(), nil
}

// Height returns the height of the composed surfaces in inches.
func (b *Board) Height() (float64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.ready(); err != nil {
		return 0, err
	}
	return b.layers[b.names[0]].Surface.HeightIn(), nil
}
