package board

import (
	"fmt"
	"strings"

	"github.com/piwi3910/pcbmill/internal/model"
)

// RenderMode selects the surface representation for every layer of a board.
type RenderMode int

const (
	Rasterized RenderMode = iota
	Vectorized
)

func (m RenderMode) String() string {
	switch m {
	case Rasterized:
		return "rasterized"
	case Vectorized:
		return "vectorized"
	default:
		return fmt.Sprintf("RenderMode(%d)", int(m))
	}
}

// ParseRenderMode parses "raster"/"rasterized" or "vector"/"vectorized".
func ParseRenderMode(s string) (RenderMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "raster", "rasterized":
		return Rasterized, nil
	case "vector", "vectorized", "vectorial":
		return Vectorized, nil
	default:
		return Rasterized, fmt.Errorf("invalid render mode %q", s)
	}
}

// Config holds the composition options of a board.
type Config struct {
	DPI             int
	Mode            RenderMode
	FillOutline     bool
	OutlineWidth    float64 // Contour stroke width for raster filling (inches)
	Margin          float64 // Flat margin when neither outline nor front is registered
	PointsPerCircle int
	TSP2Opt         bool
	OutputDir       string
	DebugImages     bool
}

// ConfigFrom builds a board config from job settings.
func ConfigFrom(s model.Settings) Config {
	mode := Rasterized
	if s.Vectorial {
		mode = Vectorized
	}
	return Config{
		DPI:             s.DPI,
		Mode:            mode,
		FillOutline:     s.FillOutline,
		OutlineWidth:    s.OutlineWidth,
		Margin:          s.Margin,
		PointsPerCircle: s.PointsPerCircle,
		TSP2Opt:         s.TSP2Opt,
		OutputDir:       s.OutputDir,
		DebugImages:     s.DebugImages,
	}
}

// DefaultConfig returns the config of the default settings.
func DefaultConfig() Config {
	return ConfigFrom(model.DefaultSettings())
}

// quantizationError is the slack added to every bound to absorb rendering
// rounding.
func (c Config) quantizationError() float64 {
	return 2 / float64(c.DPI)
}
