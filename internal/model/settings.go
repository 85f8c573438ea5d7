package model

// Settings holds the job-wide options of a milling run.
type Settings struct {
	// Composition
	DPI             int     `json:"dpi"`               // Raster resolution
	Vectorial       bool    `json:"vectorial"`         // Use polygon surfaces instead of raster ones
	FillOutline     bool    `json:"fill_outline"`      // Treat the outline layer as a contour to fill
	OutlineWidth    float64 `json:"outline_width"`     // Stroke width of a contour outline (inches)
	Margin          float64 `json:"margin"`            // Flat margin when no outline or front layer exists
	PointsPerCircle int     `json:"points_per_circle"` // Circle approximation for vector importers
	TSP2Opt         bool    `json:"tsp_2opt"`          // Refine path order with 2-opt

	// Output
	OutputDir    string `json:"output_dir"`
	DebugImages  bool   `json:"debug_images"`  // Write original_/masked_ snapshots
	GCodeProfile string `json:"gcode_profile"` // Name of the GCode profile to use
	ZeroStart    bool   `json:"zero_start"`    // Shift the board so its lower-left corner is (0,0)
}

// DefaultSettings returns the options used when a project leaves them unset.
func DefaultSettings() Settings {
	return Settings{
		DPI:             1000,
		Vectorial:       false,
		FillOutline:     true,
		OutlineWidth:    0.0059,
		Margin:          0,
		PointsPerCircle: 30,
		TSP2Opt:         true,
		OutputDir:       "",
		DebugImages:     false,
		GCodeProfile:    "Generic", // Default GCode profile
		ZeroStart:       false,
	}
}
