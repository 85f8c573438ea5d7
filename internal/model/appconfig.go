package model

// AppConfig holds application-wide preferences and default settings.
type AppConfig struct {
	// Default job settings applied to projects that leave them unset
	DefaultDPI             int     `json:"default_dpi"`
	DefaultVectorial       bool    `json:"default_vectorial"`
	DefaultTSP2Opt         bool    `json:"default_tsp_2opt"`
	DefaultOutlineWidth    float64 `json:"default_outline_width"`
	DefaultPointsPerCircle int     `json:"default_points_per_circle"`
	DefaultGCodeProfile    string  `json:"default_gcode_profile"`
	DefaultOutputDir       string  `json:"default_output_dir"`

	// Application preferences
	RecentProjects []string `json:"recent_projects"`
	ColorOutput    bool     `json:"color_output"`
}

// DefaultAppConfig returns an AppConfig populated with sensible defaults
// matching the values from DefaultSettings().
func DefaultAppConfig() AppConfig {
	defaults := DefaultSettings()
	return AppConfig{
		DefaultDPI:             defaults.DPI,
		DefaultVectorial:       defaults.Vectorial,
		DefaultTSP2Opt:         defaults.TSP2Opt,
		DefaultOutlineWidth:    defaults.OutlineWidth,
		DefaultPointsPerCircle: defaults.PointsPerCircle,
		DefaultGCodeProfile:    defaults.GCodeProfile,
		DefaultOutputDir:       defaults.OutputDir,
		RecentProjects:         []string{},
		ColorOutput:            true,
	}
}

// ApplyToSettings copies the default values from AppConfig into a Settings struct.
// This is used when loading a project so it inherits the user's saved defaults.
func (c AppConfig) ApplyToSettings(s *Settings) {
	s.DPI = c.DefaultDPI
	s.Vectorial = c.DefaultVectorial
	s.TSP2Opt = c.DefaultTSP2Opt
	s.OutlineWidth = c.DefaultOutlineWidth
	s.PointsPerCircle = c.DefaultPointsPerCircle
	s.GCodeProfile = c.DefaultGCodeProfile
	s.OutputDir = c.DefaultOutputDir
}

// AddRecentProject moves path to the front of the recent list, keeping at most limit entries.
func (c *AppConfig) AddRecentProject(path string, limit int) {
	recent := []string{path}
	for _, p := range c.RecentProjects {
		if p != path {
			recent = append(recent, p)
		}
	}
	if limit > 0 && len(recent) > limit {
		recent = recent[:limit]
	}
	c.RecentProjects = recent
}
