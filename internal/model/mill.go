package model

// Mill holds the machining parameters common to every operation.
// Lengths are in inches, feeds in inches per minute.
type Mill struct {
	Feed              float64 `json:"feed"`               // Horizontal feed
	VertFeed          float64 `json:"vert_feed"`          // Plunge feed
	Speed             int     `json:"speed"`              // Spindle RPM
	ZChange           float64 `json:"z_change"`           // Tool change height
	ZSafe             float64 `json:"z_safe"`             // Rapid move height
	ZWork             float64 `json:"z_work"`             // Working depth (negative into the board)
	Tolerance         float64 `json:"tolerance"`          // Path tolerance
	ExplicitTolerance bool    `json:"explicit_tolerance"` // Tolerance was set by the user
	Backside          bool    `json:"backside"`           // Operation runs on the back of the board
	MirrorAbsolute    bool    `json:"mirror_absolute"`    // Mirror around x=0 instead of the board center
	PreMilling        string  `json:"pre_milling"`        // Raw G-code before each milling block
	PostMilling       string  `json:"post_milling"`       // Raw G-code after each milling block
}

// Base returns the common parameters. Every tool configuration satisfies
// Tool through this method.
func (m *Mill) Base() *Mill { return m }

// RoutingMill is a mill that follows paths with an end mill of known diameter.
type RoutingMill struct {
	Mill
	ToolDiameter float64 `json:"tool_diameter"`
	Optimise     bool    `json:"optimise"` // Simplify paths within tolerance
}

// Routing returns the routing parameters.
func (r *RoutingMill) Routing() *RoutingMill { return r }

// Radius returns half the tool diameter.
func (r *RoutingMill) Radius() float64 { return r.ToolDiameter / 2 }

// Isolator mills the copper around traces.
type Isolator struct {
	RoutingMill
	ExtraPasses int `json:"extra_passes"`
}

// Cutter cuts the board out along its outline.
type Cutter struct {
	RoutingMill
	DoSteps       bool    `json:"do_steps"`       // Cut in several step-down passes
	StepSize      float64 `json:"step_size"`      // Depth of each pass
	BridgesNum    int     `json:"bridges_num"`    // Holding bridges on the last pass
	BridgesHeight float64 `json:"bridges_height"` // Z height while crossing a bridge
	BridgesWidth  float64 `json:"bridges_width"`  // Bridge length along the path
}

// Driller drills holes.
type Driller struct {
	Mill
	OneDrill    bool    `json:"one_drill"`    // Drill every hole with the smallest bit
	CannedCycle bool    `json:"canned_cycle"` // Drill with G81 instead of explicit moves
	MillHoles   bool    `json:"mill_holes"`   // Mill every hole with the outline cutter
	MaxDiameter float64 `json:"max_diameter"` // Holes wider than this are milled, 0 for no limit
}

// Split separates the holes to drill from the holes to mill with the
// outline cutter.
func (d *Driller) Split(holes []Hole) (drill, mill []Hole) {
	for _, h := range holes {
		if d.MillHoles || (d.MaxDiameter > 0 && h.Diameter > d.MaxDiameter+1e-9) {
			mill = append(mill, h)
		} else {
			drill = append(drill, h)
		}
	}
	return drill, mill
}

// Tool is any tool configuration. Values are shared by pointer, so the same
// isolator may serve the front and back layers.
type Tool interface {
	Base() *Mill
}

// Router is a tool with a cutting diameter.
type Router interface {
	Tool
	Routing() *RoutingMill
}

// Diameter returns the routing diameter of t, or 0 for tools that do not route.
func Diameter(t Tool) float64 {
	if r, ok := t.(Router); ok {
		return r.Routing().ToolDiameter
	}
	return 0
}

// ExtraPasses returns the isolation pass count of t, or 0 when t is not an isolator.
func ExtraPasses(t Tool) int {
	if iso, ok := t.(*Isolator); ok {
		return iso.ExtraPasses
	}
	return 0
}

// PathTolerance returns the tolerance used to simplify paths, or fallback
// (typically one pixel) when the tool sets none.
func PathTolerance(t Tool, fallback float64) float64 {
	if t == nil {
		return fallback
	}
	if m := t.Base(); m.Tolerance > 0 {
		return m.Tolerance
	}
	return fallback
}

// DefaultIsolator returns isolation settings for a 0.2 mm V-bit.
func DefaultIsolator() *Isolator {
	return &Isolator{
		RoutingMill: RoutingMill{
			Mill: Mill{
				Feed:     10,
				VertFeed: 5,
				Speed:    12000,
				ZChange:  1.0,
				ZSafe:    0.08,
				ZWork:    -0.002,
			},
			ToolDiameter: 0.008,
			Optimise:     true,
		},
		ExtraPasses: 0,
	}
}

// DefaultCutter returns outline cutting settings for a 2 mm end mill.
func DefaultCutter() *Cutter {
	return &Cutter{
		RoutingMill: RoutingMill{
			Mill: Mill{
				Feed:     8,
				VertFeed: 4,
				Speed:    12000,
				ZChange:  1.0,
				ZSafe:    0.08,
				ZWork:    -0.066,
			},
			ToolDiameter: 0.0787,
			Optimise:     true,
		},
		DoSteps:       true,
		StepSize:      0.02,
		BridgesNum:    2,
		BridgesHeight: -0.04,
		BridgesWidth:  0.08,
	}
}

// DefaultDriller returns drilling settings.
func DefaultDriller() *Driller {
	return &Driller{
		Mill: Mill{
			Feed:    4,
			Speed:   12000,
			ZChange: 1.0,
			ZSafe:   0.08,
			ZWork:   -0.07,
		},
	}
}
