package gcode

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// MoveType represents the type of CNC toolpath movement.
type MoveType int

const (
	MoveRapid   MoveType = iota // G0: rapid positioning (no cutting)
	MoveFeed                    // G1/G2/G3: feed (cutting move in XY plane)
	MovePlunge                  // G1 with Z decreasing: plunging into material
	MoveRetract                 // G0/G1 with Z increasing: retracting from material
)

func (t MoveType) String() string {
	switch t {
	case MoveRapid:
		return "rapid"
	case MoveFeed:
		return "feed"
	case MovePlunge:
		return "plunge"
	case MoveRetract:
		return "retract"
	default:
		return "unknown"
	}
}

// GCodeMove represents a single parsed movement from GCode.
type GCodeMove struct {
	Type     MoveType
	Line     int // 1-based source line
	FromX    float64
	FromY    float64
	FromZ    float64
	ToX      float64
	ToY      float64
	ToZ      float64
	FeedRate float64
	Arc      *Arc // nil for straight moves
}

// Arc is the circle of a G2/G3 move.
type Arc struct {
	CenterX   float64
	CenterY   float64
	Clockwise bool
}

// XYLength returns the horizontal travel of the move.
func (m GCodeMove) XYLength() float64 {
	if m.Arc == nil {
		return math.Hypot(m.ToX-m.FromX, m.ToY-m.FromY)
	}
	r := math.Hypot(m.FromX-m.Arc.CenterX, m.FromY-m.Arc.CenterY)
	return r * m.sweep()
}

// sweep returns the angle an arc move turns through. An arc ending where it
// starts is a full circle.
func (m GCodeMove) sweep() float64 {
	a0 := math.Atan2(m.FromY-m.Arc.CenterY, m.FromX-m.Arc.CenterX)
	a1 := math.Atan2(m.ToY-m.Arc.CenterY, m.ToX-m.Arc.CenterX)
	s := a1 - a0
	if m.Arc.Clockwise {
		s = -s
	}
	if s < 0 {
		s += 2 * math.Pi
	}
	if s < 1e-9 {
		s = 2 * math.Pi
	}
	return s
}

// Program is a parsed G-code program.
type Program struct {
	Moves []GCodeMove
	// Metric is true unless the program selects inches with G20.
	Metric bool
}

var (
	wordRe  = regexp.MustCompile(`([XYZFIJR])\s*([-+]?\d*\.?\d+)`)
	gWordRe = regexp.MustCompile(`\bG0*(\d+)\b`)
)

// ParseGCode parses a GCode string into a slice of structured moves.
// It tracks absolute position state and classifies each G0/G1 command
// by its movement characteristics (rapid, feed, plunge, retract). Motion
// mode is modal, so bare coordinate lines continue the last G0 or G1.
// G2/G3 arcs are feed moves; each hole of a G81 drilling cycle expands to
// its positioning, plunge and retract moves.
func ParseGCode(code string) []GCodeMove {
	return Parse(code).Moves
}

// Parse parses a program, including its unit selection.
func Parse(code string) Program {
	prog := Program{Metric: true}

	curX, curY, curZ := 0.0, 0.0, 0.0
	curFeed := 0.0
	motion := -1
	// G81 hole depth and retract plane
	cycleZ, cycleR := 0.0, 0.0

	for n, line := range strings.Split(code, "\n") {
		line = strings.ToUpper(stripComments(line))
		if line == "" {
			continue
		}

		for _, m := range gWordRe.FindAllStringSubmatch(line, -1) {
			switch m[1] {
			case "0", "1", "2", "3", "81":
				motion, _ = strconv.Atoi(m[1])
			case "80":
				motion = -1
			case "20":
				prog.Metric = false
			case "21":
				prog.Metric = true
			}
		}

		words := wordRe.FindAllStringSubmatch(line, -1)
		if motion < 0 || len(words) == 0 {
			continue
		}

		w := make(map[string]float64, len(words))
		for _, m := range words {
			if val, err := strconv.ParseFloat(m[2], 64); err == nil {
				w[m[1]] = val
			}
		}
		if f, ok := w["F"]; ok {
			curFeed = f
		}

		move := func(rapid bool, x, y, z float64, arc *Arc) {
			t := classifyMove(rapid, curZ, z, curX, curY, x, y)
			if arc != nil {
				t = MoveFeed
			}
			prog.Moves = append(prog.Moves, GCodeMove{
				Type:     t,
				Line:     n + 1,
				FromX:    curX,
				FromY:    curY,
				FromZ:    curZ,
				ToX:      x,
				ToY:      y,
				ToZ:      z,
				FeedRate: curFeed,
				Arc:      arc,
			})
			curX, curY, curZ = x, y, z
		}

		x, hasX := w["X"]
		y, hasY := w["Y"]
		z, hasZ := w["Z"]
		if !hasX {
			x = curX
		}
		if !hasY {
			y = curY
		}

		switch motion {
		case 81:
			if hasZ {
				cycleZ = z
			}
			if r, ok := w["R"]; ok {
				cycleR = r
			}
			if !hasX && !hasY {
				continue
			}
			if curZ < cycleR {
				move(true, curX, curY, cycleR, nil)
			}
			if x != curX || y != curY {
				move(true, x, y, curZ, nil)
			}
			if curZ > cycleR {
				move(true, x, y, cycleR, nil)
			}
			move(false, x, y, cycleZ, nil)
			move(true, x, y, cycleR, nil)
		case 2, 3:
			i, hasI := w["I"]
			j, hasJ := w["J"]
			if !hasI && !hasJ {
				continue
			}
			if !hasZ {
				z = curZ
			}
			move(false, x, y, z, &Arc{CenterX: curX + i, CenterY: curY + j, Clockwise: motion == 2})
		default:
			if !hasX && !hasY && !hasZ {
				continue
			}
			if !hasZ {
				z = curZ
			}
			move(motion == 0, x, y, z, nil)
		}
	}

	return prog
}

// stripComments removes semicolon and parenthetical comments.
func stripComments(line string) string {
	if idx := strings.Index(line, ";"); idx >= 0 {
		line = line[:idx]
	}
	for {
		start := strings.Index(line, "(")
		if start < 0 {
			break
		}
		end := strings.Index(line[start:], ")")
		if end < 0 {
			line = line[:start]
			break
		}
		line = line[:start] + line[start+end+1:]
	}
	return strings.TrimSpace(line)
}

// classifyMove determines the MoveType based on movement characteristics.
func classifyMove(isRapid bool, fromZ, toZ, fromX, fromY, toX, toY float64) MoveType {
	zDelta := toZ - fromZ
	hasXY := fromX != toX || fromY != toY

	switch {
	case isRapid:
		if zDelta > 0 {
			return MoveRetract
		}
		return MoveRapid
	case zDelta < -1e-6 && !hasXY:
		return MovePlunge
	case zDelta > 1e-6 && !hasXY:
		return MoveRetract
	default:
		return MoveFeed
	}
}

// Stats summarizes the motion of a program.
type Stats struct {
	Rapids        int
	Feeds         int
	Plunges       int
	Retracts      int
	CutLength     float64 // XY length of feed moves
	RapidLength   float64 // XY length of rapid moves
	MinZ          float64
	MaxZ          float64
	EstimatedTime float64 // Minutes spent feeding, from the programmed feed rates
}

// ComputeStats tallies the moves of a program.
func ComputeStats(moves []GCodeMove) Stats {
	var s Stats
	for i, m := range moves {
		if i == 0 || m.ToZ < s.MinZ {
			s.MinZ = m.ToZ
		}
		if i == 0 || m.ToZ > s.MaxZ {
			s.MaxZ = m.ToZ
		}

		switch m.Type {
		case MoveRapid:
			s.Rapids++
			s.RapidLength += m.XYLength()
		case MoveFeed:
			s.Feeds++
			s.CutLength += m.XYLength()
		case MovePlunge:
			s.Plunges++
		case MoveRetract:
			s.Retracts++
			s.RapidLength += m.XYLength()
		}

		if m.Type != MoveRapid && m.Type != MoveRetract && m.FeedRate > 0 {
			d := math.Sqrt(m.XYLength()*m.XYLength() + (m.ToZ-m.FromZ)*(m.ToZ-m.FromZ))
			s.EstimatedTime += d / m.FeedRate
		}
	}
	return s
}
