package gcode

import (
	"fmt"

	"github.com/piwi3910/pcbmill/internal/model"
)

// Limits describes the envelope a program must stay within, in program units.
type Limits struct {
	// Area is the XY region cutting moves must stay inside. An empty box
	// disables the check.
	Area model.Bounds
	// MaxDepth is the deepest allowed Z (a negative value). Zero disables
	// the check.
	MaxDepth float64
}

// Violation is a move that breaks a limit or travels rapidly through
// material.
type Violation struct {
	Move   GCodeMove
	Reason string
}

func (v Violation) String() string {
	return fmt.Sprintf("line %d: %s", v.Move.Line, v.Reason)
}

// CheckProgram returns every move that rapids horizontally below the board
// surface, cuts outside the allowed area or goes below the maximum depth.
func CheckProgram(moves []GCodeMove, lim Limits) []Violation {
	var out []Violation
	checkArea := !lim.Area.IsEmpty() && lim.Area.Width() > 0

	for _, m := range moves {
		hasXY := m.FromX != m.ToX || m.FromY != m.ToY

		if (m.Type == MoveRapid || m.Type == MoveRetract) && hasXY && (m.FromZ < 0 || m.ToZ < 0) {
			out = append(out, Violation{Move: m, Reason: "rapid move below the board surface"})
			continue
		}
		if lim.MaxDepth < 0 && m.ToZ < lim.MaxDepth-1e-9 {
			out = append(out, Violation{Move: m, Reason: fmt.Sprintf("depth %.4f below limit %.4f", m.ToZ, lim.MaxDepth)})
			continue
		}
		if checkArea && m.Type == MoveFeed && m.ToZ < 0 {
			to := model.Point2D{X: m.ToX, Y: m.ToY}
			if !lim.Area.Expand(1e-6).Contains(to) {
				out = append(out, Violation{Move: m, Reason: fmt.Sprintf("cut at (%.4f, %.4f) outside the board", m.ToX, m.ToY)})
			}
		}
	}
	return out
}
