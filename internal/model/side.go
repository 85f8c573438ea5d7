package model

import (
	"fmt"
	"strings"
)

// Side selects the face of the board an operation runs on.
type Side int

const (
	SideAuto  Side = iota // Resolved from the layers present
	SideFront             // Component side
	SideBack              // Solder side, mirrored
)

func (s Side) String() string {
	switch s {
	case SideFront:
		return "front"
	case SideBack:
		return "back"
	default:
		return "auto"
	}
}

// ParseSide parses "front", "back" or "auto" (case-insensitive). An empty
// string means auto.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return SideAuto, nil
	case "front":
		return SideFront, nil
	case "back":
		return SideBack, nil
	default:
		return SideAuto, fmt.Errorf("invalid side %q: want front, back or auto", s)
	}
}

// Resolve turns SideAuto into a concrete side. Auto picks the back when the
// board has back copper but no front copper, and the front otherwise.
func (s Side) Resolve(hasFront, hasBack bool) Side {
	if s != SideAuto {
		return s
	}
	if hasBack && !hasFront {
		return SideBack
	}
	return SideFront
}
