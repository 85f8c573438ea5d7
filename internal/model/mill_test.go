package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToolHelpers(t *testing.T) {
	iso := DefaultIsolator()
	iso.ToolDiameter = 1.0
	iso.ExtraPasses = 2

	cut := DefaultCutter()
	cut.ToolDiameter = 2.0

	drill := DefaultDriller()

	tests := []struct {
		name     string
		tool     Tool
		diameter float64
		passes   int
	}{
		{"isolator", iso, 1.0, 2},
		{"cutter", cut, 2.0, 0},
		{"routing mill", &RoutingMill{ToolDiameter: 0.5}, 0.5, 0},
		{"driller", drill, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.diameter, Diameter(tt.tool))
			assert.Equal(t, tt.passes, ExtraPasses(tt.tool))
		})
	}
}

func TestToolsShareBase(t *testing.T) {
	iso := DefaultIsolator()
	var tool Tool = iso

	tool.Base().Backside = true
	assert.True(t, iso.Backside)
	assert.Same(t, &iso.RoutingMill, iso.Routing())
	assert.InDelta(t, iso.ToolDiameter/2, iso.Radius(), 1e-12)
}

func TestDrillerSplit(t *testing.T) {
	holes := []Hole{
		{X: 0, Y: 0, Diameter: 0.03},
		{X: 1, Y: 0, Diameter: 0.04},
		{X: 2, Y: 0, Diameter: 0.125},
	}

	tests := []struct {
		name    string
		mill    bool
		max     float64
		drilled int
		milled  int
	}{
		{"drill everything", false, 0, 3, 0},
		{"mill wide holes", false, 0.04, 2, 1},
		{"mill everything", true, 0.04, 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DefaultDriller()
			d.MillHoles = tt.mill
			d.MaxDiameter = tt.max
			drill, mill := d.Split(holes)
			assert.Len(t, drill, tt.drilled)
			assert.Len(t, mill, tt.milled)
		})
	}
}

func TestPathTolerance(t *testing.T) {
	iso := DefaultIsolator()
	assert.Equal(t, 0.001, PathTolerance(iso, 0.001))

	iso.Tolerance = 0.0005
	iso.ExplicitTolerance = true
	assert.Equal(t, 0.0005, PathTolerance(iso, 0.001))

	assert.Equal(t, 0.002, PathTolerance(nil, 0.002))
}

func TestParseSide(t *testing.T) {
	tests := []struct {
		in      string
		want    Side
		wantErr bool
	}{
		{"front", SideFront, false},
		{"BACK", SideBack, false},
		{"", SideAuto, false},
		{"auto", SideAuto, false},
		{"top", SideAuto, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSide(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSideResolve(t *testing.T) {
	assert.Equal(t, SideFront, SideAuto.Resolve(true, true))
	assert.Equal(t, SideBack, SideAuto.Resolve(false, true))
	assert.Equal(t, SideFront, SideAuto.Resolve(false, false))
	assert.Equal(t, SideBack, SideBack.Resolve(true, false))
	assert.Equal(t, "back", SideBack.String())
}
