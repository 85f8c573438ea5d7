package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withCustomProfiles(t *testing.T, profiles ...GCodeProfile) {
	t.Helper()
	saved := CustomProfiles
	CustomProfiles = profiles
	t.Cleanup(func() { CustomProfiles = saved })
}

func TestBuiltInProfiles(t *testing.T) {
	tests := []struct {
		name        string
		metric      bool
		comment     string
		decimals    int
		pathControl bool
	}{
		{"Grbl", true, ";", 3, false},
		{"Mach3", true, "(", 4, true},
		{"LinuxCNC", false, "(", 5, true},
		{"Generic", true, ";", 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := GetProfile(tt.name)
			require.Equal(t, tt.name, p.Name)
			assert.True(t, p.IsBuiltIn)
			assert.Equal(t, tt.metric, p.Metric())
			assert.Equal(t, tt.comment, p.CommentPrefix)
			assert.Equal(t, tt.decimals, p.DecimalPlaces)
			assert.Equal(t, tt.pathControl, p.PathControl != "")
			assert.NotEmpty(t, p.RapidMove)
			assert.NotEmpty(t, p.FeedMove)
		})
	}
}

func TestGetProfileFallsBackToGeneric(t *testing.T) {
	withCustomProfiles(t)
	assert.Equal(t, "Generic", GetProfile("Haas").Name)
}

func TestDefaultSettingsProfileExists(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, s.GCodeProfile, GetProfile(s.GCodeProfile).Name)
	assert.Equal(t, 1000, s.DPI)
	assert.True(t, s.FillOutline)
}

func TestCustomProfileRegistry(t *testing.T) {
	withCustomProfiles(t)

	shop := NewCustomProfile("Shop")
	assert.False(t, shop.IsBuiltIn)
	assert.Equal(t, GetProfile("Generic").StartCode, shop.StartCode)
	shop.StartCode[0] = "G91"
	assert.Equal(t, "G90", GetProfile("Generic").StartCode[0], "the copy must not alias the built-in table")

	require.NoError(t, AddCustomProfile(shop))
	assert.Contains(t, GetProfileNames(), "Shop")
	assert.Len(t, AllProfiles(), len(GCodeProfiles)+1)

	shop.DecimalPlaces = 2
	require.NoError(t, AddCustomProfile(shop))
	assert.Len(t, CustomProfiles, 1, "re-adding replaces by name")
	assert.Equal(t, 2, GetProfile("Shop").DecimalPlaces)

	require.NoError(t, RemoveCustomProfile("Shop"))
	assert.NotContains(t, GetProfileNames(), "Shop")
	assert.Error(t, RemoveCustomProfile("Shop"))
}

func TestBuiltInProfilesAreProtected(t *testing.T) {
	withCustomProfiles(t)

	assert.Error(t, AddCustomProfile(GCodeProfile{Name: "Grbl"}))
	assert.Error(t, RemoveCustomProfile("LinuxCNC"))
	assert.Empty(t, CustomProfiles)
}
