package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/piwi3910/pcbmill/internal/model"
)

// DefaultProfilesPath returns the default file path for custom profiles,
// next to the application config.
func DefaultProfilesPath() string {
	return filepath.Join(DefaultConfigDir(), "profiles.json")
}

// SaveCustomProfiles saves custom profiles to a JSON file.
func SaveCustomProfiles(path string, profiles []model.GCodeProfile) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadCustomProfiles loads custom profiles from a JSON file.
// Returns an empty slice if the file does not exist.
func LoadCustomProfiles(path string) ([]model.GCodeProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.GCodeProfile{}, nil
		}
		return nil, err
	}

	var profiles []model.GCodeProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, err
	}

	for i := range profiles {
		profiles[i].IsBuiltIn = false
		if err := validateProfile(profiles[i]); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return profiles, nil
}

// RegisterCustomProfiles loads the profiles at path and makes them available
// by name to the G-code generator. It returns the number registered.
func RegisterCustomProfiles(path string) (int, error) {
	profiles, err := LoadCustomProfiles(path)
	if err != nil {
		return 0, err
	}
	for _, p := range profiles {
		if err := model.AddCustomProfile(p); err != nil {
			return 0, err
		}
	}
	return len(profiles), nil
}

// validateProfile rejects profiles the generator cannot emit.
func validateProfile(p model.GCodeProfile) error {
	switch {
	case p.Name == "":
		return errors.New("profile has no name")
	case p.RapidMove == "" || p.FeedMove == "":
		return fmt.Errorf("profile %q: rapid_move and feed_move are required", p.Name)
	case p.DecimalPlaces < 0:
		return fmt.Errorf("profile %q: decimal_places must not be negative", p.Name)
	}
	return nil
}

// ExportProfile exports a single profile to a JSON file (for sharing).
func ExportProfile(path string, profile model.GCodeProfile) error {
	profile.IsBuiltIn = false
	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ImportProfile imports a single profile from a JSON file.
func ImportProfile(path string) (model.GCodeProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.GCodeProfile{}, err
	}

	var profile model.GCodeProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return model.GCodeProfile{}, err
	}

	profile.IsBuiltIn = false
	if err := validateProfile(profile); err != nil {
		return model.GCodeProfile{}, err
	}
	return profile, nil
}
