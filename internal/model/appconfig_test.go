package model

import "testing"

func TestDefaultAppConfigMatchesDefaultSettings(t *testing.T) {
	cfg := DefaultAppConfig()
	defaults := DefaultSettings()

	if cfg.DefaultDPI != defaults.DPI {
		t.Errorf("DPI mismatch: config=%d settings=%d", cfg.DefaultDPI, defaults.DPI)
	}
	if cfg.DefaultOutlineWidth != defaults.OutlineWidth {
		t.Errorf("OutlineWidth mismatch: config=%f settings=%f", cfg.DefaultOutlineWidth, defaults.OutlineWidth)
	}
	if cfg.DefaultTSP2Opt != defaults.TSP2Opt {
		t.Errorf("TSP2Opt mismatch: config=%v settings=%v", cfg.DefaultTSP2Opt, defaults.TSP2Opt)
	}
	if cfg.DefaultGCodeProfile != defaults.GCodeProfile {
		t.Errorf("GCodeProfile mismatch: config=%s settings=%s", cfg.DefaultGCodeProfile, defaults.GCodeProfile)
	}
	if cfg.RecentProjects == nil {
		t.Error("RecentProjects should not be nil")
	}
}

func TestApplyToSettings(t *testing.T) {
	cfg := DefaultAppConfig()
	cfg.DefaultDPI = 2000
	cfg.DefaultVectorial = true
	cfg.DefaultGCodeProfile = "Grbl"

	s := DefaultSettings()
	cfg.ApplyToSettings(&s)

	if s.DPI != 2000 {
		t.Errorf("expected DPI=2000, got %d", s.DPI)
	}
	if !s.Vectorial {
		t.Error("expected Vectorial=true")
	}
	if s.GCodeProfile != "Grbl" {
		t.Errorf("expected GCodeProfile=Grbl, got %s", s.GCodeProfile)
	}
}

func TestAddRecentProject(t *testing.T) {
	cfg := DefaultAppConfig()
	cfg.AddRecentProject("a.toml", 2)
	cfg.AddRecentProject("b.toml", 2)
	cfg.AddRecentProject("a.toml", 2)
	cfg.AddRecentProject("c.toml", 2)

	if len(cfg.RecentProjects) != 2 {
		t.Fatalf("expected 2 recent projects, got %d", len(cfg.RecentProjects))
	}
	if cfg.RecentProjects[0] != "c.toml" || cfg.RecentProjects[1] != "a.toml" {
		t.Errorf("unexpected recent list %v", cfg.RecentProjects)
	}
}
