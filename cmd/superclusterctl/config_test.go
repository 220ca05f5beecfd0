package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("failed to load empty config: %v", err)
	}
	if cfg.MaxZoom != 16 {
		t.Errorf("expected max_zoom 16, got %d", cfg.MaxZoom)
	}
	if cfg.Radius != 40 {
		t.Errorf("expected radius 40, got %v", cfg.Radius)
	}
	if cfg.NodeSize != 64 {
		t.Errorf("expected node_size 64, got %d", cfg.NodeSize)
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("max_zoom: 12\nradius: 80\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.MaxZoom != 12 {
		t.Errorf("expected max_zoom 12, got %d", cfg.MaxZoom)
	}
	if cfg.Radius != 80 {
		t.Errorf("expected radius 80, got %v", cfg.Radius)
	}
	// untouched fields keep their defaults
	if cfg.MinPoints != 2 {
		t.Errorf("expected min_points 2, got %d", cfg.MinPoints)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := loadConfig("/does/not/exist.yaml"); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestParseBBox(t *testing.T) {
	bbox, err := parseBBox("170, -10, -170, 10")
	if err != nil {
		t.Fatalf("failed to parse bbox: %v", err)
	}
	want := [4]float64{170, -10, -170, 10}
	if bbox != want {
		t.Errorf("expected %v, got %v", want, bbox)
	}

	if _, err := parseBBox("1,2,3"); err == nil {
		t.Error("expected an error for a three part bbox")
	}
	if _, err := parseBBox("a,b,c,d"); err == nil {
		t.Error("expected an error for a non numeric bbox")
	}
}
