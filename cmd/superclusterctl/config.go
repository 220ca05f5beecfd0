package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iahmedov/supercluster"
)

// config is the yaml view of the index options. Fields left out of the
// file keep the library defaults.
type config struct {
	MinZoom   int     `yaml:"min_zoom"`
	MaxZoom   int     `yaml:"max_zoom"`
	MinPoints int     `yaml:"min_points"`
	Radius    float64 `yaml:"radius"`
	Extent    float64 `yaml:"extent"`
	NodeSize  int     `yaml:"node_size"`
}

func defaultConfig() config {
	d := supercluster.DefaultOptions()
	return config{
		MinZoom:   d.MinZoom,
		MaxZoom:   d.MaxZoom,
		MinPoints: d.MinPoints,
		Radius:    d.Radius,
		Extent:    d.Extent,
		NodeSize:  d.NodeSize,
	}
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

func (c config) Options() supercluster.Options {
	return supercluster.Options{
		MinZoom:   c.MinZoom,
		MaxZoom:   c.MaxZoom,
		MinPoints: c.MinPoints,
		Radius:    c.Radius,
		Extent:    c.Extent,
		NodeSize:  c.NodeSize,
	}
}
