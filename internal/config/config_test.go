package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sim.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `
network:
  agent_count: 50
  initial_degree: 5
simulation:
  n_iter: 10
  repcount: 2
  max_inactive_ticks: 4
  logging: true
  checkpoint_every: 5
  snapshot_every: 5
mechanics:
  like: true
  dislike: false
  share: true
  dynamic_net: true
agent_props:
  unfollow_rate: 0.25
  opinion_drift_rate: 0.1
  like_rate: 0.4
  dislike_rate: 0.3
  share_rate: 0.15
  regularity_boost: 0.02
  opinion_init: noise
  check_regularity: {min: 0.4, max: 0.9}
  inclin_interact: {min: 0.2, max: 2.5}
  desired_input: {min: 5, max: 20}
  feed_min_weight: {min: 0, max: 0}
opinion_treshs:
  unfollow: 0.8
  like: 0.3
  dislike: 0.8
  share: 0.2
`

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Network.AgentCount != 50 || cfg.Network.InitialDegree != 5 {
		t.Fatalf("unexpected network config: %+v", cfg.Network)
	}
	if cfg.Simulation.RepCount != 2 || !cfg.Simulation.Logging {
		t.Fatalf("unexpected simulation config: %+v", cfg.Simulation)
	}
	if cfg.Mechanics.Dislike {
		t.Fatal("dislike should be disabled")
	}
	if cfg.AgentProps.OpinionInit != "noise" {
		t.Fatalf("unexpected opinion_init: %q", cfg.AgentProps.OpinionInit)
	}
	if cfg.Treshs.Unfollow != 0.8 {
		t.Fatalf("unexpected unfollow threshold: %v", cfg.Treshs.Unfollow)
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	body := validYAML + "\nextra_group:\n  surprise: 1\n"
	_, err := Load(writeConfig(t, body))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for unknown field, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero agents", func(c *Config) { c.Network.AgentCount = 0 }},
		{"degree too high", func(c *Config) { c.Network.InitialDegree = c.Network.AgentCount }},
		{"zero iterations", func(c *Config) { c.Simulation.NIter = 0 }},
		{"zero repcount", func(c *Config) { c.Simulation.RepCount = 0 }},
		{"unfollow rate above one", func(c *Config) { c.AgentProps.UnfollowRate = 1.5 }},
		{"negative drift rate", func(c *Config) { c.AgentProps.OpinionDriftRate = -0.1 }},
		{"bad opinion init", func(c *Config) { c.AgentProps.OpinionInit = "bimodal" }},
		{"inverted range", func(c *Config) { c.AgentProps.DesiredInput = Range{Min: 10, Max: 5} }},
		{"regularity out of unit range", func(c *Config) { c.AgentProps.CheckRegularity.Max = 1.2 }},
		{"negative threshold", func(c *Config) { c.Treshs.Unfollow = -0.5 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}
