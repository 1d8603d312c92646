// Package config loads and validates simulation configuration.
// Config values are read once at startup and treated as immutable for
// the duration of a run; every component receives them read-only.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalid marks configuration errors. Validation runs before any
// tick, so a bad config never produces partial simulation state.
var ErrInvalid = errors.New("invalid config")

// Config is the root configuration for one simulation run.
type Config struct {
	Network    Network    `yaml:"network"`
	Simulation Simulation `yaml:"simulation"`
	Mechanics  Mechanics  `yaml:"mechanics"`
	AgentProps AgentProps `yaml:"agent_props"`
	Treshs     Treshs     `yaml:"opinion_treshs"`
}

// Network sizes the agent population and its initial wiring.
type Network struct {
	AgentCount    int `yaml:"agent_count"`
	InitialDegree int `yaml:"initial_degree"`
}

// Simulation controls run length, repetitions, and cadences.
type Simulation struct {
	NIter            int  `yaml:"n_iter"`
	RepCount         int  `yaml:"repcount"`
	MaxInactiveTicks int  `yaml:"max_inactive_ticks"`
	Logging          bool `yaml:"logging"`
	CheckpointEvery  int  `yaml:"checkpoint_every"`
	SnapshotEvery    int  `yaml:"snapshot_every"`
}

// Mechanics toggles the per-tick behavioral subsystems. A disabled
// mechanic performs no action and consumes no random draws.
type Mechanics struct {
	Like       bool `yaml:"like"`
	Dislike    bool `yaml:"dislike"`
	Share      bool `yaml:"share"`
	DynamicNet bool `yaml:"dynamic_net"`
}

// Range is a closed uniform sampling interval for agent initialization.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// AgentProps holds per-agent behavioral rates and the distributions
// agent fields are initialized from.
type AgentProps struct {
	UnfollowRate     float64 `yaml:"unfollow_rate"`
	OpinionDriftRate float64 `yaml:"opinion_drift_rate"`
	LikeRate         float64 `yaml:"like_rate"`
	DislikeRate      float64 `yaml:"dislike_rate"`
	ShareRate        float64 `yaml:"share_rate"`
	RegularityBoost  float64 `yaml:"regularity_boost"`
	OpinionInit      string  `yaml:"opinion_init"` // "uniform" or "noise"
	CheckRegularity  Range   `yaml:"check_regularity"`
	InclinInteract   Range   `yaml:"inclin_interact"`
	DesiredInput     Range   `yaml:"desired_input"`
	FeedMinWeight    Range   `yaml:"feed_min_weight"`
}

// Treshs holds opinion-distance thresholds for reactions and unfollows.
type Treshs struct {
	Unfollow float64 `yaml:"unfollow"`
	Like     float64 `yaml:"like"`
	Dislike  float64 `yaml:"dislike"`
	Share    float64 `yaml:"share"`
}

// Load reads a YAML config file. Unknown fields are rejected, and the
// result is validated before it is returned.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: decode %s: %v", ErrInvalid, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field the engine depends on. It fails fast so a
// run never starts from a config it cannot honor.
func (c Config) Validate() error {
	var problems []string

	if c.Network.AgentCount < 1 {
		problems = append(problems, "network.agent_count must be >= 1")
	}
	if c.Network.InitialDegree < 0 {
		problems = append(problems, "network.initial_degree must be >= 0")
	}
	if c.Network.InitialDegree >= c.Network.AgentCount && c.Network.AgentCount > 0 {
		problems = append(problems, "network.initial_degree must be < agent_count (no self-loops)")
	}
	if c.Simulation.NIter < 1 {
		problems = append(problems, "simulation.n_iter must be >= 1")
	}
	if c.Simulation.RepCount < 1 {
		problems = append(problems, "simulation.repcount must be >= 1")
	}
	if c.Simulation.MaxInactiveTicks < 1 {
		problems = append(problems, "simulation.max_inactive_ticks must be >= 1")
	}
	if c.Simulation.CheckpointEvery < 0 {
		problems = append(problems, "simulation.checkpoint_every must be >= 0")
	}
	if c.Simulation.SnapshotEvery < 0 {
		problems = append(problems, "simulation.snapshot_every must be >= 0")
	}

	for _, r := range []struct {
		name string
		v    float64
	}{
		{"agent_props.unfollow_rate", c.AgentProps.UnfollowRate},
		{"agent_props.opinion_drift_rate", c.AgentProps.OpinionDriftRate},
		{"agent_props.like_rate", c.AgentProps.LikeRate},
		{"agent_props.dislike_rate", c.AgentProps.DislikeRate},
		{"agent_props.share_rate", c.AgentProps.ShareRate},
		{"agent_props.regularity_boost", c.AgentProps.RegularityBoost},
	} {
		if r.v < 0 || r.v > 1 {
			problems = append(problems, r.name+" must be in [0,1]")
		}
	}

	switch c.AgentProps.OpinionInit {
	case "uniform", "noise":
	default:
		problems = append(problems, "agent_props.opinion_init must be \"uniform\" or \"noise\"")
	}

	for _, r := range []struct {
		name string
		rg   Range
	}{
		{"agent_props.check_regularity", c.AgentProps.CheckRegularity},
		{"agent_props.inclin_interact", c.AgentProps.InclinInteract},
		{"agent_props.desired_input", c.AgentProps.DesiredInput},
		{"agent_props.feed_min_weight", c.AgentProps.FeedMinWeight},
	} {
		if r.rg.Min > r.rg.Max {
			problems = append(problems, r.name+": min must be <= max")
		}
	}
	if c.AgentProps.CheckRegularity.Min < 0 || c.AgentProps.CheckRegularity.Max > 1 {
		problems = append(problems, "agent_props.check_regularity must lie in [0,1]")
	}
	if c.AgentProps.InclinInteract.Min < 0 {
		problems = append(problems, "agent_props.inclin_interact must be >= 0")
	}
	if c.AgentProps.DesiredInput.Min < 0 {
		problems = append(problems, "agent_props.desired_input must be >= 0")
	}

	for _, r := range []struct {
		name string
		v    float64
	}{
		{"opinion_treshs.unfollow", c.Treshs.Unfollow},
		{"opinion_treshs.like", c.Treshs.Like},
		{"opinion_treshs.dislike", c.Treshs.Dislike},
		{"opinion_treshs.share", c.Treshs.Share},
	} {
		if r.v < 0 || r.v > 2 {
			problems = append(problems, r.name+" must be in [0,2] (opinion distance)")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %d problem(s): %v", ErrInvalid, len(problems), problems)
	}
	return nil
}

// Default returns a config suitable for small exploratory runs and tests.
func Default() Config {
	return Config{
		Network: Network{
			AgentCount:    100,
			InitialDegree: 10,
		},
		Simulation: Simulation{
			NIter:            100,
			RepCount:         1,
			MaxInactiveTicks: 20,
			Logging:          true,
			CheckpointEvery:  50,
			SnapshotEvery:    25,
		},
		Mechanics: Mechanics{
			Like:       true,
			Dislike:    true,
			Share:      true,
			DynamicNet: true,
		},
		AgentProps: AgentProps{
			UnfollowRate:     0.25,
			OpinionDriftRate: 0.1,
			LikeRate:         0.4,
			DislikeRate:      0.3,
			ShareRate:        0.15,
			RegularityBoost:  0.02,
			OpinionInit:      "uniform",
			CheckRegularity:  Range{Min: 0.4, Max: 0.9},
			InclinInteract:   Range{Min: 0.2, Max: 2.5},
			DesiredInput:     Range{Min: 5, Max: 20},
			FeedMinWeight:    Range{Min: 0, Max: 0},
		},
		Treshs: Treshs{
			Unfollow: 0.8,
			Like:     0.3,
			Dislike:  0.8,
			Share:    0.2,
		},
	}
}
