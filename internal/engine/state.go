// Package engine provides the tick-based simulation core: the per-tick
// agent loop, the feed/opinion model, engagement mechanics, network
// rewiring, and the run-level simulation runner.
package engine

import (
	"errors"
	"fmt"

	"github.com/talgya/socionet/internal/agents"
	"github.com/talgya/socionet/internal/config"
	"github.com/talgya/socionet/internal/entropy"
	"github.com/talgya/socionet/internal/graph"
)

// ErrInvariant marks programming-level invariant violations (opinion
// outside [-1,1], self-loop, duplicate edge). The run fails rather than
// continue, since downstream statistics would be meaningless.
var ErrInvariant = errors.New("invariant violation")

// State is the complete mutable simulation state: one graph plus one
// agent registry plus the run-wide post log. The tick loop owns it
// exclusively for the duration of a tick; checkpoints snapshot it only
// between ticks.
type State struct {
	Graph   *graph.Graph
	Agents  []*agents.Agent // dense, Agents[i] has ID i+1
	PostLog []*agents.Post  // posts that reached at least one follower
	Tick    uint64          // last completed tick, 0 before the first
}

// NewState builds a fresh simulation state: spawned population plus
// randomly wired initial topology. Initialization draws precede all
// tick draws on the same stream.
func NewState(cfg config.Config, seed int64, rng *entropy.Stream) (*State, error) {
	n := cfg.Network.AgentCount
	pop := agents.NewSpawner(cfg.AgentProps, seed).Spawn(n, rng)

	g := graph.New(n)
	if err := g.Wire(rng, cfg.Network.InitialDegree); err != nil {
		return nil, fmt.Errorf("wire initial network: %w", err)
	}

	return &State{Graph: g, Agents: pop}, nil
}

// Agent returns the agent with the given ID, or nil for IDs outside the
// vertex space.
func (st *State) Agent(id agents.AgentID) *agents.Agent {
	if id < 1 || int(id) > len(st.Agents) {
		return nil
	}
	return st.Agents[id-1]
}

// ActiveCount returns how many agents are still active.
func (st *State) ActiveCount() int {
	n := 0
	for _, a := range st.Agents {
		if a.Active {
			n++
		}
	}
	return n
}

// TickRecord is one agent's row in the per-tick log.
type TickRecord struct {
	AgentID         agents.AgentID
	Tick            uint64
	Opinion         float64
	Perceived       float64
	CheckRegularity float64
	InclinInteract  float64
	DesiredInput    int
	InactiveTicks   int
	InDegree        int // accounts followed
	OutDegree       int // followers
	Active          bool
}
