// Tick engine — drives one simulation tick over the shared state.
//
// Agents are visited in a per-tick random permutation; rewiring applies
// immediately, so agents later in the permutation see earlier agents'
// graph edits. That ordering dependency is load-bearing: the loop is
// single-threaded by design, and all randomness comes from the one run
// stream in a fixed order (activation, opinion drift, engagement,
// rewiring, publishing).
package engine

import (
	"fmt"

	"github.com/talgya/socionet/internal/agents"
	"github.com/talgya/socionet/internal/config"
	"github.com/talgya/socionet/internal/entropy"
)

// Engine processes ticks. Pluggable policies cover the behaviors the
// model leaves deployment-specific; the defaults set by New are
// documented on their types.
type Engine struct {
	cfg config.Config
	rng *entropy.Stream

	addInput   AddInputPolicy
	regularity RegularityPolicy
	network    NetworkPolicy // global post-loop pass, nil = skip
	prune      PrunePolicy
}

// Option adjusts an Engine at construction.
type Option func(*Engine)

// WithAddInputPolicy replaces the follow-selection policy.
func WithAddInputPolicy(p AddInputPolicy) Option { return func(e *Engine) { e.addInput = p } }

// WithRegularityPolicy replaces the check-regularity update policy.
func WithRegularityPolicy(p RegularityPolicy) Option { return func(e *Engine) { e.regularity = p } }

// WithNetworkPolicy sets the global post-loop network pass.
func WithNetworkPolicy(p NetworkPolicy) Option { return func(e *Engine) { e.network = p } }

// WithPrunePolicy replaces the feed-consumption policy.
func WithPrunePolicy(p PrunePolicy) Option { return func(e *Engine) { e.prune = p } }

// New creates a tick engine bound to one config and one run stream.
func New(cfg config.Config, rng *entropy.Stream, opts ...Option) *Engine {
	e := &Engine{
		cfg:        cfg,
		rng:        rng,
		addInput:   VisibilityAddInput,
		regularity: BoostDecayRegularity,
		prune:      ClearFeed,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tick advances the state by one tick and returns the per-agent log
// records for it. Any invariant violation aborts the tick with a
// wrapped ErrInvariant.
func (e *Engine) Tick(st *State) ([]TickRecord, error) {
	st.Tick++
	tick := st.Tick

	records := make([]TickRecord, 0, len(st.Agents))

	for _, idx := range e.rng.Perm(len(st.Agents)) {
		a := st.Agents[idx]
		perceived := a.Opinion

		switch {
		case !a.Active:
			// Deactivation is terminal; no draws, no processing.

		case e.rng.Float() < a.CheckRegularity:
			var err error
			perceived, err = e.processAgent(st, a, tick)
			if err != nil {
				return nil, fmt.Errorf("tick %d agent %d: %w", tick, a.ID, err)
			}

		default:
			a.InactiveTicks++
			if e.cfg.Mechanics.DynamicNet && a.InactiveTicks > e.cfg.Simulation.MaxInactiveTicks {
				a.Active = false
			}
		}

		records = append(records, TickRecord{
			AgentID:         a.ID,
			Tick:            tick,
			Opinion:         a.Opinion,
			Perceived:       perceived,
			CheckRegularity: a.CheckRegularity,
			InclinInteract:  a.InclinInteract,
			DesiredInput:    a.DesiredInputCount,
			InactiveTicks:   a.InactiveTicks,
			InDegree:        st.Graph.InputCount(a.ID),
			OutDegree:       st.Graph.FollowerCount(a.ID),
			Active:          a.Active,
		})
	}

	if e.cfg.Mechanics.DynamicNet && e.network != nil {
		if err := e.network(st, e.cfg, e.rng); err != nil {
			return nil, fmt.Errorf("tick %d network pass: %w", tick, err)
		}
	}

	return records, nil
}

// processAgent runs one activated agent through the per-tick pipeline:
// feed read, opinion update, engagement, network handling, posting.
func (e *Engine) processAgent(st *State, a *agents.Agent, tick uint64) (float64, error) {
	a.InactiveTicks = 0

	e.updateFeed(a)
	perceived := e.perceivedPublicOpinion(a)
	if err := e.updateOpinion(a, perceived); err != nil {
		return perceived, err
	}

	e.engage(a)

	if e.cfg.Mechanics.DynamicNet {
		dropped, err := e.dropInput(st, a)
		if err != nil {
			return perceived, err
		}
		added := 0
		if st.Graph.InputCount(a.ID) < a.DesiredInputCount {
			added, err = e.addInput(st, a, e.cfg, e.rng)
			if err != nil {
				return perceived, err
			}
		}
		a.CheckRegularity = clamp01(e.regularity(a, e.cfg, dropped+added))
	} else {
		e.updateInput(a)
	}

	// Posting: repeated Bernoulli trials over a consumed copy of the
	// posting inclination. ceil(inclin_interact) trials with thresholds
	// decreasing by 1.0 each draw — not equivalent to one Poisson draw.
	for remaining := a.InclinInteract; remaining > 0; remaining -= 1.0 {
		if e.rng.Float() < remaining {
			if err := e.publish(st, a, tick); err != nil {
				return perceived, err
			}
		}
	}

	e.prune(a)
	return perceived, nil
}

// updateInput is the static-network counterpart of the rewiring path.
// With dynamic_net off the graph never mutates, so there is nothing
// structural to do.
func (e *Engine) updateInput(a *agents.Agent) {}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
