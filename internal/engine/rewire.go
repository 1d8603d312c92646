// Network rewiring — unfollow (drop_input) and follow (add_input)
// rules. Runs only when mechanics.dynamic_net is set. Edge mutations
// apply immediately, never batched: agents processed later in the same
// tick see the updated graph.
package engine

import (
	"math"
	"sort"

	"github.com/talgya/socionet/internal/agents"
	"github.com/talgya/socionet/internal/config"
	"github.com/talgya/socionet/internal/entropy"
)

// unfollowCandidate keys a drop candidate by (source, current input
// count of the source). The input count is captured at scan time and is
// the sort key for removal order.
type unfollowCandidate struct {
	source agents.AgentID
	inputs int
}

// dropInput unfollows ideologically distant sources.
//
// A source qualifies only when a feed post from it disagrees with the
// agent beyond the unfollow threshold AND the source's own current
// opinion does too — one outlier post from an otherwise-aligned source
// does not trigger an unfollow. Sources with more followers than the
// agent survive a coin flip; removal is capped at
// ceil(inputs(agent) * unfollow_rate) per call, least-followed-first.
func (e *Engine) dropInput(st *State, a *agents.Agent) (int, error) {
	tresh := e.cfg.Treshs.Unfollow
	seen := make(map[agents.AgentID]bool)
	var candidates []unfollowCandidate

	for _, post := range a.Feed {
		src := post.SourceAgent
		if src == a.ID || seen[src] || !st.Graph.HasEdge(a.ID, src) {
			continue
		}
		if math.Abs(post.Opinion-a.Opinion) <= tresh {
			continue
		}
		srcAgent := st.Agent(src)
		if srcAgent == nil || math.Abs(srcAgent.Opinion-a.Opinion) <= tresh {
			continue
		}
		seen[src] = true

		// Popular sources (more followers than the agent) are only
		// unfollowed on a coin flip.
		if st.Graph.FollowerCount(src) > st.Graph.FollowerCount(a.ID) {
			if e.rng.Float() >= 0.5 {
				continue
			}
		}
		candidates = append(candidates, unfollowCandidate{
			source: src,
			inputs: st.Graph.InputCount(src),
		})
	}

	if len(candidates) == 0 {
		return 0, nil
	}

	// Least-popular-by-inputs first; stable, so ties keep scan order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].inputs < candidates[j].inputs
	})

	k := int(math.Ceil(float64(st.Graph.InputCount(a.ID)) * e.cfg.AgentProps.UnfollowRate))
	if k > len(candidates) {
		k = len(candidates)
	}

	for _, c := range candidates[:k] {
		if err := st.Graph.Unfollow(a.ID, c.source); err != nil {
			return 0, err
		}
	}
	return k, nil
}

// AddInputPolicy selects new sources to follow when an agent's input
// count falls short of its desired input count. Implementations must
// move the input count toward the target without introducing self-loops
// or duplicate edges; the exact selection rule is deployment-specific.
type AddInputPolicy func(st *State, a *agents.Agent, cfg config.Config, rng *entropy.Stream) (int, error)

// VisibilityAddInput is the default follow policy: it fills the
// shortfall by sampling the run post log weighted by post weight, so
// widely-followed publishers are discovered more often. Self, already
// followed, and deactivated sources are skipped.
func VisibilityAddInput(st *State, a *agents.Agent, cfg config.Config, rng *entropy.Stream) (int, error) {
	shortfall := a.DesiredInputCount - st.Graph.InputCount(a.ID)
	if shortfall <= 0 || len(st.PostLog) == 0 {
		return 0, nil
	}

	// Visibility per source: the heaviest post seen from it, scanned
	// newest-first so recent reach dominates.
	type candidate struct {
		source agents.AgentID
		weight float64
	}
	var pool []candidate
	index := make(map[agents.AgentID]bool)
	for i := len(st.PostLog) - 1; i >= 0; i-- {
		p := st.PostLog[i]
		src := p.SourceAgent
		if index[src] || src == a.ID || st.Graph.HasEdge(a.ID, src) {
			continue
		}
		if srcAgent := st.Agent(src); srcAgent == nil || !srcAgent.Active {
			continue
		}
		index[src] = true
		pool = append(pool, candidate{source: src, weight: float64(p.Weight) + 1})
	}

	added := 0
	for added < shortfall && len(pool) > 0 {
		total := 0.0
		for _, c := range pool {
			total += c.weight
		}
		r := rng.Float() * total
		pick := len(pool) - 1
		for i, c := range pool {
			if r < c.weight {
				pick = i
				break
			}
			r -= c.weight
		}

		if err := st.Graph.Follow(a.ID, pool[pick].source); err != nil {
			return added, err
		}
		added++
		pool = append(pool[:pick], pool[pick+1:]...)
	}
	return added, nil
}

// RegularityPolicy recomputes an agent's check regularity after network
// handling. The contract is a result in [0,1]; the engine clamps
// regardless. changed is the number of edges this agent added or
// dropped in the call.
type RegularityPolicy func(a *agents.Agent, cfg config.Config, changed int) float64

// BoostDecayRegularity is the default: network churn bumps activation
// probability by regularity_boost per changed edge, and quiet ticks let
// it relax toward the midpoint of the configured initial range.
func BoostDecayRegularity(a *agents.Agent, cfg config.Config, changed int) float64 {
	if changed > 0 {
		return a.CheckRegularity + cfg.AgentProps.RegularityBoost*float64(changed)
	}
	mid := (cfg.AgentProps.CheckRegularity.Min + cfg.AgentProps.CheckRegularity.Max) / 2
	return a.CheckRegularity + 0.05*(mid-a.CheckRegularity)
}

// NetworkPolicy is a global structural pass over the whole graph after
// the agent loop. The rule is deployment-specific; the engine runs it
// only under dynamic_net, and nil means no pass.
type NetworkPolicy func(st *State, cfg config.Config, rng *entropy.Stream) error

// PrunePolicy consumes an agent's feed at the end of its processing.
type PrunePolicy func(a *agents.Agent)

// ClearFeed is the default prune policy: a consumed feed is emptied, so
// each item is read, engaged with, and counted exactly once.
func ClearFeed(a *agents.Agent) {
	a.Feed = a.Feed[:0]
}
