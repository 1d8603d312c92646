// Feed/opinion model — converts an agent's current feed into an opinion
// update.
package engine

import (
	"fmt"

	"github.com/talgya/socionet/internal/agents"
)

// updateFeed is the read step preceding the opinion update. Delivery
// already happened through publish; this is the point where the agent
// turns to its inbox.
func (e *Engine) updateFeed(a *agents.Agent) {}

// perceivedPublicOpinion is the agent's estimate of public sentiment:
// the mean opinion across its feed. An empty feed yields the agent's
// own current opinion, so an isolated agent drifts nowhere.
func (e *Engine) perceivedPublicOpinion(a *agents.Agent) float64 {
	if len(a.Feed) == 0 {
		return a.Opinion
	}
	sum := 0.0
	for _, p := range a.Feed {
		sum += p.Opinion
	}
	return sum / float64(len(a.Feed))
}

// updateOpinion moves the agent's opinion toward the perceived public
// opinion by a randomized bounded step, then clamps. Exactly one draw,
// taken whether or not the step ends up being zero.
func (e *Engine) updateOpinion(a *agents.Agent, perceived float64) error {
	step := e.cfg.AgentProps.OpinionDriftRate * e.rng.Float() * (perceived - a.Opinion)
	a.Opinion = agents.Clamp(a.Opinion + step)
	if a.Opinion < -1 || a.Opinion > 1 {
		return fmt.Errorf("%w: opinion %v for agent %d", ErrInvariant, a.Opinion, a.ID)
	}
	return nil
}
